package globe

import (
	"errors"
	"sort"
	"sync/atomic"

	"github.com/littleexplorer/atlas/internal/cache"
	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/pkg/core"
)

// ErrUninitializedRenderContext is returned when a frame runs before the camera or viewport exist,
// or after teardown. Callers skip the frame.
var ErrUninitializedRenderContext = errors.New("render context not initialized")

// Synchronizer turns the memory list into a marker snapshot once per frame
type Synchronizer struct {
	radius     float64
	visibility VisibilityTest

	seq     atomic.Uint64
	latest  atomic.Pointer[core.MarkerSnapshot]
	skipped cache.SafeCounter
}

// NewSynchronizer creates a synchronizer for a globe of the given radius.
func NewSynchronizer(visibility VisibilityTest) *Synchronizer {
	return &Synchronizer{
		radius:     visibility.Radius,
		visibility: visibility,
	}
}

type projected struct {
	index    int
	distance float64
}

// Update projects every memory through cam and publishes the result as the latest snapshot.
// Memories are read, never modified.
func (s *Synchronizer) Update(cam *Camera, memories []core.Memory) (*core.MarkerSnapshot, error) {
	if !cam.Ready() {
		s.skipped.Inc()
		return nil, ErrUninitializedRenderContext
	}

	markers := make([]core.MarkerDescriptor, len(memories))
	order := make([]projected, len(memories))

	for i, m := range memories {
		point := geo.SpherePoint(m.Coordinates, s.radius)
		ndc := cam.Project(point)
		x, y := cam.ToPixel(ndc)

		markers[i] = core.MarkerDescriptor{
			ID:      m.ID,
			ScreenX: x,
			ScreenY: y,
			Depth:   ndc.Z(),
			Visible: s.visibility.Visible(point, cam.Position),
		}
		order[i] = projected{index: i, distance: cam.DistanceTo(point)}
	}

	assignStackOrder(markers, order)

	snapshot := &core.MarkerSnapshot{
		Frame:   s.seq.Add(1),
		Markers: markers,
	}
	s.latest.Store(snapshot)
	return snapshot, nil
}

// assignStackOrder ranks markers from farthest (1) to nearest (len).
// Equal distances fall back to ID order so the ranking is a strict total order.
func assignStackOrder(markers []core.MarkerDescriptor, order []projected) {
	sort.SliceStable(order, func(a, b int) bool {
		da, db := order[a].distance, order[b].distance
		if da != db {
			return da > db
		}
		return markers[order[a].index].ID > markers[order[b].index].ID
	})
	for rank, p := range order {
		markers[p.index].StackOrder = rank + 1
	}
}

// Latest returns the most recently published snapshot, or nil before the first successful frame.
func (s *Synchronizer) Latest() *core.MarkerSnapshot {
	return s.latest.Load()
}

// Skipped returns how many frames were skipped because the render context was not ready.
func (s *Synchronizer) Skipped() int {
	return s.skipped.Value()
}
