package globe

import (
	"errors"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/littleexplorer/atlas/internal/cache"
	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/pkg/core"
)

const (
	DefaultArcSegments = 50
	DefaultArcLift     = 0.5
)

// ErrArcLayerClosed is returned when arcs are installed after the view was torn down
var ErrArcLayerClosed = errors.New("arc layer closed")

// Chronological returns a copy of memories sorted by date ascending.
// Memories sharing a date keep their input order.
func Chronological(memories []core.Memory) []core.Memory {
	sorted := make([]core.Memory, len(memories))
	copy(sorted, memories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})
	return sorted
}

// ArcGenerator builds raised quadratic arcs between chronologically consecutive memories
type ArcGenerator struct {
	Radius   float64
	Segments int     // divisions per arc; each arc has Segments+1 points
	Lift     float64 // control point height per unit of great-circle distance
}

// Generate returns len(memories)-1 flight paths, or none for fewer than two memories.
func (g ArcGenerator) Generate(memories []core.Memory) []core.FlightPath {
	if len(memories) < 2 {
		return nil
	}
	sorted := Chronological(memories)

	paths := make([]core.FlightPath, 0, len(sorted)-1)
	for i := 0; i < len(sorted)-1; i++ {
		paths = append(paths, g.Arc(sorted[i], sorted[i+1]))
	}
	return paths
}

// Arc builds the flight path from one memory to the next.
func (g ArcGenerator) Arc(from, to core.Memory) core.FlightPath {
	segments := g.Segments
	if segments < 1 {
		segments = DefaultArcSegments
	}

	start := geo.SpherePoint(from.Coordinates, g.Radius)
	end := geo.SpherePoint(to.Coordinates, g.Radius)
	distance := geo.GreatCircleDistance(from.Coordinates, to.Coordinates, g.Radius)
	control := g.controlPoint(start, end, distance)

	points := make([]mgl64.Vec3, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		points[i] = mgl64.QuadraticBezierCurve3D(t, start, control, end)
	}
	// pin the endpoints exactly to the surface
	points[0], points[segments] = start, end

	return core.FlightPath{
		FromID:   from.ID,
		ToID:     to.ID,
		Points:   points,
		Distance: distance,
	}
}

// controlPoint lifts the chord midpoint off the surface in proportion to the hop length.
func (g ArcGenerator) controlPoint(start, end mgl64.Vec3, distance float64) mgl64.Vec3 {
	mid := start.Add(end).Mul(0.5)
	if mid.Len() < 1e-9*g.Radius {
		// antipodal endpoints: any direction perpendicular to the chord works
		mid = start.Cross(mgl64.Vec3{0, 1, 0})
		if mid.Len() < 1e-9*g.Radius {
			mid = start.Cross(mgl64.Vec3{1, 0, 0})
		}
	}
	if mid.Len() == 0 {
		return start
	}
	return mid.Normalize().Mul(g.Radius + distance*g.Lift)
}

// Disposer releases the render-side resources of an arc
type Disposer interface {
	DisposeArc(path core.FlightPath)
}

// ArcLayer owns the arcs currently installed in the scene. Every arc it installs is disposed
// exactly once, either when it is superseded or when the layer closes.
type ArcLayer struct {
	disposer Disposer
	arcs     []core.FlightPath
	closed   bool

	live     cache.SafeCounter
	created  cache.SafeCounter
	disposed cache.SafeCounter
}

// NewArcLayer creates an empty layer. A nil disposer is allowed.
func NewArcLayer(disposer Disposer) *ArcLayer {
	return &ArcLayer{disposer: disposer}
}

// Replace disposes the current arcs and installs paths in their place.
func (l *ArcLayer) Replace(paths []core.FlightPath) error {
	if l.closed {
		return ErrArcLayerClosed
	}
	l.disposeAll()

	l.arcs = make([]core.FlightPath, len(paths))
	copy(l.arcs, paths)
	l.live.Add(len(paths))
	l.created.Add(len(paths))
	return nil
}

// Close disposes every installed arc. Further Replace calls fail.
func (l *ArcLayer) Close() {
	if l.closed {
		return
	}
	l.disposeAll()
	l.closed = true
}

func (l *ArcLayer) disposeAll() {
	for _, arc := range l.arcs {
		if l.disposer != nil {
			l.disposer.DisposeArc(arc)
		}
		l.live.Dec()
		l.disposed.Inc()
	}
	l.arcs = nil
}

// Paths returns the installed arcs.
func (l *ArcLayer) Paths() []core.FlightPath {
	out := make([]core.FlightPath, len(l.arcs))
	copy(out, l.arcs)
	return out
}

// Live is the number of installed, undisposed arcs. Safe to call from any goroutine.
func (l *ArcLayer) Live() int {
	return l.live.Value()
}

// Created is the total number of arcs ever installed.
func (l *ArcLayer) Created() int {
	return l.created.Value()
}

// Disposed is the total number of arcs released.
func (l *ArcLayer) Disposed() int {
	return l.disposed.Value()
}
