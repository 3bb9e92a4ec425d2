package globe

import (
	"sync"
	"time"

	"github.com/littleexplorer/atlas/pkg/core"
)

// scenarioMemories returns Beijing, Shanghai and Xi'an in insertion order, not date order.
func scenarioMemories() []core.Memory {
	return []core.Memory{
		{ID: "1", LocationName: "Beijing", Coordinates: core.Coordinates{Lat: 39.9163, Lng: 116.3972}, Date: core.NewDate(2023, time.June, 15)},
		{ID: "2", LocationName: "Shanghai", Coordinates: core.Coordinates{Lat: 31.2304, Lng: 121.4737}, Date: core.NewDate(2022, time.August, 10)},
		{ID: "3", LocationName: "Xi'an", Coordinates: core.Coordinates{Lat: 34.3841, Lng: 109.2785}, Date: core.NewDate(2024, time.January, 20)},
	}
}

type recordingDisposer struct {
	mu       sync.Mutex
	disposed []core.FlightPath
}

func (d *recordingDisposer) DisposeArc(path core.FlightPath) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposed = append(d.disposed, path)
}

func (d *recordingDisposer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.disposed)
}

type recordingPresenter struct {
	mu        sync.Mutex
	snapshots []*core.MarkerSnapshot
	paths     [][]core.FlightPath
}

func (p *recordingPresenter) PresentMarkers(snapshot *core.MarkerSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *recordingPresenter) PresentFlightPaths(paths []core.FlightPath) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, paths)
}

func (p *recordingPresenter) snapshotCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

func (p *recordingPresenter) lastPaths() []core.FlightPath {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.paths) == 0 {
		return nil
	}
	return p.paths[len(p.paths)-1]
}
