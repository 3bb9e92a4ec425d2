package main

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/littleexplorer/atlas/pkg/core"
)

// Line types written by the JSON-lines presenter
const (
	lineMarkers     = "markers"
	lineFlightPaths = "flightPaths"
	lineDispose     = "dispose"
)

// line is one JSON document of render output
type line struct {
	Type    string                  `json:"type"`
	Frame   uint64                  `json:"frame,omitempty"`
	Markers []core.MarkerDescriptor `json:"markers,omitempty"`
	Paths   []core.FlightPath       `json:"paths,omitempty"`
	From    string                  `json:"from,omitempty"`
	To      string                  `json:"to,omitempty"`
}

// jsonLinesPresenter writes every marker snapshot, arc set and arc disposal as one JSON line.
// It satisfies globe.Presenter and globe.Disposer.
type jsonLinesPresenter struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error

	snapshots int
	installed int
	disposed  int
}

func newJSONLinesPresenter(w io.Writer) *jsonLinesPresenter {
	return &jsonLinesPresenter{enc: json.NewEncoder(w)}
}

func (p *jsonLinesPresenter) PresentMarkers(snapshot *core.MarkerSnapshot) {
	p.write(line{Type: lineMarkers, Frame: snapshot.Frame, Markers: snapshot.Markers})
	p.mu.Lock()
	p.snapshots++
	p.mu.Unlock()
}

func (p *jsonLinesPresenter) PresentFlightPaths(paths []core.FlightPath) {
	p.write(line{Type: lineFlightPaths, Paths: paths})
	p.mu.Lock()
	p.installed += len(paths)
	p.mu.Unlock()
}

func (p *jsonLinesPresenter) DisposeArc(path core.FlightPath) {
	p.write(line{Type: lineDispose, From: path.FromID, To: path.ToID})
	p.mu.Lock()
	p.disposed++
	p.mu.Unlock()
}

func (p *jsonLinesPresenter) write(l line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = p.enc.Encode(l)
}

// Err returns the first write error.
func (p *jsonLinesPresenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
