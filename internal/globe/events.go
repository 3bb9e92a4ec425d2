package globe

import "github.com/littleexplorer/atlas/pkg/core"

// EventKind identifies an input posted to the render context
type EventKind int

const (
	EventSetMemories EventKind = iota
	EventSelect
	EventResize
	EventDrag
	EventZoom
)

func (k EventKind) String() string {
	switch k {
	case EventSetMemories:
		return "setMemories"
	case EventSelect:
		return "select"
	case EventResize:
		return "resize"
	case EventDrag:
		return "drag"
	case EventZoom:
		return "zoom"
	default:
		return "unknown"
	}
}

// Event is queued by any goroutine and applied at the start of the next frame.
type Event struct {
	Kind     EventKind
	Memories []core.Memory
	ID       string
	Viewport Viewport
	Azimuth  float64
	Polar    float64
	Factor   float64
}
