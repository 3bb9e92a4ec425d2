// pkg/core/render.go
package core

import "github.com/go-gl/mathgl/mgl64"

// MarkerDescriptor is the screen-space state of one memory pin for a single frame
type MarkerDescriptor struct {
	ID         string  `json:"id"`
	ScreenX    float64 `json:"x"`
	ScreenY    float64 `json:"y"`
	Depth      float64 `json:"depth"` // NDC z, -1 near plane .. 1 far plane
	Visible    bool    `json:"visible"`
	StackOrder int     `json:"stackOrder"` // nearer markers rank higher
}

// MarkerSnapshot is the complete marker list of one frame. Published snapshots are never mutated.
type MarkerSnapshot struct {
	Frame   uint64             `json:"frame"`
	Markers []MarkerDescriptor `json:"markers"`
}

// Marker returns the descriptor for id.
func (s *MarkerSnapshot) Marker(id string) (MarkerDescriptor, bool) {
	if s == nil {
		return MarkerDescriptor{}, false
	}
	for _, m := range s.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return MarkerDescriptor{}, false
}

// FlightPath is the sampled arc between two chronologically consecutive memories
type FlightPath struct {
	FromID   string       `json:"from"`
	ToID     string       `json:"to"`
	Points   []mgl64.Vec3 `json:"points"`
	Distance float64      `json:"distance"` // great-circle distance on the globe, world units
}
