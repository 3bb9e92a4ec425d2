package globe

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/pkg/core"
)

const (
	DefaultFlyToStep     = 0.02
	DefaultFocusDistance = 120.0
)

// FlyTo animates the camera towards a point above a location.
// Auto-rotation is paused for the length of the flight and resumed when it lands.
type FlyTo struct {
	Step     float64
	Distance float64

	controls *OrbitControls
	from     mgl64.Vec3
	to       mgl64.Vec3
	steps    int
	active   bool
}

func NewFlyTo(controls *OrbitControls, step, distance float64) *FlyTo {
	if step <= 0 {
		step = DefaultFlyToStep
	}
	if distance <= 0 {
		distance = DefaultFocusDistance
	}
	return &FlyTo{
		Step:     step,
		Distance: distance,
		controls: controls,
	}
}

// Start begins a flight from the given position. A flight already under way is
// replaced and the new one departs from wherever the camera is now.
func (f *FlyTo) Start(from mgl64.Vec3, c core.Coordinates) error {
	if err := geo.Validate(c); err != nil {
		return err
	}
	f.from = from
	f.to = geo.SpherePoint(c, f.Distance)
	f.steps = 0
	f.active = true
	if f.controls != nil {
		f.controls.AutoRotate = false
	}
	return nil
}

// Advance moves cam one step along the flight and reports whether it landed.
func (f *FlyTo) Advance(cam *Camera) bool {
	if !f.active {
		return false
	}
	f.steps++
	t := f.Progress()
	if t >= 1 {
		cam.Position = f.to
		f.active = false
		if f.controls != nil {
			f.controls.AutoRotate = true
		}
		return true
	}
	cam.Position = f.from.Add(f.to.Sub(f.from).Mul(t))
	return false
}

// Cancel abandons the flight without moving the camera further.
func (f *FlyTo) Cancel() {
	f.active = false
}

func (f *FlyTo) Active() bool {
	return f.active
}

// Progress is the interpolation factor of the last step, capped at 1.
func (f *FlyTo) Progress() float64 {
	t := float64(f.steps) * f.Step
	if t > 1 {
		return 1
	}
	return t
}

func (f *FlyTo) Target() mgl64.Vec3 {
	return f.to
}
