package globe

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultAutoRotateSpeed = 0.5
	DefaultMinDistance     = 70.0
	DefaultMaxDistance     = 300.0

	// keeps the camera off the poles so the view up vector stays defined
	polarMargin = 1e-3
)

// OrbitControls moves the camera on a sphere around its target.
// Input is buffered by Drag and Zoom and applied on the next Update.
type OrbitControls struct {
	AutoRotate      bool
	AutoRotateSpeed float64 // 0.5 is one revolution every 120 s at 60 frames per second
	MinDistance     float64
	MaxDistance     float64

	azimuth float64
	polar   float64
	scale   float64
}

// NewOrbitControls returns controls with auto-rotation on.
func NewOrbitControls(speed, minDistance, maxDistance float64) *OrbitControls {
	return &OrbitControls{
		AutoRotate:      true,
		AutoRotateSpeed: speed,
		MinDistance:     minDistance,
		MaxDistance:     maxDistance,
		scale:           1,
	}
}

// Drag queues a rotation, in radians, around the vertical axis and towards the poles.
func (o *OrbitControls) Drag(dAzimuth, dPolar float64) {
	o.azimuth += dAzimuth
	o.polar += dPolar
}

// Zoom queues a distance scale factor. Factors above 1 move the camera away.
func (o *OrbitControls) Zoom(factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	o.scale *= factor
}

// Discard drops any queued input.
func (o *OrbitControls) Discard() {
	o.azimuth, o.polar, o.scale = 0, 0, 1
}

// Pending reports whether input is queued.
func (o *OrbitControls) Pending() bool {
	return o.azimuth != 0 || o.polar != 0 || o.scale != 1
}

// autoRotateAngle is the per-frame rotation at 60 frames per second.
func (o *OrbitControls) autoRotateAngle() float64 {
	return 2 * math.Pi / 60 / 60 * o.AutoRotateSpeed
}

// Update applies queued input and auto-rotation to cam, then clamps its distance.
func (o *OrbitControls) Update(cam *Camera) {
	offset := cam.Position.Sub(cam.Target)
	radius, polar, azimuth := toSpherical(offset)

	azimuth += o.azimuth
	if o.AutoRotate {
		azimuth -= o.autoRotateAngle()
	}
	polar = mgl64.Clamp(polar+o.polar, polarMargin, math.Pi-polarMargin)

	radius *= o.scale
	if o.MaxDistance > 0 {
		radius = math.Min(radius, o.MaxDistance)
	}
	radius = math.Max(radius, o.MinDistance)

	cam.Position = cam.Target.Add(fromSpherical(radius, polar, azimuth))
	o.Discard()
}

// toSpherical returns the radius, the polar angle from +Y and the azimuth from +Z towards +X.
func toSpherical(v mgl64.Vec3) (radius, polar, azimuth float64) {
	radius = v.Len()
	if radius == 0 {
		return 0, math.Pi / 2, 0
	}
	azimuth = math.Atan2(v.X(), v.Z())
	polar = math.Acos(mgl64.Clamp(v.Y()/radius, -1, 1))
	return radius, polar, azimuth
}

func fromSpherical(radius, polar, azimuth float64) mgl64.Vec3 {
	sinPolar := math.Sin(polar)
	return mgl64.Vec3{
		radius * sinPolar * math.Sin(azimuth),
		radius * math.Cos(polar),
		radius * sinPolar * math.Cos(azimuth),
	}
}
