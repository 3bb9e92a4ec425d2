package globe

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func cameraAt(pos mgl64.Vec3) *Camera {
	return NewCamera(pos, DefaultFovY, DefaultNear, DefaultFar, Viewport{Width: 800, Height: 600})
}

func TestOrbitControls_AutoRotateStep(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)
	cam := cameraAt(mgl64.Vec3{0, 0, 200})

	o.Update(cam)

	want := -2 * math.Pi / 3600 * DefaultAutoRotateSpeed
	assert.InDelta(t, want, math.Atan2(cam.Position.X(), cam.Position.Z()), 1e-12)
	assert.InDelta(t, 200, cam.Position.Len(), 1e-9)
	assert.InDelta(t, 0, cam.Position.Y(), 1e-9)
}

func TestOrbitControls_FullRevolution(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)
	start := mgl64.Vec3{0, 0, 200}
	cam := cameraAt(start)

	// one revolution every 120 s at 60 frames per second
	for i := 0; i < 7200; i++ {
		o.Update(cam)
	}
	assert.InDelta(t, start.X(), cam.Position.X(), 1e-6)
	assert.InDelta(t, start.Z(), cam.Position.Z(), 1e-6)
}

func TestOrbitControls_NoAutoRotateIsStill(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)
	o.AutoRotate = false
	cam := cameraAt(DefaultCameraPosition)

	o.Update(cam)
	assert.InDelta(t, 0, cam.Position.Sub(DefaultCameraPosition).Len(), 1e-9)
}

func TestOrbitControls_ZoomClamped(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)
	o.AutoRotate = false
	cam := cameraAt(mgl64.Vec3{0, 0, 200})

	o.Zoom(10)
	o.Update(cam)
	assert.InDelta(t, DefaultMaxDistance, cam.Position.Len(), 1e-9)

	o.Zoom(0.01)
	o.Update(cam)
	assert.InDelta(t, DefaultMinDistance, cam.Position.Len(), 1e-9)

	o.Zoom(1.5)
	o.Update(cam)
	assert.InDelta(t, DefaultMinDistance*1.5, cam.Position.Len(), 1e-9)
}

func TestOrbitControls_ZoomRejectsInvalidFactors(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)

	o.Zoom(0)
	o.Zoom(-2)
	o.Zoom(math.NaN())
	o.Zoom(math.Inf(1))
	assert.False(t, o.Pending())
}

func TestOrbitControls_PolarClampedAwayFromPoles(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)
	o.AutoRotate = false
	cam := cameraAt(mgl64.Vec3{0, 0, 200})

	o.Drag(0, -10)
	o.Update(cam)
	assert.Less(t, cam.Position.Y(), 200.0)
	assert.Greater(t, cam.Position.Y(), 199.0)
	assert.True(t, cam.Ready())

	o.Drag(0, 20)
	o.Update(cam)
	assert.Greater(t, cam.Position.Y(), -200.0)
	assert.Less(t, cam.Position.Y(), -199.0)
}

func TestOrbitControls_DragAzimuth(t *testing.T) {
	o := NewOrbitControls(DefaultAutoRotateSpeed, DefaultMinDistance, DefaultMaxDistance)
	o.AutoRotate = false
	cam := cameraAt(mgl64.Vec3{0, 0, 200})

	o.Drag(math.Pi/2, 0)
	assert.True(t, o.Pending())
	o.Update(cam)

	assert.InDelta(t, 200, cam.Position.X(), 1e-9)
	assert.InDelta(t, 0, cam.Position.Z(), 1e-9)
	assert.False(t, o.Pending(), "input is consumed by Update")
}

func TestSpherical_RoundTrip(t *testing.T) {
	for _, v := range []mgl64.Vec3{{1, 2, 3}, {-150, 80, -120}, {0, -5, 0.1}} {
		r, polar, azimuth := toSpherical(v)
		back := fromSpherical(r, polar, azimuth)
		assert.InDelta(t, 0, back.Sub(v).Len(), 1e-9, "%v", v)
	}
}
