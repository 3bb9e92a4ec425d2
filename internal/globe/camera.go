package globe

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Viewport is the pixel size of the drawing surface
type Viewport struct {
	Width  float64
	Height float64
}

// Valid reports whether the viewport has a drawable area.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Camera is a perspective camera looking at Target.
// It is transient render state; nothing outside the render context owns it.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FovY     float64 // vertical field of view in degrees
	Near     float64
	Far      float64
	Viewport Viewport
}

// NewCamera creates a camera at position looking at the world origin with +Y up.
func NewCamera(position mgl64.Vec3, fovY, near, far float64, viewport Viewport) *Camera {
	return &Camera{
		Position: position,
		Up:       mgl64.Vec3{0, 1, 0},
		FovY:     fovY,
		Near:     near,
		Far:      far,
		Viewport: viewport,
	}
}

// Ready reports whether the camera can project points.
func (c *Camera) Ready() bool {
	return c != nil && c.Viewport.Valid() && c.Far > c.Near && c.Near > 0
}

// Aspect is the viewport width over height.
func (c *Camera) Aspect() float64 {
	if c.Viewport.Height == 0 {
		return 1
	}
	return c.Viewport.Width / c.Viewport.Height
}

// viewUp returns Up, or a substitute axis when the view direction is parallel to it
// (camera directly above a pole), which would otherwise make the look-at basis degenerate.
func (c *Camera) viewUp() mgl64.Vec3 {
	dir := c.Target.Sub(c.Position)
	if dir.Cross(c.Up).Len() > 1e-9*dir.Len() {
		return c.Up
	}
	if math.Abs(dir.Normalize().Z()) < 0.9 {
		return mgl64.Vec3{0, 0, -1}
	}
	return mgl64.Vec3{1, 0, 0}
}

// ViewMatrix transforms world space into camera space.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position, c.Target, c.viewUp())
}

// ProjectionMatrix transforms camera space into clip space.
func (c *Camera) ProjectionMatrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect(), c.Near, c.Far)
}

// ViewProjection is ProjectionMatrix * ViewMatrix.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// Project returns p in normalized device coordinates; each axis is in [-1,1] when p is inside the frustum.
func (c *Camera) Project(p mgl64.Vec3) mgl64.Vec3 {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

// ToPixel maps NDC x/y to viewport pixels, with Y growing downwards.
func (c *Camera) ToPixel(ndc mgl64.Vec3) (x, y float64) {
	halfW := c.Viewport.Width / 2
	halfH := c.Viewport.Height / 2
	return ndc.X()*halfW + halfW, -ndc.Y()*halfH + halfH
}

// Unproject maps a pixel position and NDC depth back to world space.
func (c *Camera) Unproject(x, y, depth float64) mgl64.Vec3 {
	halfW := c.Viewport.Width / 2
	halfH := c.Viewport.Height / 2
	ndc := mgl64.Vec4{(x - halfW) / halfW, -(y - halfH) / halfH, depth, 1}
	world := c.ViewProjection().Inv().Mul4x1(ndc)
	return world.Vec3().Mul(1 / world.W())
}

// DistanceTo is the Euclidean distance from the camera to p.
func (c *Camera) DistanceTo(p mgl64.Vec3) float64 {
	return c.Position.Sub(p).Len()
}
