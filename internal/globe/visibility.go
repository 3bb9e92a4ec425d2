package globe

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultOcclusionThreshold is the minimum cosine between the surface normal and the view vector.
	// Zero would flicker pins that sit exactly on the horizon.
	DefaultOcclusionThreshold = 0.15

	// DefaultRayEpsilon is how much nearer, in world units, a sphere hit must be to occlude a marker.
	DefaultRayEpsilon = 1e-4
)

// FacesCamera reports whether a point on a sphere centered at the origin faces cameraPos
// by more than threshold.
func FacesCamera(point, cameraPos mgl64.Vec3, threshold float64) bool {
	if point.Len() == 0 {
		return false
	}
	view := cameraPos.Sub(point)
	if view.Len() == 0 {
		return false
	}
	normal := point.Normalize()
	return normal.Dot(view.Normalize()) > threshold
}

// RayOccluded casts a ray from cameraPos towards point and reports whether it enters the
// sphere of the given radius more than epsilon before reaching point.
func RayOccluded(cameraPos, point mgl64.Vec3, radius, epsilon float64) bool {
	toPoint := point.Sub(cameraPos)
	dist := toPoint.Len()
	if dist == 0 {
		return false
	}
	dir := toPoint.Mul(1 / dist)

	// |o + t*d|^2 = r^2 with |d| = 1
	b := cameraPos.Dot(dir)
	c := cameraPos.Dot(cameraPos) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return false
	}
	sq := math.Sqrt(disc)
	hit := -b - sq
	if hit < 0 {
		// camera inside the sphere
		hit = -b + sq
	}
	if hit < 0 {
		return false
	}
	return hit < dist-epsilon
}

// VisibilityTest composes the facing test with the optional raycast confirmation
type VisibilityTest struct {
	Radius     float64
	Threshold  float64
	Raycast    bool
	RayEpsilon float64
}

// Visible reports whether a marker at point should be drawn for a camera at cameraPos.
func (v VisibilityTest) Visible(point, cameraPos mgl64.Vec3) bool {
	if !FacesCamera(point, cameraPos, v.Threshold) {
		return false
	}
	if v.Raycast && RayOccluded(cameraPos, point, v.Radius, v.RayEpsilon) {
		return false
	}
	return true
}
