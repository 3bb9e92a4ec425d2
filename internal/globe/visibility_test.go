package globe

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/pkg/core"
)

func antipode(c core.Coordinates) core.Coordinates {
	lng := c.Lng + 180
	if lng > 180 {
		lng -= 360
	}
	return core.Coordinates{Lat: -c.Lat, Lng: lng}
}

func TestVisibility_ClosestPointVisibleAntipodeHidden(t *testing.T) {
	coords := []core.Coordinates{
		{Lat: 39.9163, Lng: 116.3972},
		{Lat: 0, Lng: 0},
		{Lat: -45, Lng: -120},
		{Lat: 60, Lng: 10},
	}
	for _, raycast := range []bool{false, true} {
		test := VisibilityTest{Radius: DefaultRadius, Threshold: DefaultOcclusionThreshold, Raycast: raycast, RayEpsilon: DefaultRayEpsilon}
		for _, c := range coords {
			cameraPos := geo.SpherePoint(c, 200)

			closest := geo.SpherePoint(c, DefaultRadius)
			assert.True(t, test.Visible(closest, cameraPos), "closest point %+v (raycast=%v)", c, raycast)

			far := geo.SpherePoint(antipode(c), DefaultRadius)
			assert.False(t, test.Visible(far, cameraPos), "antipode of %+v (raycast=%v)", c, raycast)
		}
	}
}

func TestFacesCamera_Threshold(t *testing.T) {
	cameraPos := mgl64.Vec3{0, 0, 200}

	// on the horizon as seen from infinity
	edge := mgl64.Vec3{DefaultRadius, 0, 0}
	assert.False(t, FacesCamera(edge, cameraPos, 0))

	facing := mgl64.Vec3{0, 0, DefaultRadius}
	assert.True(t, FacesCamera(facing, cameraPos, DefaultOcclusionThreshold))
	assert.False(t, FacesCamera(facing, cameraPos, 1), "cosine never exceeds 1")
}

func TestFacesCamera_Degenerate(t *testing.T) {
	assert.False(t, FacesCamera(mgl64.Vec3{}, mgl64.Vec3{0, 0, 200}, 0), "point at center")
	p := mgl64.Vec3{0, 0, DefaultRadius}
	assert.False(t, FacesCamera(p, p, 0), "camera on the point")
}

func TestRayOccluded(t *testing.T) {
	cameraPos := mgl64.Vec3{0, 0, 200}

	assert.False(t, RayOccluded(cameraPos, mgl64.Vec3{0, 0, DefaultRadius}, DefaultRadius, DefaultRayEpsilon), "front point")
	assert.True(t, RayOccluded(cameraPos, mgl64.Vec3{0, 0, -DefaultRadius}, DefaultRadius, DefaultRayEpsilon), "back point")
	assert.True(t, RayOccluded(cameraPos, mgl64.Vec3{DefaultRadius, 0, 0}, DefaultRadius, DefaultRayEpsilon), "past the tangent")
	assert.False(t, RayOccluded(cameraPos, mgl64.Vec3{0, 300, 0}, DefaultRadius, DefaultRayEpsilon), "ray misses the sphere")
}

func TestRayOccluded_CameraInside(t *testing.T) {
	cameraPos := mgl64.Vec3{0, 0, 10}
	assert.False(t, RayOccluded(cameraPos, mgl64.Vec3{0, 0, DefaultRadius}, DefaultRadius, DefaultRayEpsilon))
	assert.True(t, RayOccluded(cameraPos, mgl64.Vec3{0, 0, 2 * DefaultRadius}, DefaultRadius, DefaultRayEpsilon))
}

func TestVisibilityTest_RaycastOnlyRejectsWhatFacingAccepts(t *testing.T) {
	cameraPos := mgl64.Vec3{0, 0, 200}
	// accepted by a permissive facing test, hidden behind the limb
	behind := mgl64.Vec3{0, 0, -DefaultRadius}

	loose := VisibilityTest{Radius: DefaultRadius, Threshold: -2}
	assert.True(t, loose.Visible(behind, cameraPos))

	loose.Raycast = true
	loose.RayEpsilon = DefaultRayEpsilon
	assert.False(t, loose.Visible(behind, cameraPos))
}
