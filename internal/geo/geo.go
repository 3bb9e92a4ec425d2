package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/littleexplorer/atlas/pkg/core"
)

// GLOBE POINTS
// Every call site that places something on the globe (markers, flight-path endpoints, fly-to targets)
// goes through SpherePoint so they share one axis convention:
// polar angle from +Y, azimuth measured from -X towards +Z, offset by 180 degrees of longitude.

// ErrInvalidCoordinate is returned when a latitude or longitude is outside its valid range
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate checks lat is within [-90,90] and lng within [-180,180].
func Validate(c core.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinate, c.Lng)
	}
	return nil
}

// SphereAngles converts coordinates to the polar angle phi and azimuth theta, in radians.
func SphereAngles(c core.Coordinates) (phi, theta float64) {
	phi = mgl64.DegToRad(90 - c.Lat)
	theta = mgl64.DegToRad(c.Lng + 180)
	return phi, theta
}

// SpherePoint returns the point at c on a sphere of the given radius centered at the origin.
func SpherePoint(c core.Coordinates, radius float64) mgl64.Vec3 {
	phi, theta := SphereAngles(c)
	sinPhi := math.Sin(phi)
	return mgl64.Vec3{
		-radius * sinPhi * math.Cos(theta),
		radius * math.Cos(phi),
		radius * sinPhi * math.Sin(theta),
	}
}

// SurfaceCoordinates is the inverse of SpherePoint. The radius of p is ignored.
// Longitude is reported as 0 at the poles.
func SurfaceCoordinates(p mgl64.Vec3) core.Coordinates {
	r := p.Len()
	if r == 0 {
		return core.Coordinates{}
	}
	phi := math.Acos(mgl64.Clamp(p.Y()/r, -1, 1))
	lat := 90 - mgl64.RadToDeg(phi)

	horizontal := math.Hypot(p.X(), p.Z())
	if horizontal < r*1e-12 {
		return core.Coordinates{Lat: lat, Lng: 0}
	}
	lng := mgl64.RadToDeg(math.Atan2(p.Z(), -p.X())) - 180
	if lng < -180 {
		lng += 360
	}
	return core.Coordinates{Lat: lat, Lng: lng}
}

// CentralAngle returns the angle in radians subtended at the sphere center by a and b.
func CentralAngle(a, b core.Coordinates) float64 {
	// haversine is stable for small separations
	lat1, lat2 := mgl64.DegToRad(a.Lat), mgl64.DegToRad(b.Lat)
	dLat := lat2 - lat1
	dLng := mgl64.DegToRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Sqrt(mgl64.Clamp(h, 0, 1)))
}

// GreatCircleDistance is the arc length between a and b on a sphere of the given radius.
func GreatCircleDistance(a, b core.Coordinates, radius float64) float64 {
	return CentralAngle(a, b) * radius
}

// MaxMercatorLatitude is the latitude at which EPSG:3857 becomes square; beyond it the projection diverges.
const MaxMercatorLatitude = 85.05112878

// Point3857 converts WGS84 coordinates into a Web Mercator point, clamping latitude to MaxMercatorLatitude.
// Stored geometries use EPSG:3857 because SQLite has no spatial awareness and WKB round-trips cleanly.
func Point3857(c core.Coordinates) (geom.Point, error) {
	if err := Validate(c); err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	lat := mgl64.Clamp(c.Lat, -MaxMercatorLatitude, MaxMercatorLatitude)
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(c.Lng, lat, 0)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}

// Point4326 builds a lon/lat point.
func Point4326(c core.Coordinates) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: c.Lng, Y: c.Lat},
		Type: geom.DimXY,
	})
}

// Coordinates3857 converts a Web Mercator point back to WGS84. Latitudes stored beyond
// MaxMercatorLatitude come back clamped.
func Coordinates3857(p geom.Point) (core.Coordinates, bool) {
	coords, ok := p.Coordinates()
	if !ok {
		return core.Coordinates{}, false
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lng, lat, _ := f(coords.X, coords.Y, 0)
	return core.Coordinates{Lat: lat, Lng: lng}, true
}
