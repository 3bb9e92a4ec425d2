package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/littleexplorer/atlas/pkg/core"
)

// PathGeometry converts a flight path sampled on the globe into lon/lat geometry.
// A path that crosses the antimeridian is cut there and returned as a MultiLineString
// whose parts each stay within [-180, 180]. A path whose samples all share one
// position comes back as a Point.
func PathGeometry(path core.FlightPath) (geom.Geometry, error) {
	if len(path.Points) < 2 {
		return geom.Geometry{}, fmt.Errorf("flight path must have at least 2 points, got %d", len(path.Points))
	}

	var parts [][]geom.XY
	prev := surfaceXY(path.Points[0])
	current := []geom.XY{prev}
	for _, p := range path.Points[1:] {
		next := surfaceXY(p)
		if math.Abs(next.X-prev.X) > 180 {
			edge, lat := antimeridianCrossing(prev, next)
			current = appendDistinct(current, geom.XY{X: edge, Y: lat})
			parts = append(parts, current)
			current = []geom.XY{{X: -edge, Y: lat}}
		}
		current = appendDistinct(current, next)
		prev = next
	}
	parts = append(parts, current)

	lines := make([]geom.LineString, 0, len(parts))
	for _, part := range parts {
		if len(part) < 2 {
			continue
		}
		flat := make([]float64, 0, len(part)*2)
		for _, xy := range part {
			flat = append(flat, xy.X, xy.Y)
		}
		ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
		if err != nil {
			return geom.Geometry{}, fmt.Errorf("failed to build line string: %w", err)
		}
		lines = append(lines, ls)
	}

	switch len(lines) {
	case 0:
		pt, err := Point4326(SurfaceCoordinates(path.Points[0]))
		if err != nil {
			return geom.Geometry{}, err
		}
		return pt.AsGeometry(), nil
	case 1:
		return lines[0].AsGeometry(), nil
	default:
		return geom.NewMultiLineString(lines).AsGeometry(), nil
	}
}

func surfaceXY(p mgl64.Vec3) geom.XY {
	c := SurfaceCoordinates(p)
	return geom.XY{X: c.Lng, Y: c.Lat}
}

// antimeridianCrossing returns the edge longitude (180 or -180) on prev's side and the
// latitude where the short way from prev to next meets it.
func antimeridianCrossing(prev, next geom.XY) (edge, lat float64) {
	edge, unwrapped := 180.0, next.X+360
	if prev.X < 0 {
		edge, unwrapped = -180, next.X-360
	}
	f := 0.0
	if d := unwrapped - prev.X; d != 0 {
		f = (edge - prev.X) / d
	}
	return edge, prev.Y + f*(next.Y-prev.Y)
}

func appendDistinct(xys []geom.XY, xy geom.XY) []geom.XY {
	if n := len(xys); n > 0 && xys[n-1] == xy {
		return xys
	}
	return append(xys, xy)
}

// FeatureCollection builds a GeoJSON FeatureCollection with one Point per memory
// and one line feature per flight path.
func FeatureCollection(memories []core.Memory, paths []core.FlightPath) (geom.GeoJSONFeatureCollection, error) {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(memories)+len(paths))

	for _, m := range memories {
		if err := Validate(m.Coordinates); err != nil {
			return nil, fmt.Errorf("memory %s: %w", m.ID, err)
		}
		pt, err := Point4326(m.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("memory %s: %w", m.ID, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: pt.AsGeometry(),
			ID:       m.ID,
			Properties: map[string]interface{}{
				"kind":         "memory",
				"locationName": m.LocationName,
				"date":         m.Date.String(),
				"tags":         m.Tags,
			},
		})
	}

	for i, p := range paths {
		g, err := PathGeometry(p)
		if err != nil {
			return nil, fmt.Errorf("flight path %d: %w", i, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: g,
			ID:       fmt.Sprintf("%s->%s", p.FromID, p.ToID),
			Properties: map[string]interface{}{
				"kind":     "flightPath",
				"from":     p.FromID,
				"to":       p.ToID,
				"distance": p.Distance,
			},
		})
	}

	return fc, nil
}

// MarshalFeatureCollection renders FeatureCollection as indented JSON.
func MarshalFeatureCollection(memories []core.Memory, paths []core.FlightPath) ([]byte, error) {
	fc, err := FeatureCollection(memories, paths)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feature collection: %w", err)
	}
	var out json.RawMessage = raw
	return json.MarshalIndent(out, "", "  ")
}
