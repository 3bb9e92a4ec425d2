package geo

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littleexplorer/atlas/pkg/core"
)

func TestPathGeometry_Valid(t *testing.T) {
	a := core.Coordinates{Lat: 31.2304, Lng: 121.4737}
	b := core.Coordinates{Lat: 39.9163, Lng: 116.3972}
	path := core.FlightPath{
		FromID: "2",
		ToID:   "1",
		Points: []mgl64.Vec3{SpherePoint(a, 50), SpherePoint(b, 50)},
	}

	g, err := PathGeometry(path)
	require.NoError(t, err)
	require.True(t, g.IsLineString())

	seq := g.MustAsLineString().Coordinates()
	require.Equal(t, 2, seq.Length())
	assert.InDelta(t, a.Lng, seq.GetXY(0).X, 1e-9)
	assert.InDelta(t, a.Lat, seq.GetXY(0).Y, 1e-9)
	assert.InDelta(t, b.Lng, seq.GetXY(1).X, 1e-9)
	assert.InDelta(t, b.Lat, seq.GetXY(1).Y, 1e-9)
}

func TestPathGeometry_TooFewPoints(t *testing.T) {
	_, err := PathGeometry(core.FlightPath{Points: []mgl64.Vec3{{50, 0, 0}}})
	require.Error(t, err)
}

func TestPathGeometry_SplitsAtAntimeridian(t *testing.T) {
	a := core.Coordinates{Lat: 10, Lng: 170}
	b := core.Coordinates{Lat: 20, Lng: -170}
	path := core.FlightPath{Points: []mgl64.Vec3{SpherePoint(a, 50), SpherePoint(b, 50)}}

	g, err := PathGeometry(path)
	require.NoError(t, err)
	require.True(t, g.IsMultiLineString(), "got %s", g.Type())

	mls := g.MustAsMultiLineString()
	require.Equal(t, 2, mls.NumLineStrings())

	east := mls.LineStringN(0).Coordinates()
	require.Equal(t, 2, east.Length())
	assert.InDelta(t, 170, east.GetXY(0).X, 1e-9)
	assert.InDelta(t, 10, east.GetXY(0).Y, 1e-9)
	assert.InDelta(t, 180, east.GetXY(1).X, 1e-9)
	assert.InDelta(t, 15, east.GetXY(1).Y, 1e-9)

	west := mls.LineStringN(1).Coordinates()
	require.Equal(t, 2, west.Length())
	assert.InDelta(t, -180, west.GetXY(0).X, 1e-9)
	assert.InDelta(t, 15, west.GetXY(0).Y, 1e-9)
	assert.InDelta(t, -170, west.GetXY(1).X, 1e-9)
	assert.InDelta(t, 20, west.GetXY(1).Y, 1e-9)
}

func TestPathGeometry_SampledCrossingHasNoJump(t *testing.T) {
	var points []mgl64.Vec3
	for lng := 162.0; lng <= 202; lng += 5 {
		points = append(points, SpherePoint(core.Coordinates{Lat: 35, Lng: lng}, 50))
	}

	g, err := PathGeometry(core.FlightPath{Points: points})
	require.NoError(t, err)
	require.True(t, g.IsMultiLineString())

	mls := g.MustAsMultiLineString()
	require.Equal(t, 2, mls.NumLineStrings())
	total := 0
	for i := 0; i < mls.NumLineStrings(); i++ {
		seq := mls.LineStringN(i).Coordinates()
		total += seq.Length()
		for j := 1; j < seq.Length(); j++ {
			step := seq.GetXY(j).X - seq.GetXY(j-1).X
			assert.True(t, step > 0 && step <= 5+1e-9, "part %d step %d moved %f", i, j, step)
		}
	}
	// nine samples plus the two cut points
	assert.Equal(t, 11, total)
}

func TestPathGeometry_SamePlaceIsPoint(t *testing.T) {
	p := SpherePoint(core.Coordinates{Lat: 30.25, Lng: 120.16}, 50)

	g, err := PathGeometry(core.FlightPath{Points: []mgl64.Vec3{p, p, p}})
	require.NoError(t, err)
	require.True(t, g.IsPoint())
	xy, ok := g.MustAsPoint().XY()
	require.True(t, ok)
	assert.InDelta(t, 120.16, xy.X, 1e-9)
	assert.InDelta(t, 30.25, xy.Y, 1e-9)
}

func TestMarshalFeatureCollection(t *testing.T) {
	memories := []core.Memory{
		{ID: "1", LocationName: "北京故宫", Coordinates: core.Coordinates{Lat: 39.9163, Lng: 116.3972}, Date: core.NewDate(2023, 6, 15)},
		{ID: "2", LocationName: "上海外滩", Coordinates: core.Coordinates{Lat: 31.2304, Lng: 121.4737}, Date: core.NewDate(2022, 8, 10)},
	}
	paths := []core.FlightPath{{
		FromID: "2",
		ToID:   "1",
		Points: []mgl64.Vec3{
			SpherePoint(memories[1].Coordinates, 50),
			SpherePoint(memories[0].Coordinates, 50),
		},
	}}

	out, err := MarshalFeatureCollection(memories, paths)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 3)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.Equal(t, "2023-06-15", doc.Features[0].Properties["date"])
	assert.Equal(t, "LineString", doc.Features[2].Geometry.Type)
	assert.Equal(t, "flightPath", doc.Features[2].Properties["kind"])
}

func TestFeatureCollection_RejectsInvalidMemory(t *testing.T) {
	_, err := FeatureCollection([]core.Memory{{ID: "x", Coordinates: core.Coordinates{Lat: 120}}}, nil)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}
