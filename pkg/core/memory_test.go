package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2023, time.June, 15))
	require.NoError(t, err)
	assert.Equal(t, `"2023-06-15"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2022-08-10"`), &d))
	assert.Equal(t, NewDate(2022, time.August, 10), d)
}

func TestDate_UnmarshalEmpty(t *testing.T) {
	for _, in := range []string{`null`, `""`} {
		d := NewDate(2024, time.January, 20)
		require.NoError(t, json.Unmarshal([]byte(in), &d), in)
		assert.True(t, d.IsZero(), in)
		assert.Equal(t, "", d.String())
	}
}

func TestDate_UnmarshalInvalid(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"15/06/2023"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20230615`), &d))
}

func TestParseDate_TrimsSpace(t *testing.T) {
	d, err := ParseDate(" 2024-07-01 ")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.July, 1), d)
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	d := DateOf(time.Date(2024, time.March, 3, 23, 30, 0, 0, loc))
	assert.Equal(t, "2024-03-03", d.String())
}

func TestMemory_CoverPhoto(t *testing.T) {
	assert.Equal(t, "", Memory{}.CoverPhoto())
	m := Memory{Photos: []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}}
	assert.Equal(t, "https://example.com/a.jpg", m.CoverPhoto())
}

func TestEnrichedData_OmitsMissingDate(t *testing.T) {
	b, err := json.Marshal(EnrichedData{LocationName: "上海外滩"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"date"`)
}

func TestMarkerSnapshot_Marker(t *testing.T) {
	var empty *MarkerSnapshot
	_, ok := empty.Marker("1")
	assert.False(t, ok)

	s := &MarkerSnapshot{Frame: 3, Markers: []MarkerDescriptor{{ID: "1", Visible: true}, {ID: "2"}}}
	m, ok := s.Marker("2")
	require.True(t, ok)
	assert.False(t, m.Visible)
	_, ok = s.Marker("9")
	assert.False(t, ok)
}

func TestFlightPath_JSON(t *testing.T) {
	b, err := json.Marshal(FlightPath{FromID: "1", ToID: "2", Points: []mgl64.Vec3{{1, 0, 0}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"1","to":"2","points":[[1,0,0]],"distance":0}`, string(b))
}
