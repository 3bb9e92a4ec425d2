package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/logging"
	"github.com/littleexplorer/atlas/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const westLakeJSON = `{
  "locationName": "杭州西湖",
  "coordinates": {"lat": 30.2431, "lng": 120.1500},
  "date": "2023-10-02",
  "companions": ["妈妈"],
  "description": "我们坐船游西湖，看到了三潭印月。",
  "funFact": "一元人民币背面印的就是三潭印月！",
  "tags": ["湖泊", "杭州"]
}`

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gemini-2.5-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

type testEnv struct {
	dir       string
	configDir string
}

// newTestEnv writes a config that keeps every file under a temp dir.
func newTestEnv(t *testing.T, extra map[string]any) *testEnv {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := map[string]any{
		"logLevel": "debug",
		"logsDir":  filepath.Join(dir, "logs"),
		"storage": map[string]any{
			"type": "memory",
			"memory": map[string]any{
				"outputDir":      filepath.Join(dir, "journal"),
				"compressOutput": false,
			},
			"sqlite": map[string]any{"path": filepath.Join(dir, "atlas.db")},
		},
		"monitor": map[string]any{"interval": "1h"},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))
	return &testEnv{dir: dir, configDir: dir}
}

func (e *testEnv) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *testEnv) runWithInput(t *testing.T, input string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	viper.Reset()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"--config", e.configDir}, args...), strings.NewReader(input), &out, &errOut)
	return code, out.String(), errOut.String()
}

func enrichServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func enrichConfig(url string) map[string]any {
	return map[string]any{"enrich": map[string]any{"baseUrl": url, "apiKey": "test-key", "timeout": "5s"}}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestRun_NoCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "usage: atlas")
}

func TestRun_UnknownCommand(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, stderr := env.run(t, "fly")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "fly"`)
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"version"}, strings.NewReader(""), &out, io.Discard)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), CurrentVersion)
}

func TestList_SeedNewestFirst(t *testing.T) {
	env := newTestEnv(t, nil)
	code, stdout, stderr := env.run(t, "list")
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "西安兵马俑")
	assert.Contains(t, lines[1], "北京故宫")
	assert.Contains(t, lines[2], "上海外滩")
}

func TestShow(t *testing.T) {
	env := newTestEnv(t, nil)
	code, stdout, _ := env.run(t, "show", "2")
	require.Equal(t, 0, code)

	var m core.Memory
	require.NoError(t, json.Unmarshal([]byte(stdout), &m))
	assert.Equal(t, "上海外滩", m.LocationName)
	assert.Equal(t, "2022-08-10", m.Date.String())
}

func TestShow_Unknown(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, stderr := env.run(t, "show", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "memory nope not found")
}

func TestDelete_Persists(t *testing.T) {
	env := newTestEnv(t, nil)
	code, stdout, _ := env.run(t, "delete", "2")
	require.Equal(t, 0, code)
	assert.Equal(t, "deleted 2\n", stdout)

	_, err := os.Stat(filepath.Join(env.dir, "journal", "explorer_memories.json"))
	require.NoError(t, err)

	code, stdout, _ = env.run(t, "list")
	require.Equal(t, 0, code)
	assert.NotContains(t, stdout, "上海外滩")
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 2)
}

func TestDelete_Unknown(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, stderr := env.run(t, "delete", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "memory not found")
}

func TestPaths_Chronological(t *testing.T) {
	env := newTestEnv(t, nil)
	code, stdout, _ := env.run(t, "paths")
	require.Equal(t, 0, code)

	var paths []core.FlightPath
	require.NoError(t, json.Unmarshal([]byte(stdout), &paths))
	require.Len(t, paths, 2)
	assert.Equal(t, "2", paths[0].FromID)
	assert.Equal(t, "1", paths[0].ToID)
	assert.Equal(t, "1", paths[1].FromID)
	assert.Equal(t, "3", paths[1].ToID)
	assert.Len(t, paths[0].Points, 51)
}

func TestExport_GeoJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	code, stdout, _ := env.run(t, "export")
	require.Equal(t, 0, code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)

	counts := map[string]int{}
	for _, f := range fc.Features {
		counts[f.Geometry.Type]++
	}
	assert.Equal(t, 3, counts["Point"])
	assert.Equal(t, 2, counts["LineString"])
}

func TestEnrich_PrintsDraft(t *testing.T) {
	server := enrichServer(t, http.StatusOK, completionBody(westLakeJSON))
	env := newTestEnv(t, enrichConfig(server.URL))

	code, stdout, stderr := env.run(t, "enrich", "国庆节和妈妈去了西湖")
	require.Equal(t, 0, code, stderr)

	var draft core.EnrichedData
	require.NoError(t, json.Unmarshal([]byte(stdout), &draft))
	assert.Equal(t, "杭州西湖", draft.LocationName)
	require.NotNil(t, draft.Date)
	assert.Equal(t, "2023-10-02", draft.Date.String())
}

func TestEnrich_UnavailableIsRetryable(t *testing.T) {
	server := enrichServer(t, http.StatusServiceUnavailable, `{"error":"overloaded"}`)
	env := newTestEnv(t, enrichConfig(server.URL))

	code, _, stderr := env.run(t, "enrich", "去了西湖")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "please try again")
}

func TestEnrich_EmptyStory(t *testing.T) {
	server := enrichServer(t, http.StatusOK, completionBody(westLakeJSON))
	env := newTestEnv(t, enrichConfig(server.URL))

	code, _, stderr := env.run(t, "enrich", "   ")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "tell me a story first")
}

func TestEnrich_CacheSpansRuns(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody(westLakeJSON))
	}))
	t.Cleanup(server.Close)
	env := newTestEnv(t, enrichConfig(server.URL))

	code, _, stderr := env.run(t, "enrich", "国庆节和妈妈去了西湖")
	require.Equal(t, 0, code, stderr)
	_, err := os.Stat(filepath.Join(env.configDir, "atlas_enrich_cache.json"))
	require.NoError(t, err)

	code, stdout, stderr := env.run(t, "add", "国庆节和妈妈  去了西湖")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "杭州西湖")
	assert.Equal(t, int32(1), calls.Load(), "the second run reuses the saved draft")
}

func TestAdd_WithOverridesAndPhoto(t *testing.T) {
	server := enrichServer(t, http.StatusOK, completionBody(westLakeJSON))
	env := newTestEnv(t, enrichConfig(server.URL))
	photo := filepath.Join(env.dir, "boat.png")
	writePNG(t, photo)

	code, stdout, stderr := env.run(t, "add",
		"--photo", photo,
		"--date", "2023-10-03",
		"--with", "爸爸, 妈妈",
		"国庆节去了西湖")
	require.Equal(t, 0, code, stderr)

	var m core.Memory
	require.NoError(t, json.Unmarshal([]byte(stdout), &m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "杭州西湖", m.LocationName)
	assert.Equal(t, "2023-10-03", m.Date.String())
	assert.Equal(t, []string{"爸爸", "妈妈"}, m.Companions)
	require.Len(t, m.Photos, 1)
	assert.True(t, strings.HasPrefix(m.Photos[0], "data:image/png;base64,"))

	code, stdout, _ = env.run(t, "list")
	require.Equal(t, 0, code)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 4)
	assert.Contains(t, stdout, m.ID)
}

func TestAdd_RejectsNonImage(t *testing.T) {
	server := enrichServer(t, http.StatusOK, completionBody(westLakeJSON))
	env := newTestEnv(t, enrichConfig(server.URL))
	notes := filepath.Join(env.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("just text"), 0644))

	code, _, stderr := env.run(t, "add", "--photo", notes, "去了西湖")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not an image")
}

func TestAdd_BadDate(t *testing.T) {
	server := enrichServer(t, http.StatusOK, completionBody(westLakeJSON))
	env := newTestEnv(t, enrichConfig(server.URL))

	code, _, stderr := env.run(t, "add", "--date", "yesterday", "去了西湖")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid date")
}

func readLines(t *testing.T, s string) []line {
	t.Helper()
	var lines []line
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for sc.Scan() {
		var l line
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestRender_Frames(t *testing.T) {
	env := newTestEnv(t, nil)
	code, stdout, stderr := env.run(t, "render", "--frames", "3", "--select", "3")
	require.Equal(t, 0, code, stderr)

	lines := readLines(t, stdout)
	counts := map[string]int{}
	for _, l := range lines {
		counts[l.Type]++
	}
	assert.Equal(t, 1, counts[lineFlightPaths])
	assert.Equal(t, 3, counts[lineMarkers])
	assert.Equal(t, 2, counts[lineDispose])

	require.NotEmpty(t, lines)
	assert.Equal(t, lineFlightPaths, lines[0].Type)
	assert.Len(t, lines[0].Paths, 2)
	assert.Len(t, lines[1].Markers, 3)
}

func TestRender_StatusFile(t *testing.T) {
	status := filepath.Join(t.TempDir(), "status.json")
	env := newTestEnv(t, map[string]any{
		"monitor": map[string]any{"interval": "1h", "statusFile": status},
	})
	code, _, stderr := env.run(t, "render", "--frames", "2")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(status)
	require.NoError(t, err)
	var s struct {
		Rendered int `json:"rendered"`
		LiveArcs int `json:"liveArcs"`
	}
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, 2, s.Rendered)
	assert.Equal(t, 2, s.LiveArcs)
}

func TestRender_UnknownSelection(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, stderr := env.run(t, "render", "--frames", "1", "--select", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "memory not found")
}

func TestRender_NegativeFrames(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, stderr := env.run(t, "render", "--frames", "-1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "frames must not be negative")
}

func TestRender_InteractiveQuit(t *testing.T) {
	env := newTestEnv(t, nil)
	done := make(chan int, 1)
	go func() {
		code, _, _ := env.runWithInput(t, "# stop right away\nquit\n", "render", "--interactive")
		done <- code
	}()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("render did not stop on quit")
	}
}

func TestBackup_SQLite(t *testing.T) {
	env := newTestEnv(t, nil)
	env2 := newTestEnv(t, map[string]any{
		"storage": map[string]any{
			"type":   "sqlite",
			"sqlite": map[string]any{"path": filepath.Join(env.dir, "atlas.db")},
		},
	})

	code, _, stderr := env2.run(t, "delete", "1")
	require.Equal(t, 0, code, stderr)

	out := filepath.Join(env.dir, "backup.db")
	code, stdout, stderr := env2.run(t, "backup", out)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "backed up to")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	code, stdout, _ = env2.run(t, "list")
	require.Equal(t, 0, code)
	assert.NotContains(t, stdout, "北京故宫")
}

func TestBackup_UnsupportedForMemory(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, stderr := env.run(t, "backup", filepath.Join(env.dir, "out.db"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not supported by memory storage")
}

func TestCreateStorageBackend_UnknownType(t *testing.T) {
	_, _, err := createStorageBackend(config.StorageConfig{Type: "redis"}, config.DBConfig{})
	assert.ErrorContains(t, err, `unknown storage type "redis"`)
}

func TestCreateStorageBackend_PostgresFallsBackToSQLite(t *testing.T) {
	SlogManager = logging.NewSlogManager()
	Logger = SlogManager.Logger()
	dir := t.TempDir()
	backend, storageType, err := createStorageBackend(config.StorageConfig{
		Type:   "postgres",
		Key:    "explorer_memories",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "fallback.db")},
	}, config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "atlas"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", storageType)

	require.NoError(t, backend.Init())
	require.NoError(t, backend.Save(context.Background(), []core.Memory{{
		ID: "a", LocationName: "杭州西湖", Coordinates: core.Coordinates{Lat: 30.2, Lng: 120.1},
		Date: core.NewDate(2023, 10, 2), Companions: []string{}, Photos: []string{}, Tags: []string{},
	}}))
	loaded, err := backend.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded[0].ID)
	require.NoError(t, backend.Close())
}

func TestJSONLinesPresenter_Counts(t *testing.T) {
	var buf bytes.Buffer
	p := newJSONLinesPresenter(&buf)
	p.PresentFlightPaths([]core.FlightPath{{FromID: "a", ToID: "b"}})
	p.PresentMarkers(&core.MarkerSnapshot{Frame: 1, Markers: []core.MarkerDescriptor{{ID: "a", Visible: true}}})
	p.DisposeArc(core.FlightPath{FromID: "a", ToID: "b"})

	require.NoError(t, p.Err())
	assert.Equal(t, 1, p.snapshots)
	assert.Equal(t, 1, p.installed)
	assert.Equal(t, 1, p.disposed)

	lines := readLines(t, buf.String())
	require.Len(t, lines, 3)
	assert.Equal(t, "b", lines[2].To)
}
