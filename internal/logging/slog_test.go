package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	// Capture stdout to verify nothing is written there
	origStdout := captureStdout(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&fileBuf, "info", nil)
	m.Logger().Info("hello file")

	stdout := origStdout()

	assert.Contains(t, fileBuf.String(), "hello file", "log should appear in file")
	// The "Logging initialized" message from Setup also goes to file, not stdout
	assert.Empty(t, stdout, "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	origStdout := captureStdout(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("hello console")

	stdout := origStdout()

	assert.Contains(t, stdout, "hello console", "log should appear on stdout")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "debug", nil)

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewSlogManager()

	m.Setup(&buf1, "info", nil)
	m.Logger().Info("first")

	m.Setup(&buf2, "info", nil)
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second", "old file should not receive new logs")
	assert.Contains(t, buf2.String(), "second")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	logger := m.Logger()
	assert.Equal(t, slog.Default(), logger)
}

func TestFlush_NilProvider(t *testing.T) {
	m := NewSlogManager()
	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

func TestLog_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "level=DEBUG"},
		{"INFO", "level=INFO"},
		{"warn", "level=WARN"},
		{"error", "level=ERROR"},
		{"verbose", "level=INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.Log(tt.level, "sqlite", "backup written", "path", "atlas.db")

			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "component=sqlite")
			assert.Contains(t, out, "path=atlas.db")
		})
	}
}

func TestLog_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.NotPanics(t, func() { m.Log("info", "gorm", "ignored") })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestFanout_DeliversToEverySink(t *testing.T) {
	var file, gelfBuf bytes.Buffer
	f := newFanout(
		slog.NewTextHandler(&file, nil),
		nil,
		slog.NewJSONHandler(&gelfBuf, nil),
	)
	require.Len(t, f, 2)

	slog.New(f).Info("frame rendered", "frame", 7)
	assert.Contains(t, file.String(), "frame=7")
	assert.Contains(t, gelfBuf.String(), `"frame":7`)
}

func TestFanout_EnabledIfAnySinkIs(t *testing.T) {
	ctx := context.Background()
	info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, newFanout(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, newFanout(info, debug).Enabled(ctx, slog.LevelDebug))
	assert.False(t, newFanout().Enabled(ctx, slog.LevelError))
}

func TestFanout_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(slog.NewTextHandler(&buf, nil))

	slog.New(f).With("storage", "memory").WithGroup("arc").Info("disposed", "from", "2")

	out := buf.String()
	assert.Contains(t, out, "storage=memory")
	assert.Contains(t, out, "arc.from=2")
	assert.Equal(t, f, f.WithGroup(""))
}

func TestFlush_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider() // no exporter, just validates non-nil path
	m := NewSlogManager()

	var buf bytes.Buffer
	m.Setup(&buf, "info", provider)

	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

type failingSink struct{ slog.Handler }

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }

func (failingSink) Handle(context.Context, slog.Record) error {
	return errors.New("gelf unreachable")
}

func TestFanout_SinkFailureReachesOthers(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(failingSink{}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "arc leak check", 0)
	err := f.Handle(context.Background(), r)

	assert.EqualError(t, err, "gelf unreachable")
	assert.Contains(t, buf.String(), "arc leak check")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
}

// captureStdout redirects os.Stdout to a pipe and returns a function
// that restores stdout and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	origStdout := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = origStdout
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}

func TestSetup_JournalState(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.GetSelectedMemory = func() string { return "mem-1" }
	m.GetMemoryCount = func() int { return 3 }
	m.GetStorageType = func() string { return "sqlite" }
	m.Setup(&buf, "info", nil)

	m.Logger().Info("with state")

	out := buf.String()
	assert.Contains(t, out, "journal.selected=mem-1")
	assert.Contains(t, out, "journal.count=3")
	assert.Contains(t, out, "journal.storage=sqlite")
}

func TestSetup_JournalState_NoSelection(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.GetSelectedMemory = func() string { return "" }
	m.Setup(&buf, "info", nil)

	m.Logger().Info("nothing selected")
	assert.NotContains(t, buf.String(), "journal.")
}

func TestSetup_GraylogReceivesJSON(t *testing.T) {
	var file, gelfBuf bytes.Buffer
	m := NewSlogManager()
	m.SetGraylog(&gelfBuf)
	m.Setup(&file, "info", nil)

	m.Logger().Info("to graylog", "id", "42")

	assert.Contains(t, file.String(), "to graylog")
	assert.Contains(t, gelfBuf.String(), `"msg":"to graylog"`)
	assert.Contains(t, gelfBuf.String(), `"id":"42"`)
}

func TestStateHandler_EvaluatedPerRecord(t *testing.T) {
	var buf bytes.Buffer
	count := 0
	h := newStateHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		count++
		return []slog.Attr{slog.Int("count", count)}
	})

	logger := slog.New(h).With("cmd", "render")
	logger.Info("first")
	logger.Info("second")

	out := buf.String()
	assert.Contains(t, out, "journal.count=1")
	assert.Contains(t, out, "journal.count=2")
	assert.Contains(t, out, "cmd=render")
}

func TestStateHandler_NilState(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newStateHandler(slog.NewTextHandler(&buf, nil), nil)).Info("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.NotContains(t, buf.String(), "journal")
}
