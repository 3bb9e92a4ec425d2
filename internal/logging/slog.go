package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// Graylog sink, set with SetGraylog before Setup
	graylog io.Writer

	// Dynamic state callbacks
	GetSelectedMemory func() string
	GetMemoryCount    func() int
	GetStorageType    func() string
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetGraylog adds a GELF writer to the handlers built by the next Setup. Nil removes it.
func (m *SlogManager) SetGraylog(w io.Writer) {
	m.graylog = w
}

// Setup initializes the logging system with file and optional OTel output.
// Console output is used only when no file is given.
// If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	// Graylog gets one JSON document per record
	if m.graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(m.graylog, handlerOpts))
	}

	// OTel handler (if provider is available)
	if provider != nil {
		otelHandler := otelslog.NewHandler("atlas", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	m.logger = slog.New(newStateHandler(newFanout(handlers...), m.journalState))
	m.logger.Info("Logging initialized", "level", level)
}

func (m *SlogManager) journalState() []slog.Attr {
	var attrs []slog.Attr
	if m.GetSelectedMemory != nil {
		if id := m.GetSelectedMemory(); id != "" {
			attrs = append(attrs, slog.String("selected", id))
		}
	}
	if m.GetMemoryCount != nil {
		attrs = append(attrs, slog.Int("count", m.GetMemoryCount()))
	}
	if m.GetStorageType != nil {
		attrs = append(attrs, slog.String("storage", m.GetStorageType()))
	}
	return attrs
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Log writes msg at a level given by name, tagged with the component that produced it.
// Unknown level names log at info. It is a no-op before Setup.
func (m *SlogManager) Log(level, component, msg string, args ...any) {
	if m.logger == nil {
		return
	}
	args = append([]any{"component", component}, args...)
	m.logger.Log(context.Background(), parseLevel(level), msg, args...)
}
