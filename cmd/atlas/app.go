package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/littleexplorer/atlas/internal/attach"
	"github.com/littleexplorer/atlas/internal/cache"
	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/enrich"
	"github.com/littleexplorer/atlas/internal/journal"
	"github.com/littleexplorer/atlas/internal/logging"
	intOtel "github.com/littleexplorer/atlas/internal/otel"
	"github.com/littleexplorer/atlas/internal/storage"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// app holds everything one command invocation needs
type app struct {
	in          io.Reader
	storageType string
	backend     storage.Backend
	journal     *journal.Journal
	attacher    *attach.Attacher
	enrichCache *cache.EnrichmentCache
	cachePath   string

	logFile *os.File
	graylog *gelf.Writer
}

func parseGlobalFlags(args []string) (configDir string, rest []string, err error) {
	fs := pflag.NewFlagSet("atlas", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "override logLevel")
	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}
	if err := viper.BindPFlag("logLevelOverride", fs.Lookup("log-level")); err != nil {
		return "", nil, err
	}
	return configDir, fs.Args(), nil
}

func newApp(ctx context.Context, configDir string, in io.Reader, errOut io.Writer) (*app, error) {
	a := &app{in: in}

	// Initialize slog manager with initial config
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(errOut, "warn", nil)
	Logger = SlogManager.Logger()

	// load config
	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	a.setupLogging(errOut)

	backend, storageType, err := createStorageBackend(config.GetStorageConfig(), config.GetDBConfig())
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageType, err)
	}
	a.backend = backend
	a.storageType = storageType
	Logger.Info("Storage backend initialized", "type", storageType)

	a.journal = journal.New(backend, journal.WithLogger(Logger))
	if err := a.journal.Load(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}

	// Set up dynamic state callbacks for logging
	SlogManager.GetSelectedMemory = a.journal.SelectedID
	SlogManager.GetMemoryCount = a.journal.Len
	SlogManager.GetStorageType = func() string { return a.storageType }

	a.attacher = attach.New(config.GetAttachConfig().MaxBytes)
	enrichCfg := config.GetEnrichConfig()
	a.enrichCache = cache.NewEnrichmentCache(enrichCfg.CacheTTL)
	if enrichCfg.CacheFile != "" {
		a.cachePath = enrichCfg.CacheFile
		if !filepath.IsAbs(a.cachePath) {
			a.cachePath = filepath.Join(configDir, a.cachePath)
		}
		if err := a.enrichCache.LoadFile(a.cachePath); err != nil {
			Logger.Warn("Ignoring unreadable enrichment cache", "path", a.cachePath, "error", err)
		}
	}
	return a, nil
}

func logLevel() string {
	if lvl := viper.GetString("logLevelOverride"); lvl != "" {
		return lvl
	}
	return viper.GetString("logLevel")
}

// setupLogging moves logging from stderr to the session log file, with Graylog and OTel when enabled.
func (a *app) setupLogging(errOut io.Writer) {
	var logOut io.Writer = errOut

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	} else {
		logPath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			Logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
		} else {
			a.logFile = f
			logOut = f
		}
	}

	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(viper.GetString("graylog.address"), AppName)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			a.graylog = w
			SlogManager.SetGraylog(w)
		}
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      logOut,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logOut, logLevel(), otelLogProvider)
	Logger = SlogManager.Logger()
}

// enricher builds the enrichment client on first use, so commands that never call it run without an API key.
func (a *app) enricher() (*enrich.Client, error) {
	return enrich.NewFromConfig(config.GetEnrichConfig(),
		enrich.WithCache(a.enrichCache),
		enrich.WithLogger(Logger),
	)
}

// Close saves the enrichment cache and releases storage, telemetry and log files.
func (a *app) Close() {
	if a.cachePath != "" && a.enrichCache.Len() > 0 {
		if err := a.enrichCache.SaveFile(a.cachePath); err != nil {
			Logger.Warn("Failed to save enrichment cache", "path", a.cachePath, "error", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(context.Background()); err != nil {
			Logger.Error("Failed to shut down OTel provider", "error", err)
		}
		OTelProvider = nil
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// userMessage turns known failures into something a person can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, enrich.ErrEnrichmentUnavailable):
		return "the AI service could not be reached, please try again"
	case errors.Is(err, enrich.ErrNoStructuredData):
		return "the AI service could not find a place in that story, please try again or add more detail"
	case errors.Is(err, enrich.ErrEmptyInput):
		return "tell me a story first"
	}
	return err.Error()
}
