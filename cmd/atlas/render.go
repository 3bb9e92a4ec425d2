package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/dispatcher"
	"github.com/littleexplorer/atlas/internal/globe"
	"github.com/littleexplorer/atlas/internal/influx"
	"github.com/littleexplorer/atlas/internal/logging"
	"github.com/littleexplorer/atlas/internal/monitor"
	"github.com/littleexplorer/atlas/pkg/core"

	"github.com/spf13/viper"
)

func globeConfig(cfg config.GlobeConfig) globe.Config {
	return globe.Config{
		Radius:             cfg.Radius,
		OcclusionThreshold: cfg.OcclusionThreshold,
		Raycast:            cfg.Raycast,
		FlyToStep:          cfg.FlyToStep,
		FocusDistance:      cfg.FocusDistance,
		ArcSegments:        cfg.ArcSegments,
		ArcLift:            cfg.ArcLift,
		AutoRotateSpeed:    cfg.AutoRotateSpeed,
		MinDistance:        cfg.MinDistance,
		MaxDistance:        cfg.MaxDistance,
		FrameRate:          cfg.FrameRate,
		Viewport:           globe.Viewport{Width: cfg.Width, Height: cfg.Height},
	}
}

func runRender(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("render")
	frames := fs.Int("frames", 0, "frames to render; 0 runs until interrupted")
	selectID := fs.String("select", "", "memory to fly to")
	interactive := fs.Bool("interactive", false, "read control commands from stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *frames < 0 {
		return fmt.Errorf("%w: frames must not be negative", errUsage)
	}

	presenter := newJSONLinesPresenter(out)
	gctx, err := globe.NewContext(globeConfig(config.GetGlobeConfig()),
		globe.WithPresenter(presenter),
		globe.WithDisposer(presenter),
		globe.WithLogger(Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create render context: %w", err)
	}
	defer gctx.Close()

	a.journal.OnChange(func(memories []core.Memory) {
		gctx.SetMemories(memories)
	})
	gctx.SetMemories(a.journal.Memories())

	if *selectID != "" {
		if err := a.journal.Select(*selectID); err != nil {
			return err
		}
		gctx.Select(*selectID)
	}

	mon, closeTelemetry := startMonitor(ctx, gctx, a.storageType)
	defer closeTelemetry()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	if *interactive {
		controls, err := dispatcher.New(Logger)
		if err != nil {
			return err
		}
		defer controls.Close()
		registerControls(ctx, controls, a, gctx, stop)
		go func() {
			if err := readControls(ctx, a.in, controls); err != nil {
				Logger.Error("Failed to read control commands", "error", err)
			}
		}()
	}

	if *frames > 0 {
		err = renderFrames(ctx, gctx, *frames, *interactive)
	} else {
		err = gctx.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	mon.Stop()
	if _, sampleErr := mon.Sample(context.Background(), time.Now()); sampleErr != nil {
		Logger.Error("Failed to record final frame sample", "error", sampleErr)
	}

	if err != nil {
		return err
	}
	if err := gctx.Close(); err != nil {
		return err
	}
	return presenter.Err()
}

// renderFrames runs n frames, at the configured frame rate when paced and as fast as possible otherwise.
// Frames skipped for an unusable viewport still count.
func renderFrames(ctx context.Context, gctx *globe.Context, n int, paced bool) error {
	var tick <-chan time.Time
	if paced {
		rate := config.GetGlobeConfig().FrameRate
		if rate <= 0 {
			rate = globe.DefaultFrameRate
		}
		ticker := time.NewTicker(time.Second / time.Duration(rate))
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; i < n; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		if _, err := gctx.Frame(); err != nil {
			if errors.Is(err, globe.ErrUninitializedRenderContext) {
				Logger.Debug("frame skipped", "error", err)
				continue
			}
			return fmt.Errorf("frame failed: %w", err)
		}
	}
	return nil
}

// startMonitor samples the frame loop into InfluxDB and the status file while rendering.
func startMonitor(ctx context.Context, gctx *globe.Context, storageType string) (*monitor.Service, func()) {
	monCfg := config.GetMonitorConfig()
	deps := monitor.Dependencies{
		Source:     gctx,
		LogManager: SlogManager,
		Interval:   monCfg.Interval,
		StatusFile: monCfg.StatusFile,
		Tags:       map[string]string{"storage": storageType},
	}

	var im *influx.Manager
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx_backup.%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405")))
		im = influx.NewManager(logging.NewZerolog(os.Stderr, logLevel()), influxCfg, backupPath)
		if err := im.Connect(ctx); err != nil {
			Logger.Error("Failed to set up InfluxDB", "error", err)
			im = nil
		} else {
			deps.Influx = im
		}
	}

	mon := monitor.NewService(deps)
	if err := mon.Start(ctx); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
	}
	return mon, func() {
		if im != nil {
			if err := im.Close(); err != nil {
				Logger.Error("Failed to close InfluxDB", "error", err)
			}
		}
	}
}
