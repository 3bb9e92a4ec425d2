package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/littleexplorer/atlas/internal/globe"
	"github.com/littleexplorer/atlas/internal/influx"
	"github.com/littleexplorer/atlas/internal/logging"
)

// Measurement is the InfluxDB measurement frame samples are written to
const Measurement = "globe_frames"

// StatsSource is anything that reports frame loop counters
type StatsSource interface {
	Stats() globe.FrameStats
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source     StatsSource
	Influx     *influx.Manager // optional
	LogManager *logging.SlogManager
	Interval   time.Duration
	StatusFile string            // optional; rewritten with the latest sample
	Tags       map[string]string // added to every point
}

// Status is one sample of the frame loop
type Status struct {
	Time     time.Time `json:"time"`
	Frame    uint64    `json:"frame"`
	Rendered uint64    `json:"rendered"`
	Skipped  int       `json:"skipped"`
	Visible  int       `json:"visible"`
	LiveArcs int       `json:"liveArcs"`
	FPS      float64   `json:"fps"` // rendered frames per second since the previous sample
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	last    Status
	samples int
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Samples returns how many samples were taken
func (s *Service) Samples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples
}

// Sample reads the frame counters once, writes them to every configured sink and returns them.
func (s *Service) Sample(ctx context.Context, now time.Time) (Status, error) {
	stats := s.deps.Source.Stats()
	status := Status{
		Time:     now,
		Frame:    stats.Frame,
		Rendered: stats.Rendered,
		Skipped:  stats.Skipped,
		Visible:  stats.Visible,
		LiveArcs: stats.LiveArcs,
	}

	s.mu.Lock()
	if s.samples > 0 && now.After(s.last.Time) && status.Rendered >= s.last.Rendered {
		status.FPS = float64(status.Rendered-s.last.Rendered) / now.Sub(s.last.Time).Seconds()
	}
	s.last = status
	s.samples++
	s.mu.Unlock()

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, status); err != nil {
			return status, err
		}
	}

	if s.deps.Influx != nil {
		point := influx.NewPoint(Measurement, s.deps.Tags, map[string]any{
			"frame":    int64(status.Frame),
			"rendered": int64(status.Rendered),
			"skipped":  status.Skipped,
			"visible":  status.Visible,
			"liveArcs": status.LiveArcs,
			"fps":      status.FPS,
		}, now)
		if err := s.deps.Influx.WritePoint(ctx, point); err != nil {
			return status, fmt.Errorf("writing frame sample: %w", err)
		}
	}

	return status, nil
}

func writeStatusFile(path string, status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				status, err := s.Sample(ctx, now)
				if err != nil {
					logger.Error("Error recording frame sample", "error", err)
					continue
				}
				logger.Debug("frame sample",
					"frame", status.Frame,
					"fps", status.FPS,
					"visible", status.Visible,
					"liveArcs", status.LiveArcs,
					"skipped", status.Skipped)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
