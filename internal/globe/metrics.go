package globe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/littleexplorer/atlas/internal/globe"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	rendered metric.Int64Counter
	skipped  metric.Int64Counter
	arcsLive metric.Int64ObservableGauge

	registration metric.Registration
}

// newInstruments creates the frame counters and the live arc gauge.
// Uses the global OTel meter, which is a no-op unless a provider was installed.
func newInstruments(live func() int) (*instruments, error) {
	m := meter()
	ins := &instruments{}

	var err error
	ins.rendered, err = m.Int64Counter(
		"globe.frames.rendered",
		metric.WithDescription("Frames that published a marker snapshot"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rendered counter: %w", err)
	}

	ins.skipped, err = m.Int64Counter(
		"globe.frames.skipped",
		metric.WithDescription("Frames skipped because the render context was not ready"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	ins.arcsLive, err = m.Int64ObservableGauge(
		"globe.arcs.live",
		metric.WithDescription("Flight-path arcs currently installed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating arcs gauge: %w", err)
	}

	ins.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(ins.arcsLive, int64(live()))
			return nil
		},
		ins.arcsLive,
	)
	if err != nil {
		return nil, fmt.Errorf("registering arcs callback: %w", err)
	}

	return ins, nil
}

func (ins *instruments) unregister() error {
	if ins.registration == nil {
		return nil
	}
	return ins.registration.Unregister()
}
