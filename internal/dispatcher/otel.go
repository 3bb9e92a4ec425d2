package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/littleexplorer/atlas/internal/dispatcher"

type instruments struct {
	queueDepth metric.Int64ObservableGauge
	handled    metric.Int64Counter
	rejected   metric.Int64Counter
	duration   metric.Float64Histogram
}

func newInstruments(depths func(observe func(command string, depth int))) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	ins := &instruments{}

	var err error
	if ins.queueDepth, err = m.Int64ObservableGauge("atlas.commands.queue_depth",
		metric.WithDescription("Events waiting in a buffered command queue")); err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		depths(func(command string, depth int) {
			o.ObserveInt64(ins.queueDepth, int64(depth), metric.WithAttributes(attribute.String("command", command)))
		})
		return nil
	}, ins.queueDepth); err != nil {
		return nil, fmt.Errorf("registering queue depth callback: %w", err)
	}
	if ins.handled, err = m.Int64Counter("atlas.commands.handled",
		metric.WithDescription("Buffered events handled by their worker")); err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}
	if ins.rejected, err = m.Int64Counter("atlas.commands.rejected",
		metric.WithDescription("Events rejected because their queue was full")); err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	if ins.duration, err = m.Float64Histogram("atlas.commands.duration",
		metric.WithDescription("Time spent in logged command handlers"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return ins, nil
}

func (i *instruments) processed(command string) {
	i.handled.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (i *instruments) dropped(command string) {
	i.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (i *instruments) took(command string, d time.Duration, err error) {
	i.duration.Record(context.Background(), float64(d.Microseconds())/1000,
		metric.WithAttributes(attribute.String("command", command), attribute.Bool("failed", err != nil)))
}
