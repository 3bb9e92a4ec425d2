// internal/enrich/metrics.go
package enrich

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/littleexplorer/atlas/internal/enrich"

func newRequestCounter() (metric.Int64Counter, error) {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"enrich.requests",
		metric.WithDescription("Enrichment calls by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}
	return counter, nil
}
