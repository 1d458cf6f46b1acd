package redactor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/sdrshnv/deid/internal/classifier"
	deidotel "github.com/sdrshnv/deid/internal/otel"
)

const meterName = "github.com/sdrshnv/deid/internal/redactor"

var (
	entitiesCounter   metric.Int64Counter
	durationHistogram metric.Float64Histogram
	metricsOnce       sync.Once
	metricsRegistered bool
)

func initMetrics() {
	meter := otel.Meter(meterName)
	var err error
	entitiesCounter, err = meter.Int64Counter(
		"deid.entities.redacted",
		metric.WithDescription("Entities replaced by placeholders, by type"),
	)
	if err != nil {
		return
	}
	durationHistogram, err = meter.Float64Histogram(
		"deid.redact.duration",
		metric.WithDescription("Redaction run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}
	metricsRegistered = true
}

// RecordRedaction records the entities of one run by type and its duration.
func RecordRedaction(ctx context.Context, entities []classifier.PIIEntity, degraded bool, elapsed time.Duration) {
	metricsOnce.Do(initMetrics)
	if !metricsRegistered {
		return
	}
	counts := make(map[string]int64)
	for _, e := range entities {
		counts[e.Type]++
	}
	for typ, n := range counts {
		entitiesCounter.Add(ctx, n, metric.WithAttributes(deidotel.PIIEntityType.String(typ)))
	}
	durationHistogram.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(deidotel.RedactDegraded.Bool(degraded)))
}
