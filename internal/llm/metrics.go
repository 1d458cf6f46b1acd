package llm

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	deidotel "github.com/sdrshnv/deid/internal/otel"
)

const namesMeterName = "github.com/sdrshnv/deid/internal/llm"

// Outcomes of one name detection call.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomePayloadError   = "payload_error"
	OutcomeError          = "error"
)

var (
	namesRequestCounter    metric.Int64Counter
	namesEntityCounter     metric.Int64Counter
	namesMetricsOnce       sync.Once
	namesMetricsRegistered bool
)

func initNamesMetrics() {
	meter := otel.Meter(namesMeterName)
	var err error
	namesRequestCounter, err = meter.Int64Counter(
		"deid.names.requests",
		metric.WithDescription("Name detection calls by outcome"),
	)
	if err != nil {
		return
	}
	namesEntityCounter, err = meter.Int64Counter(
		"deid.names.entities",
		metric.WithDescription("Name entities located in source text"),
	)
	if err != nil {
		return
	}
	namesMetricsRegistered = true
}

// RecordNameDetection records one name detection call and how many entities
// it produced.
func RecordNameDetection(ctx context.Context, outcome string, entities int) {
	namesMetricsOnce.Do(initNamesMetrics)
	if !namesMetricsRegistered {
		return
	}
	attrs := metric.WithAttributes(deidotel.NamesOutcome.String(outcome))
	namesRequestCounter.Add(ctx, 1, attrs)
	if entities > 0 {
		namesEntityCounter.Add(ctx, int64(entities))
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return OutcomeTransportError
	case errors.Is(err, ErrPayload):
		return OutcomePayloadError
	default:
		return OutcomeError
	}
}
