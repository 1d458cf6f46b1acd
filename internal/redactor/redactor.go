// Package redactor combines the structured scanner and the name detector into
// one redaction run: detect, reconcile overlaps, rewrite.
package redactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sdrshnv/deid/internal/classifier"
	deidotel "github.com/sdrshnv/deid/internal/otel"
)

var tracer = deidotel.Tracer("github.com/sdrshnv/deid/internal/redactor")

// NameDetector finds person names in text. Any error means the whole name
// stage contributed nothing.
type NameDetector interface {
	DetectNames(ctx context.Context, text string) ([]classifier.PIIEntity, error)
}

// HealthChecker probes the inference service.
type HealthChecker interface {
	Ping(ctx context.Context) bool
}

// Result is the outcome of one redaction run.
type Result struct {
	RunID    string                 `json:"run_id"`
	Redacted string                 `json:"redacted"`
	Entities []classifier.PIIEntity `json:"entities"`
	// Degraded is true when name detection was enabled but failed, so only
	// structured entities were removed.
	Degraded bool `json:"degraded"`
}

// Pipeline runs a redaction. It holds no per-call state and is safe for
// concurrent use.
type Pipeline struct {
	scanner *classifier.Scanner
	names   NameDetector
	health  HealthChecker
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNameDetector enables the name stage. Without it the pipeline is
// regex-only and never reports itself degraded.
func WithNameDetector(d NameDetector) Option {
	return func(p *Pipeline) { p.names = d }
}

// WithHealthChecker sets the probe used by CheckInferenceAvailable.
func WithHealthChecker(h HealthChecker) Option {
	return func(p *Pipeline) { p.health = h }
}

// New builds a pipeline around scanner.
func New(scanner *classifier.Scanner, opts ...Option) (*Pipeline, error) {
	if scanner == nil {
		return nil, fmt.Errorf("redactor requires a scanner")
	}
	p := &Pipeline{scanner: scanner}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// NamesEnabled reports whether a name detector is configured.
func (p *Pipeline) NamesEnabled() bool {
	return p.names != nil
}

// Redact returns text with every detected entity replaced by its placeholder.
// Name detection failures never fail the call; only an internal span error
// (classifier.ErrInvalidSpan) does.
func (p *Pipeline) Redact(ctx context.Context, text string) (string, error) {
	res, err := p.Analyze(ctx, text)
	if err != nil {
		return "", err
	}
	return res.Redacted, nil
}

// Analyze is Redact with the reconciled entities and degradation flag.
func (p *Pipeline) Analyze(ctx context.Context, text string) (*Result, error) {
	runID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "redactor.redact",
		trace.WithAttributes(deidotel.RedactRunID.String(runID)))
	defer span.End()
	start := time.Now()

	var (
		structured []classifier.PIIEntity
		names      []classifier.PIIEntity
		namesErr   error
	)
	var g errgroup.Group
	g.Go(func() error {
		structured = p.scanner.Scan(ctx, text)
		return nil
	})
	if p.names != nil {
		g.Go(func() error {
			names, namesErr = p.names.DetectNames(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	degraded := false
	if namesErr != nil {
		degraded = true
		names = nil
		log.Warn().Err(namesErr).
			Str("run_id", runID).
			Func(deidotel.LogTraceFields(ctx)).
			Msg("name_detection_unavailable")
	}

	entities := classifier.Reconcile(structured, names)
	redacted, err := classifier.Rewrite(ctx, text, entities)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rewrite failed")
		return nil, err
	}
	if entities == nil {
		entities = []classifier.PIIEntity{}
	}

	elapsed := time.Since(start)
	RecordRedaction(ctx, entities, degraded, elapsed)
	span.SetAttributes(
		deidotel.PIIEntityCount.Int(len(entities)),
		deidotel.RedactDegraded.Bool(degraded),
	)
	log.Debug().
		Str("run_id", runID).
		Int("entities", len(entities)).
		Strs("types", entityTypes(entities)).
		Bool("degraded", degraded).
		Dur("duration", elapsed).
		Func(deidotel.LogTraceFields(ctx)).
		Msg("redaction_completed")

	return &Result{RunID: runID, Redacted: redacted, Entities: entities, Degraded: degraded}, nil
}

// CheckInferenceAvailable reports whether the inference service answers its
// health probe. It is false when no probe is configured.
func (p *Pipeline) CheckInferenceAvailable(ctx context.Context) bool {
	if p.health == nil {
		return false
	}
	ok := p.health.Ping(ctx)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("deid.inference.available", ok))
	return ok
}

// IsInternal reports whether err is the only error class Analyze returns.
func IsInternal(err error) bool {
	return errors.Is(err, classifier.ErrInvalidSpan)
}

func entityTypes(entities []classifier.PIIEntity) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entities {
		if !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	return out
}
