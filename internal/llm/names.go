package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/sdrshnv/deid/internal/classifier"
	deidotel "github.com/sdrshnv/deid/internal/otel"
	"github.com/sdrshnv/deid/patterns"
)

var tracer = deidotel.Tracer("github.com/sdrshnv/deid/internal/llm")

// NameDetectorConfig is the injected configuration of a NameDetector.
type NameDetectorConfig struct {
	Model string
	// Timeout bounds one detection call. Zero means DefaultNameTimeout.
	Timeout time.Duration
	// PromptTemplate is a text/template rendered with {{.Text}}. Empty means
	// the embedded default prompt.
	PromptTemplate string
}

// NameDetector asks a Generator for the person names in a text and maps them
// back onto byte spans of that text.
type NameDetector struct {
	gen     Generator
	model   string
	timeout time.Duration
	prompt  *template.Template
}

// NewNameDetector validates cfg and builds a detector.
func NewNameDetector(gen Generator, cfg NameDetectorConfig) (*NameDetector, error) {
	if gen == nil {
		return nil, fmt.Errorf("name detector requires a generator")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("name detector requires a model")
	}
	src := cfg.PromptTemplate
	if src == "" {
		src = patterns.NamesPrompt()
	}
	tmpl, err := template.New("names").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing names prompt template: %w", err)
	}
	if err := tmpl.Execute(io.Discard, struct{ Text string }{}); err != nil {
		return nil, fmt.Errorf("names prompt template: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultNameTimeout
	}
	return &NameDetector{gen: gen, model: cfg.Model, timeout: timeout, prompt: tmpl}, nil
}

// Model returns the model identifier sent with each request.
func (d *NameDetector) Model() string {
	return d.model
}

// DetectNames returns one "name" entity per literal occurrence of each name
// the inference service reports. It returns either the complete entity list
// or an error wrapping ErrTransport or ErrPayload, never both.
func (d *NameDetector) DetectNames(ctx context.Context, text string) ([]classifier.PIIEntity, error) {
	ctx, span := tracer.Start(ctx, "names.detect",
		trace.WithAttributes(deidotel.GenAIRequestModel.String(d.model)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var prompt strings.Builder
	if err := d.prompt.Execute(&prompt, struct{ Text string }{Text: text}); err != nil {
		err = fmt.Errorf("%w: rendering names prompt: %v", ErrPayload, err)
		RecordNameDetection(ctx, OutcomePayloadError, 0)
		span.RecordError(err)
		return nil, err
	}

	res, err := d.gen.Generate(ctx, &GenerateRequest{
		Model:  d.model,
		Prompt: prompt.String(),
		Format: NamesFormat(),
	})
	if err != nil {
		RecordNameDetection(ctx, outcomeFor(err), 0)
		span.RecordError(err)
		return nil, err
	}

	names, err := parseNames(res.Payload)
	if err != nil {
		RecordNameDetection(ctx, OutcomePayloadError, 0)
		span.RecordError(err)
		return nil, err
	}

	entities := LocateNames(text, names)
	RecordNameDetection(ctx, OutcomeOK, len(entities))
	span.SetAttributes(
		deidotel.NamesPayloadSource.String(string(res.Payload.Source)),
		deidotel.NamesCandidateCount.Int(len(names)),
		deidotel.PIIEntityCount.Int(len(entities)),
	)
	return entities, nil
}

// LocateNames maps candidate names onto text. Each non-empty name is searched
// literally (case-sensitive, no normalization, non-overlapping, left to
// right) and every occurrence becomes one entity. A multi-word name with no
// occurrence at all is split on whitespace and each token is searched the
// same way; this catches names the model joined from separately labeled
// fields such as firstName and lastName.
func LocateNames(text string, names []string) []classifier.PIIEntity {
	entities := []classifier.PIIEntity{}
	for _, name := range names {
		if name == "" {
			continue
		}
		found := findAll(text, name)
		if len(found) == 0 {
			if parts := strings.Fields(name); len(parts) > 1 {
				for _, part := range parts {
					found = append(found, findAll(text, part)...)
				}
			}
		}
		entities = append(entities, found...)
	}
	return entities
}

func findAll(text, needle string) []classifier.PIIEntity {
	var out []classifier.PIIEntity
	offset := 0
	for {
		idx := strings.Index(text[offset:], needle)
		if idx < 0 {
			return out
		}
		start := offset + idx
		end := start + len(needle)
		out = append(out, classifier.PIIEntity{
			Type:     classifier.TypeName,
			Start:    start,
			End:      end,
			Original: needle,
		})
		offset = end
	}
}
