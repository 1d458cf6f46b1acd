package classifier

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	deidotel "github.com/sdrshnv/deid/internal/otel"
)

var tracer = deidotel.Tracer("github.com/sdrshnv/deid/internal/classifier")

// Scanner runs the structured (regex) detectors over text.
type Scanner struct {
	patterns []PIIPattern
}

// ScannerOption configures a Scanner via the functional options pattern.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	patternFile       string
	enabledEntities   []string
	disabledEntities  []string
	customRecognizers []RecognizerConfig
}

// WithPatternFile loads additional recognizers from a patterns.yaml file.
// If the file does not exist, it is silently skipped.
func WithPatternFile(path string) ScannerOption {
	return func(c *scannerConfig) { c.patternFile = path }
}

// WithEnabledEntities sets a whitelist of entity types. When non-empty, only
// recognizers with a matching supported_entity will be active.
func WithEnabledEntities(entities []string) ScannerOption {
	return func(c *scannerConfig) { c.enabledEntities = entities }
}

// WithDisabledEntities sets a blacklist of entity types to exclude.
func WithDisabledEntities(entities []string) ScannerOption {
	return func(c *scannerConfig) { c.disabledEntities = entities }
}

// WithCustomRecognizers adds recognizer definitions on top of the pattern file.
func WithCustomRecognizers(recognizers []RecognizerConfig) ScannerOption {
	return func(c *scannerConfig) { c.customRecognizers = recognizers }
}

// NewScanner creates a scanner. Without options it uses the embedded email
// and file path recognizers. Options layer a pattern file and programmatic
// recognizers on top.
func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	var fileRecs []RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if rf != nil {
			fileRecs = rf.Recognizers
		}
	}

	merged := MergeRecognizers(defaults, fileRecs, cfg.customRecognizers)
	merged = FilterByEntities(merged, cfg.enabledEntities, cfg.disabledEntities)

	compiled, err := CompilePIIPatterns(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	return &Scanner{patterns: compiled}, nil
}

// MustNewScanner is like NewScanner but panics on error. Useful for zero-config
// startup where the embedded defaults are expected to always compile.
func MustNewScanner(opts ...ScannerOption) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic(fmt.Sprintf("classifier.NewScanner: %v", err))
	}
	return s
}

// Types returns the entity types this scanner can report, in detector order.
func (s *Scanner) Types() []string {
	seen := make(map[string]bool, len(s.patterns))
	var types []string
	for _, p := range s.patterns {
		if !seen[p.Type] {
			seen[p.Type] = true
			types = append(types, p.Type)
		}
	}
	return types
}

// Scan runs every detector over text and concatenates their results in
// detector order. Within one detector, entities are ordered by Start.
// The result is not reconciled: spans from different detectors may overlap.
func (s *Scanner) Scan(ctx context.Context, text string) []PIIEntity {
	_, span := tracer.Start(ctx, "classifier.scan")
	defer span.End()

	entities := []PIIEntity{}
	for _, p := range s.patterns {
		entities = append(entities, p.Detect(text)...)
	}

	span.SetAttributes(
		attribute.Int("pii.detector_count", len(s.patterns)),
		attribute.Int("pii.entity_count", len(entities)),
	)
	return entities
}
