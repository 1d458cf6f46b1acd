package cmd

import (
	"fmt"

	"github.com/sdrshnv/deid/internal/classifier"
	"github.com/sdrshnv/deid/internal/config"
	"github.com/sdrshnv/deid/internal/llm"
	"github.com/sdrshnv/deid/internal/redactor"
)

// buildPipeline wires the scanner, the Ollama name detector and its health
// probe from cfg. withNames=false forces a regex-only pipeline.
func buildPipeline(cfg *config.Config, withNames bool) (*redactor.Pipeline, error) {
	var scanOpts []classifier.ScannerOption
	if cfg.PatternFile != "" {
		scanOpts = append(scanOpts, classifier.WithPatternFile(cfg.PatternFile))
	}
	if len(cfg.DisabledEntities) > 0 {
		scanOpts = append(scanOpts, classifier.WithDisabledEntities(cfg.DisabledEntities))
	}
	scanner, err := classifier.NewScanner(scanOpts...)
	if err != nil {
		return nil, fmt.Errorf("building scanner: %w", err)
	}

	provider := llm.NewOllamaProvider(cfg.OllamaBaseURL, llm.WithHealthTimeout(cfg.HealthTimeout))
	opts := []redactor.Option{redactor.WithHealthChecker(provider)}

	if withNames && cfg.NamesEnabled {
		prompt, err := cfg.PromptTemplate()
		if err != nil {
			return nil, err
		}
		detector, err := llm.NewNameDetector(provider, llm.NameDetectorConfig{
			Model:          cfg.OllamaModel,
			Timeout:        cfg.NameTimeout,
			PromptTemplate: prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("building name detector: %w", err)
		}
		opts = append(opts, redactor.WithNameDetector(detector))
	}

	return redactor.New(scanner, opts...)
}
