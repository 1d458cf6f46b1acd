// Package doctor provides preflight checks for deid configuration and its
// inference collaborator. Used by `deid doctor`.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdrshnv/deid/internal/classifier"
	"github.com/sdrshnv/deid/internal/config"
	"github.com/sdrshnv/deid/internal/llm"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"` // pass, warn, fail
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls what Run checks.
type Options struct {
	// Config is checked instead of loading one from viper when set.
	Config *config.Config
	// SkipInference skips reachability and model checks (for CI/offline).
	SkipInference bool
}

// Run executes all doctor checks and returns a report.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			report.Checks = append(report.Checks, CheckResult{
				Name: "config_load", Category: "config", Status: "fail",
				Message: fmt.Sprintf("Cannot load config: %v", err),
				Fix:     "Check DEID_* env vars and deid.config.yaml",
			})
			report.tally()
			return report
		}
		cfg = loaded
	}
	report.Checks = append(report.Checks, CheckResult{
		Name: "config_load", Category: "config", Status: "pass",
		Message: fmt.Sprintf("model %s at %s", cfg.OllamaModel, cfg.OllamaBaseURL),
	})

	report.Checks = append(report.Checks, checkPatterns(cfg))
	report.Checks = append(report.Checks, checkPrompt(cfg))
	if cfg.LogFile != "" {
		report.Checks = append(report.Checks, checkLogFile(cfg.LogFile))
	}
	if !opts.SkipInference {
		report.Checks = append(report.Checks, checkInference(ctx, cfg)...)
	}

	report.tally()
	return report
}

func (r *Report) tally() {
	r.Summary = Summary{}
	for _, c := range r.Checks {
		switch c.Status {
		case "pass":
			r.Summary.Pass++
		case "warn":
			r.Summary.Warn++
		case "fail":
			r.Summary.Fail++
		}
	}

	r.Status = "pass"
	if r.Summary.Warn > 0 {
		r.Status = "warn"
	}
	if r.Summary.Fail > 0 {
		r.Status = "fail"
	}
}

func checkPatterns(cfg *config.Config) CheckResult {
	var opts []classifier.ScannerOption
	if cfg.PatternFile != "" {
		if _, err := os.Stat(cfg.PatternFile); err != nil {
			return CheckResult{
				Name: "patterns_compile", Category: "detectors", Status: "fail",
				Message: fmt.Sprintf("pattern_file %s: %v", cfg.PatternFile, err),
				Fix:     "Point DEID_PATTERN_FILE at an existing recognizer YAML file",
			}
		}
		opts = append(opts, classifier.WithPatternFile(cfg.PatternFile))
	}
	if len(cfg.DisabledEntities) > 0 {
		opts = append(opts, classifier.WithDisabledEntities(cfg.DisabledEntities))
	}
	scanner, err := classifier.NewScanner(opts...)
	if err != nil {
		return CheckResult{
			Name: "patterns_compile", Category: "detectors", Status: "fail",
			Message: err.Error(),
			Fix:     "Fix the regex or YAML syntax in the pattern file",
		}
	}
	types := scanner.Types()
	if len(types) == 0 {
		return CheckResult{
			Name: "patterns_compile", Category: "detectors", Status: "warn",
			Message: "no structured detectors enabled",
			Fix:     "Remove entries from disabled_entities",
		}
	}
	return CheckResult{
		Name: "patterns_compile", Category: "detectors", Status: "pass",
		Message: strings.Join(types, ", "),
	}
}

type nopGenerator struct{}

func (nopGenerator) Name() string { return "nop" }

func (nopGenerator) Generate(context.Context, *llm.GenerateRequest) (*llm.GenerateResult, error) {
	return nil, llm.ErrTransport
}

func checkPrompt(cfg *config.Config) CheckResult {
	tmpl, err := cfg.PromptTemplate()
	if err == nil {
		_, err = llm.NewNameDetector(nopGenerator{}, llm.NameDetectorConfig{
			Model:          cfg.OllamaModel,
			Timeout:        cfg.NameTimeout,
			PromptTemplate: tmpl,
		})
	}
	if err != nil {
		return CheckResult{
			Name: "names_prompt", Category: "detectors", Status: "fail",
			Message: err.Error(),
			Fix:     "The prompt file must be a text/template using {{.Text}}",
		}
	}
	msg := "embedded default"
	if cfg.PromptFile != "" {
		msg = cfg.PromptFile
	}
	return CheckResult{Name: "names_prompt", Category: "detectors", Status: "pass", Message: msg}
}

func checkLogFile(path string) CheckResult {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return CheckResult{
			Name: "log_file_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s: %v", dir, err),
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return CheckResult{
			Name: "log_file_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s not writable: %v", path, err),
		}
	}
	_ = f.Close()
	return CheckResult{Name: "log_file_writable", Category: "config", Status: "pass", Message: path}
}

func checkInference(ctx context.Context, cfg *config.Config) []CheckResult {
	if !cfg.NamesEnabled {
		return []CheckResult{{
			Name: "inference_reachable", Category: "inference", Status: "warn",
			Message: "name detection disabled; only emails and file paths are redacted",
			Fix:     "Set DEID_NAMES_ENABLED=true to redact person names",
		}}
	}

	provider := llm.NewOllamaProvider(cfg.OllamaBaseURL, llm.WithHealthTimeout(cfg.HealthTimeout))
	if !provider.Ping(ctx) {
		return []CheckResult{{
			Name: "inference_reachable", Category: "inference", Status: "fail",
			Message: fmt.Sprintf("%s not reachable; redaction will run degraded", cfg.OllamaBaseURL),
			Fix:     "Start Ollama (ollama serve) or set DEID_OLLAMA_BASE_URL",
		}}
	}
	results := []CheckResult{{
		Name: "inference_reachable", Category: "inference", Status: "pass",
		Message: cfg.OllamaBaseURL,
	}}

	models, err := provider.ListModels(ctx)
	if err != nil {
		return append(results, CheckResult{
			Name: "model_present", Category: "inference", Status: "warn",
			Message: fmt.Sprintf("cannot list models: %v", err),
		})
	}
	if !hasModel(models, cfg.OllamaModel) {
		return append(results, CheckResult{
			Name: "model_present", Category: "inference", Status: "fail",
			Message: fmt.Sprintf("model %s not pulled", cfg.OllamaModel),
			Fix:     fmt.Sprintf("ollama pull %s", cfg.OllamaModel),
		})
	}
	return append(results, CheckResult{
		Name: "model_present", Category: "inference", Status: "pass",
		Message: cfg.OllamaModel,
	})
}

// hasModel treats "name" and "name:latest" as the same model.
func hasModel(models []string, want string) bool {
	norm := func(s string) string {
		if !strings.Contains(s, ":") {
			return s + ":latest"
		}
		return s
	}
	for _, m := range models {
		if norm(m) == norm(want) {
			return true
		}
	}
	return false
}
