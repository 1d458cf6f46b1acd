package doctor

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrshnv/deid/internal/config"
	"github.com/sdrshnv/deid/internal/testutil"
)

func baseConfig(url string) *config.Config {
	return &config.Config{
		OllamaBaseURL: url,
		OllamaModel:   testutil.TestModel,
		NameTimeout:   config.DefaultNameTimeout,
		HealthTimeout: time.Second,
		NamesEnabled:  true,
	}
}

func byName(t *testing.T, r *Report, name string) CheckResult {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report", name)
	return CheckResult{}
}

func TestRun_AllPass(t *testing.T) {
	server := testutil.NewOllamaServer(testutil.GenerateReply{}, "qwen3:4b", "llama3.2:latest")
	defer server.Close()

	report := Run(context.Background(), Options{Config: baseConfig(server.URL)})

	assert.Equal(t, "pass", report.Status)
	assert.Equal(t, 0, report.Summary.Fail)
	assert.Equal(t, "pass", byName(t, report, "config_load").Status)
	assert.Equal(t, "email, file", byName(t, report, "patterns_compile").Message)
	assert.Equal(t, "embedded default", byName(t, report, "names_prompt").Message)
	assert.Equal(t, "pass", byName(t, report, "inference_reachable").Status)
	assert.Equal(t, "pass", byName(t, report, "model_present").Status)
}

func TestRun_InferenceUnreachable(t *testing.T) {
	report := Run(context.Background(), Options{Config: baseConfig(testutil.UnreachableURL)})

	assert.Equal(t, "fail", report.Status)
	c := byName(t, report, "inference_reachable")
	assert.Equal(t, "fail", c.Status)
	assert.Contains(t, c.Fix, "ollama serve")
	for _, c := range report.Checks {
		assert.NotEqual(t, "model_present", c.Name, "no model check without a reachable service")
	}
}

func TestRun_ModelMissing(t *testing.T) {
	server := testutil.NewOllamaServer(testutil.GenerateReply{}, "llama3.2")
	defer server.Close()

	report := Run(context.Background(), Options{Config: baseConfig(server.URL)})
	c := byName(t, report, "model_present")
	assert.Equal(t, "fail", c.Status)
	assert.Equal(t, "ollama pull qwen3:4b", c.Fix)
}

func TestRun_ModelListFails(t *testing.T) {
	server := testutil.NewStatusServer(http.StatusOK, "not json")
	defer server.Close()

	report := Run(context.Background(), Options{Config: baseConfig(server.URL)})
	assert.Equal(t, "pass", byName(t, report, "inference_reachable").Status)
	assert.Equal(t, "warn", byName(t, report, "model_present").Status)
	assert.Equal(t, "warn", report.Status)
}

func TestRun_NamesDisabledWarns(t *testing.T) {
	cfg := baseConfig(testutil.UnreachableURL)
	cfg.NamesEnabled = false

	report := Run(context.Background(), Options{Config: cfg})
	assert.Equal(t, "warn", report.Status)
	assert.Equal(t, "warn", byName(t, report, "inference_reachable").Status)
}

func TestRun_SkipInference(t *testing.T) {
	report := Run(context.Background(), Options{Config: baseConfig(testutil.UnreachableURL), SkipInference: true})
	assert.Equal(t, "pass", report.Status)
	assert.Len(t, report.Checks, 3)
}

func TestCheckPatterns(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing pattern file", func(t *testing.T) {
		cfg := baseConfig(testutil.UnreachableURL)
		cfg.PatternFile = filepath.Join(dir, "missing.yaml")
		assert.Equal(t, "fail", checkPatterns(cfg).Status)
	})

	t.Run("bad regex", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
recognizers:
  - name: Broken
    supported_entity: BROKEN
    patterns:
      - name: broken
        regex: "([a-z"
`), 0o600))
		cfg := baseConfig(testutil.UnreachableURL)
		cfg.PatternFile = path
		c := checkPatterns(cfg)
		assert.Equal(t, "fail", c.Status)
		assert.Contains(t, c.Message, "compiling patterns")
	})

	t.Run("extra recognizer", func(t *testing.T) {
		path := filepath.Join(dir, "extra.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
recognizers:
  - name: Ticket
    supported_entity: TICKET_ID
    patterns:
      - name: ticket
        regex: "TCK-[0-9]{4}"
`), 0o600))
		cfg := baseConfig(testutil.UnreachableURL)
		cfg.PatternFile = path
		c := checkPatterns(cfg)
		assert.Equal(t, "pass", c.Status)
		assert.Equal(t, "email, file, ticket_id", c.Message)
	})

	t.Run("everything disabled", func(t *testing.T) {
		cfg := baseConfig(testutil.UnreachableURL)
		cfg.DisabledEntities = []string{"EMAIL_ADDRESS", "FILE_PATH"}
		assert.Equal(t, "warn", checkPatterns(cfg).Status)
	})
}

func TestCheckPrompt(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(testutil.UnreachableURL)

	cfg.PromptFile = filepath.Join(dir, "missing.tmpl")
	assert.Equal(t, "fail", checkPrompt(cfg).Status)

	bad := filepath.Join(dir, "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte("{{.Text"), 0o600))
	cfg.PromptFile = bad
	assert.Equal(t, "fail", checkPrompt(cfg).Status)

	good := filepath.Join(dir, "good.tmpl")
	require.NoError(t, os.WriteFile(good, []byte("Names in: {{.Text}}"), 0o600))
	cfg.PromptFile = good
	c := checkPrompt(cfg)
	assert.Equal(t, "pass", c.Status)
	assert.Equal(t, good, c.Message)
}

func TestCheckLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "deid.log")
	assert.Equal(t, "pass", checkLogFile(path).Status)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestHasModel(t *testing.T) {
	assert.True(t, hasModel([]string{"qwen3:4b"}, "qwen3:4b"))
	assert.True(t, hasModel([]string{"llama3.2:latest"}, "llama3.2"))
	assert.True(t, hasModel([]string{"llama3.2"}, "llama3.2:latest"))
	assert.False(t, hasModel([]string{"qwen3:8b"}, "qwen3:4b"))
	assert.False(t, hasModel(nil, "qwen3:4b"))
}
