// Package config holds the operator-level configuration of a deid process:
// where the inference service lives, which model to ask, how long to wait,
// which structured detectors to run and how the HTTP API is guarded.
//
// Values merge from env vars (DEID_*), the config file (deid.config.yaml in
// the working directory or ~/.deid) and the defaults below, in that order
// of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sdrshnv/deid/internal/llm"
)

// Viper keys. Each maps to an env var with the DEID_ prefix
// (e.g. "ollama_model" → DEID_OLLAMA_MODEL) and to a YAML field in
// deid.config.yaml.
const (
	KeyOllamaBaseURL    = "ollama_base_url"
	KeyOllamaModel      = "ollama_model"
	KeyNameTimeout      = "name_timeout"
	KeyHealthTimeout    = "health_timeout"
	KeyNamesEnabled     = "names_enabled"
	KeyPromptFile       = "prompt_file"
	KeyPatternFile      = "pattern_file"
	KeyDisabledEntities = "disabled_entities"
	KeyLogFile          = "log_file"
	KeyRateLimitRPM     = "rate_limit_rpm"
	KeyAPIKeys          = "api_keys"
)

// The inference defaults are owned by llm so a provider built without
// config behaves the same as one built from an empty config.
const (
	DefaultOllamaURL     = llm.DefaultOllamaURL
	DefaultOllamaModel   = "qwen3:4b"
	DefaultNameTimeout   = llm.DefaultNameTimeout
	DefaultHealthTimeout = llm.DefaultHealthTimeout
	DefaultRateLimitRPM  = 120

	// MaxNameTimeout caps name_timeout.
	MaxNameTimeout = 10 * time.Minute
)

// EnvPrefix is the prefix of every env var read by Load.
const EnvPrefix = "DEID"

// Config holds resolved configuration for a deid process.
type Config struct {
	OllamaBaseURL    string        // Inference service endpoint
	OllamaModel      string        // Model asked for names
	NameTimeout      time.Duration // Bound on one name detection call
	HealthTimeout    time.Duration // Bound on the availability probe
	NamesEnabled     bool          // false runs regex-only
	PromptFile       string        // Optional names prompt template override
	PatternFile      string        // Optional extra recognizers
	DisabledEntities []string      // Recognizer entities to skip, e.g. FILE_PATH
	LogFile          string        // Rotated log file; empty logs to stderr only
	RateLimitRPM     int           // Requests per minute per caller; 0 disables
	APIKeys          []string      // Accepted API keys; empty disables auth
}

func init() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	SetDefaults(viper.GetViper())
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	v.SetDefault(KeyOllamaModel, DefaultOllamaModel)
	v.SetDefault(KeyNameTimeout, DefaultNameTimeout)
	v.SetDefault(KeyHealthTimeout, DefaultHealthTimeout)
	v.SetDefault(KeyNamesEnabled, true)
	v.SetDefault(KeyRateLimitRPM, DefaultRateLimitRPM)
}

// Load reads configuration from Viper (which merges env vars, config
// file, and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		OllamaBaseURL:    strings.TrimRight(viper.GetString(KeyOllamaBaseURL), "/"),
		OllamaModel:      viper.GetString(KeyOllamaModel),
		NameTimeout:      viper.GetDuration(KeyNameTimeout),
		HealthTimeout:    viper.GetDuration(KeyHealthTimeout),
		NamesEnabled:     viper.GetBool(KeyNamesEnabled),
		PromptFile:       viper.GetString(KeyPromptFile),
		PatternFile:      viper.GetString(KeyPatternFile),
		DisabledEntities: splitList(viper.GetStringSlice(KeyDisabledEntities)),
		LogFile:          viper.GetString(KeyLogFile),
		RateLimitRPM:     viper.GetInt(KeyRateLimitRPM),
		APIKeys:          splitList(viper.GetStringSlice(KeyAPIKeys)),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// PromptTemplate returns the contents of prompt_file, or "" when unset so the
// embedded default prompt applies.
func (c *Config) PromptTemplate() (string, error) {
	if c.PromptFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.PromptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt_file: %w", err)
	}
	return string(b), nil
}

// MaskedAPIKeys returns the API keys with all but their last four characters
// hidden.
func (c *Config) MaskedAPIKeys() []string {
	out := make([]string, 0, len(c.APIKeys))
	for _, k := range c.APIKeys {
		out = append(out, Mask(k))
	}
	return out
}

// Mask hides a secret for display.
func Mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func (c *Config) validate() error {
	u, err := url.Parse(c.OllamaBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ollama_base_url must be an http(s) URL, got %q", c.OllamaBaseURL)
	}
	if c.NamesEnabled && c.OllamaModel == "" {
		return fmt.Errorf("ollama_model must be set when names_enabled is true")
	}
	if c.NameTimeout <= 0 || c.NameTimeout > MaxNameTimeout {
		return fmt.Errorf("name_timeout must be in (0, %s], got %s", MaxNameTimeout, c.NameTimeout)
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("health_timeout must be positive, got %s", c.HealthTimeout)
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must not be negative")
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
