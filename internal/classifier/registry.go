package classifier

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecognizerFile is the layout of structured.yaml and of a user pattern file.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig is one structured detector: a named group of regexes
// that all report the same entity. A pattern file may redefine a built-in
// detector by reusing its name, or switch it off with enabled: false.
type RecognizerConfig struct {
	Name            string          `yaml:"name" json:"name"`
	SupportedEntity string          `yaml:"supported_entity" json:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// PatternConfig is a single RE2 expression within a recognizer.
type PatternConfig struct {
	Name  string `yaml:"name" json:"name"`
	Regex string `yaml:"regex" json:"regex"`
}

func (r RecognizerConfig) isEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ParseRecognizerFile decodes pattern YAML. Every recognizer must be named,
// since the name is the key later layers override by.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	for i, rc := range rf.Recognizers {
		if strings.TrimSpace(rc.Name) == "" {
			return nil, fmt.Errorf("recognizer #%d (%s) has no name", i+1, rc.SupportedEntity)
		}
	}
	return &rf, nil
}

// LoadRecognizerFile reads a user pattern file. A missing file yields
// (nil, nil) so an unset or absent patterns.yaml leaves the built-ins alone.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	rf, err := ParseRecognizerFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

// MergeRecognizers stacks the built-in, file and programmatic layers. A
// recognizer whose name was already seen replaces the earlier definition in
// its original slot, which keeps email ahead of file path in scan order.
func MergeRecognizers(layers ...[]RecognizerConfig) []RecognizerConfig {
	slot := make(map[string]int)
	var merged []RecognizerConfig
	for _, layer := range layers {
		for _, rc := range layer {
			if i, ok := slot[rc.Name]; ok {
				merged[i] = rc
				continue
			}
			slot[rc.Name] = len(merged)
			merged = append(merged, rc)
		}
	}
	return merged
}

// CompilePIIPatterns turns the merged recognizers into scanner patterns,
// one per regex, skipping disabled recognizers.
func CompilePIIPatterns(recognizers []RecognizerConfig) ([]PIIPattern, error) {
	var out []PIIPattern
	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		typ := entityToType(rec.SupportedEntity)
		for _, p := range rec.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, rec.Name, err)
			}
			out = append(out, PIIPattern{Name: rec.Name, Type: typ, Pattern: re})
		}
	}
	return out, nil
}

// FilterByEntities keeps recognizers whose entity is in enabled (all of
// them when enabled is empty) and not in disabled.
func FilterByEntities(recognizers []RecognizerConfig, enabled, disabled []string) []RecognizerConfig {
	allow, block := entitySet(enabled), entitySet(disabled)
	var kept []RecognizerConfig
	for _, r := range recognizers {
		if len(allow) > 0 && !allow[r.SupportedEntity] {
			continue
		}
		if block[r.SupportedEntity] {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func entitySet(entities []string) map[string]bool {
	if len(entities) == 0 {
		return nil
	}
	set := make(map[string]bool, len(entities))
	for _, e := range entities {
		set[e] = true
	}
	return set
}

// entityToType maps a supported_entity to the placeholder tag. Entities
// outside the three built-in kinds keep their own name, lowercased, so a
// custom EMPLOYEE_ID detector produces [REDACTED-employee_id].
func entityToType(entity string) string {
	switch entity {
	case "EMAIL_ADDRESS":
		return TypeEmail
	case "FILE_PATH":
		return TypeFile
	case "PERSON":
		return TypeName
	}
	return strings.ToLower(entity)
}
