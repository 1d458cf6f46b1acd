// Package patterns provides embedded default recognizer definitions and the
// default name extraction prompt. YAML files in this directory use the
// Presidio-compatible recognizer format.
package patterns

import _ "embed"

//go:embed structured.yaml
var structuredYAML []byte

//go:embed names_prompt.tmpl
var namesPrompt string

// StructuredYAML returns the embedded email and file path recognizers.
func StructuredYAML() []byte { return structuredYAML }

// NamesPrompt returns the embedded text/template used to ask the inference
// service for person names. The template receives a struct with a Text field.
func NamesPrompt() string { return namesPrompt }
