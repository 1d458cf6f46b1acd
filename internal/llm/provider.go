// Package llm talks to the local inference service and turns its answers into
// name entities.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Timeouts for inference operations. Both are overridable through config.
const (
	DefaultNameTimeout   = 120 * time.Second
	DefaultHealthTimeout = 2 * time.Second
)

// Domain errors for the llm package. Every error DetectNames returns wraps
// exactly one of them.
var (
	// ErrTransport covers connection failures, timeouts and non-2xx responses.
	ErrTransport = errors.New("inference transport error")
	// ErrPayload covers prompts that fail to render and responses that are
	// undecodable, empty or off-schema.
	ErrPayload = errors.New("inference payload error")
)

// Generator is a structured-output text generation backend.
type Generator interface {
	// Name returns the backend identifier (e.g. "ollama").
	Name() string
	// Generate runs one non-streaming generation constrained by req.Format.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
}

// GenerateRequest is a single structured-output generation request.
type GenerateRequest struct {
	Model  string
	Prompt string
	// Format is a JSON schema the backend must constrain its output to.
	Format json.RawMessage
}

// GenerateResult is a decoded generation response.
type GenerateResult struct {
	Model        string
	Payload      Payload
	DoneReason   string
	InputTokens  int
	OutputTokens int
}
