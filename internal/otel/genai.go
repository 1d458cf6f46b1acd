package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// GenAI semantic convention keys for the inference call.
const (
	GenAISystem               = attribute.Key("gen_ai.system")        // e.g. "ollama"
	GenAIRequestModel         = attribute.Key("gen_ai.request.model") // e.g. "qwen3:4b"
	GenAIResponseFinishReason = attribute.Key("gen_ai.response.finish_reason")
	GenAIUsageInputTokens     = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokens    = attribute.Key("gen_ai.usage.output_tokens")
)

// Redaction pipeline keys.
const (
	PIIEntityType       = attribute.Key("pii.entity_type")
	PIIEntityCount      = attribute.Key("pii.entity_count")
	NamesOutcome        = attribute.Key("names.outcome") // ok, transport_error, payload_error, disabled
	NamesPayloadSource  = attribute.Key("names.payload_source")
	NamesCandidateCount = attribute.Key("names.candidate_count")
	RedactDegraded      = attribute.Key("redact.degraded")
	RedactRunID         = attribute.Key("redact.run_id")
)

// GenerateAttributes creates the span attributes of one generate request.
func GenerateAttributes(system, model string) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAISystem.String(system),
		GenAIRequestModel.String(model),
	}
}

// UsageAttributes creates attributes for token usage reported by the backend.
func UsageAttributes(inputTokens, outputTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAIUsageInputTokens.Int(inputTokens),
		GenAIUsageOutputTokens.Int(outputTokens),
	}
}
