package llm

// PayloadSource names the response field a structured payload was read from.
type PayloadSource string

const (
	// SourceResponse is the primary generated-text field.
	SourceResponse PayloadSource = "response"
	// SourceThinking is the alternate field some thinking models write their
	// structured output to while leaving the primary field empty.
	SourceThinking PayloadSource = "thinking"
	// SourceNone means both fields were empty.
	SourceNone PayloadSource = "none"
)

// Payload is the structured output of a generation, tagged with where it
// came from.
type Payload struct {
	Source PayloadSource
	Body   string
}

// Empty reports whether no field carried any output.
func (p Payload) Empty() bool {
	return p.Source == SourceNone
}

// resolvePayload picks the payload field: the primary field when non-empty,
// else the alternate field when non-empty, else none.
func resolvePayload(response string, thinking *string) Payload {
	if response != "" {
		return Payload{Source: SourceResponse, Body: response}
	}
	if thinking != nil && *thinking != "" {
		return Payload{Source: SourceThinking, Body: *thinking}
	}
	return Payload{Source: SourceNone}
}
