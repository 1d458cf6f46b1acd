package classifier

// Built-in entity type tags. The set is open: custom recognizers loaded from
// a pattern file may introduce their own.
const (
	TypeEmail = "email"
	TypeFile  = "file"
	TypeName  = "name"
)

// PIIEntity is a detected PII span. Start and End are byte offsets into the
// text the entity was detected in, half-open [Start, End).
type PIIEntity struct {
	Type     string `json:"type"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Original string `json:"original"`
}

// Len returns the span length in bytes.
func (e PIIEntity) Len() int {
	return e.End - e.Start
}

// Placeholder returns the replacement token for an entity type,
// e.g. "[REDACTED-email]".
func Placeholder(entityType string) string {
	return "[REDACTED-" + entityType + "]"
}
