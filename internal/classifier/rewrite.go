package classifier

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
)

// ErrInvalidSpan is returned when an entity's offsets do not describe a valid,
// ordered, non-overlapping span of the text. Reconciled detector output never
// triggers it.
var ErrInvalidSpan = errors.New("invalid entity span")

// Rewrite replaces every entity span in text with its placeholder. entities
// must be the output of Reconcile for this exact text. With no entities the
// text is returned unchanged.
//
// Spans are substituted from the highest Start down so offsets computed
// against the original text stay valid for every replacement.
func Rewrite(ctx context.Context, text string, entities []PIIEntity) (string, error) {
	_, span := tracer.Start(ctx, "classifier.rewrite")
	defer span.End()

	if len(entities) == 0 {
		return text, nil
	}
	if err := validateSpans(text, entities); err != nil {
		span.RecordError(err)
		return "", err
	}

	result := []byte(text)
	redacted := 0
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		redacted += e.Len()
		placeholder := Placeholder(e.Type)
		tail := result[e.End:]
		out := make([]byte, 0, e.Start+len(placeholder)+len(tail))
		out = append(out, result[:e.Start]...)
		out = append(out, placeholder...)
		out = append(out, tail...)
		result = out
	}

	span.SetAttributes(
		attribute.Int("pii.redacted_count", len(entities)),
		attribute.Int("pii.redacted_bytes", redacted),
	)
	return string(result), nil
}

// validateSpans checks bounds and ordering. The rune boundary check only
// applies to valid UTF-8; invalid input is rewritten byte for byte.
func validateSpans(text string, entities []PIIEntity) error {
	checkRunes := utf8.ValidString(text)
	prevEnd := 0
	for i, e := range entities {
		switch {
		case e.Start < 0 || e.End > len(text) || e.Start >= e.End:
			return fmt.Errorf("%w: entity %d [%d,%d) outside text of %d bytes", ErrInvalidSpan, i, e.Start, e.End, len(text))
		case e.Start < prevEnd:
			return fmt.Errorf("%w: entity %d [%d,%d) overlaps or precedes previous end %d", ErrInvalidSpan, i, e.Start, e.End, prevEnd)
		case checkRunes && (!onRuneBoundary(text, e.Start) || !onRuneBoundary(text, e.End)):
			return fmt.Errorf("%w: entity %d [%d,%d) splits a multi-byte character", ErrInvalidSpan, i, e.Start, e.End)
		}
		prevEnd = e.End
	}
	return nil
}

func onRuneBoundary(text string, off int) bool {
	return off == len(text) || utf8.RuneStart(text[off])
}
