package classifier

import (
	"fmt"
	"regexp"

	"github.com/sdrshnv/deid/patterns"
)

// PIIPattern is a compiled, ready-to-use structured detector.
type PIIPattern struct {
	Name    string
	Type    string
	Pattern *regexp.Regexp
}

// Detect returns every non-overlapping match of the pattern in text, left to
// right, as entities of the pattern's type. It never fails.
func (p PIIPattern) Detect(text string) []PIIEntity {
	matches := p.Pattern.FindAllStringIndex(text, -1)
	entities := make([]PIIEntity, 0, len(matches))
	for _, m := range matches {
		if m[0] == m[1] {
			continue
		}
		entities = append(entities, PIIEntity{
			Type:     p.Type,
			Start:    m[0],
			End:      m[1],
			Original: text[m[0]:m[1]],
		})
	}
	return entities
}

// DefaultRecognizers returns the built-in recognizers parsed from the
// embedded structured.yaml file. This is the first layer in the merge chain.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.StructuredYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded recognizers: %w", err)
	}
	return rf.Recognizers, nil
}

// emailPattern and filePathPattern are the embedded defaults, compiled once.
var emailPattern, filePathPattern PIIPattern

func init() {
	recs, err := DefaultRecognizers()
	if err != nil {
		panic(fmt.Sprintf("loading embedded recognizers: %v", err))
	}
	compiled, err := CompilePIIPatterns(recs)
	if err != nil {
		panic(fmt.Sprintf("compiling embedded recognizers: %v", err))
	}
	for _, p := range compiled {
		switch p.Type {
		case TypeEmail:
			emailPattern = p
		case TypeFile:
			filePathPattern = p
		}
	}
	if emailPattern.Pattern == nil || filePathPattern.Pattern == nil {
		panic("embedded recognizers must define EMAIL_ADDRESS and FILE_PATH")
	}
}

// DetectEmails runs the default email detector over text.
func DetectEmails(text string) []PIIEntity {
	return emailPattern.Detect(text)
}

// DetectFilePaths runs the default file path detector over text.
func DetectFilePaths(text string) []PIIEntity {
	return filePathPattern.Detect(text)
}
