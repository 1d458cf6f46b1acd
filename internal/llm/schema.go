package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// namesSchema is sent as the generate "format" and used to validate the
// payload that comes back.
const namesSchema = `{
  "type": "object",
  "properties": {
    "names": {
      "type": "array",
      "items": { "type": "string" }
    }
  },
  "required": ["names"]
}`

var compiledNamesSchema = mustCompileSchema(namesSchema)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compiling names schema: %v", err))
	}
	return schema
}

// NamesFormat returns the JSON schema requiring {"names": [string, ...]}.
func NamesFormat() json.RawMessage {
	return json.RawMessage(namesSchema)
}

type namesResult struct {
	Names []string `json:"names"`
}

// parseNames validates a payload against the names schema and decodes it.
func parseNames(p Payload) ([]string, error) {
	if p.Empty() {
		return nil, fmt.Errorf("%w: empty response and thinking fields", ErrPayload)
	}

	result, err := compiledNamesSchema.Validate(gojsonschema.NewStringLoader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing names JSON from %s: %v", ErrPayload, p.Source, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return nil, fmt.Errorf("%w: names JSON from %s violates schema: %s", ErrPayload, p.Source, strings.Join(msgs, "; "))
	}

	var nr namesResult
	if err := json.Unmarshal([]byte(p.Body), &nr); err != nil {
		return nil, fmt.Errorf("%w: decoding names JSON from %s: %v", ErrPayload, p.Source, err)
	}
	return nr.Names, nil
}
