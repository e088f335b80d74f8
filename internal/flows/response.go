package flows

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
)

// ResponseError reports model output that could not be turned into a stage
// result.
type ResponseError struct {
	Flow string
	Raw  string
	Err  error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("flows: %s: unusable model response: %v", e.Flow, e.Err)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

var errNoJSON = errors.New("no JSON object found")

// responseSchema infers the schema of T, accepting extra properties and
// requiring non-empty strings and arrays.
func responseSchema[T any]() (*jsonschema.Schema, *jsonschema.Resolved, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, nil, err
	}
	schema.AdditionalProperties = nil
	for _, prop := range schema.Properties {
		tightenProperty(prop)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, nil, err
	}
	return schema, resolved, nil
}

func tightenProperty(s *jsonschema.Schema) {
	switch {
	case s.Type == "string":
		s.MinLength = jsonschema.Ptr(1)
	case s.Type == "array" || contains(s.Types, "array"):
		s.Type, s.Types = "array", nil
		s.MinItems = jsonschema.Ptr(1)
		if s.Items != nil {
			tightenProperty(s.Items)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// extractJSON returns the outermost JSON object embedded in text, tolerating
// markdown fences and surrounding prose.
func extractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// maxRawResponse caps the model text kept on a ResponseError.
const maxRawResponse = 2000

// decodeResponse extracts, validates and decodes a model response into T.
func decodeResponse[T any](flow string, resolved *jsonschema.Resolved, text string) (T, error) {
	var zero T
	fail := func(err error) (T, error) {
		raw := text
		if len(raw) > maxRawResponse {
			n := maxRawResponse
			for n > 0 && !utf8.RuneStart(raw[n]) {
				n--
			}
			raw = raw[:n]
		}
		return zero, &ResponseError{Flow: flow, Raw: raw, Err: err}
	}

	obj, ok := extractJSON(text)
	if !ok {
		return fail(errNoJSON)
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(obj), &instance); err != nil {
		return fail(fmt.Errorf("invalid JSON: %w", err))
	}
	if err := resolved.Validate(instance); err != nil {
		return fail(fmt.Errorf("schema validation: %w", err))
	}

	var out T
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return fail(fmt.Errorf("decode: %w", err))
	}
	return out, nil
}
