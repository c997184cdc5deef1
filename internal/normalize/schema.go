package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/xeipuuv/gojsonschema"
)

// Validator checks extracted payloads against the same schema the model was
// asked to follow.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles s into a JSON Schema validator.
func NewValidator(s *generation.Schema) (*Validator, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: schema cannot be nil", generation.ErrInvalidConfig)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(JSONSchema(s)))
	if err != nil {
		return nil, fmt.Errorf("%w: compile schema: %v", generation.ErrInvalidConfig, err)
	}
	return &Validator{schema: compiled}, nil
}

// MustValidator is NewValidator for package-level schemas.
func MustValidator(s *generation.Schema) *Validator {
	v, err := NewValidator(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a JSON document. Violations are returned as a
// KindMalformedResponse *generation.Error.
func (v *Validator) Validate(payload string) error {
	result, err := v.schema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return generation.NewError(generation.KindMalformedResponse,
			fmt.Errorf("%w: %v", generation.ErrMalformedResponse, err))
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		msgs = append(msgs, re.String())
	}
	return generation.NewError(generation.KindMalformedResponse,
		fmt.Errorf("%w: %s", generation.ErrMalformedResponse, strings.Join(msgs, "; ")))
}

// Decode extracts the payload from text, unmarshals it into out and then
// validates it against the schema.
func (v *Validator) Decode(text string, out any) error {
	payload := ExtractJSON(text)
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return err
	}
	return v.Validate(payload)
}

// JSONSchema renders s as a draft-07 JSON Schema document.
func JSONSchema(s *generation.Schema) map[string]any {
	doc := map[string]any{}
	if t := jsonType(s.Type); t != "" {
		doc["type"] = t
	}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		doc["enum"] = s.Enum
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = JSONSchema(p)
		}
		doc["properties"] = props
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if s.Items != nil {
		doc["items"] = JSONSchema(s.Items)
	}
	return doc
}

func jsonType(t generation.SchemaType) string {
	switch t {
	case generation.TypeObject:
		return "object"
	case generation.TypeArray:
		return "array"
	case generation.TypeString:
		return "string"
	case generation.TypeInteger:
		return "integer"
	case generation.TypeNumber:
		return "number"
	case generation.TypeBoolean:
		return "boolean"
	default:
		return ""
	}
}
