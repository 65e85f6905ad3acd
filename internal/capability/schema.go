package capability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is the structural contract for a capability's arguments. It
// serialises to a JSON Schema object and is what tools/list advertises.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single argument.
type Property struct {
	Type        string              `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Default     any                 `json:"default,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	MinItems    int                 `json:"minItems,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}

// ObjectSchema returns a permissive object schema.
func ObjectSchema() Schema { return Schema{Type: "object"} }

func compileSchema(name string, s Schema) (*jsonschema.Schema, error) {
	if s.Type == "" {
		s.Type = "object"
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	url := "mem://capabilities/" + name + ".json"
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// validateArgs checks args against schema. Arguments built in Go (typed
// slices, ints) are round-tripped through JSON first so the validator sees
// the same shapes it would see on the wire.
func validateArgs(name string, schema *jsonschema.Schema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return &ValidationError{Name: name, Problems: []string{"arguments are not JSON-encodable: " + err.Error()}}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Name: name, Problems: []string{err.Error()}}
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Name: name, Problems: []string{err.Error()}}
	}
	return &ValidationError{Name: name, Problems: flattenProblems(ve)}
}

// flattenProblems collects the leaf causes of a validation failure as
// "location: message" strings.
func flattenProblems(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + ve.Message}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, flattenProblems(c)...)
	}
	return out
}
