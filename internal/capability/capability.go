// Package capability provides the capability registry and the dispatch
// gateway used to invoke named tools with structured arguments.
//
// A Capability couples a unique name, a description, a JSON Schema describing
// its arguments and a Handler. Every handler has the same shape regardless of
// what it returns, so the registry is a plain name -> handler table resolved
// once at startup.
//
// Callers go through Gateway.Execute, which resolves the name, validates the
// arguments against the compiled schema and only then runs the handler.
// Registry.Dispatch skips validation and is meant for callers that have
// already validated, such as tests.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler runs a capability with JSON-decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (Result, error)

// Result is either a textual payload (prompt-style capabilities) or a
// structured object (analytic capabilities).
type Result struct {
	Text string
	Data any
}

// TextResult wraps a textual payload.
func TextResult(s string) Result { return Result{Text: s} }

// DataResult wraps a structured payload.
func DataResult(v any) Result { return Result{Data: v} }

// IsText reports whether the result carries text rather than structured data.
func (r Result) IsText() bool { return r.Data == nil }

// Value returns the payload as a single value.
func (r Result) Value() any {
	if r.IsText() {
		return r.Text
	}
	return r.Data
}

// MarshalJSON encodes the payload itself, without a wrapper object.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// String returns the text payload, or the JSON encoding of structured data.
func (r Result) String() string {
	if r.IsText() {
		return r.Text
	}
	b, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", r.Data)
	}
	return string(b)
}

// Capability is a named, schema-described unit of functionality.
type Capability struct {
	Name        string
	Description string
	InputSchema Schema
	Handler     Handler
}

type entry struct {
	Capability
	schema *jsonschema.Schema
}

// Registry holds every registered capability. It is not safe to call
// Register concurrently with lookups; populate it at startup and treat it as
// read-only afterwards.
type Registry struct {
	caps map[string]*entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]*entry)}
}

// Register adds c to the registry. It panics on an empty name, a nil handler,
// a duplicate name or a schema that does not compile, all of which are
// programming errors in the registration sequence.
func (r *Registry) Register(c Capability) {
	if c.Name == "" {
		panic("capability: registration with empty name")
	}
	if c.Handler == nil {
		panic("capability: nil handler for " + c.Name)
	}
	if _, dup := r.caps[c.Name]; dup {
		panic("capability: duplicate registration: " + c.Name)
	}
	schema, err := compileSchema(c.Name, c.InputSchema)
	if err != nil {
		panic(fmt.Sprintf("capability: %s: %v", c.Name, err))
	}
	r.caps[c.Name] = &entry{Capability: c, schema: schema}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.caps[name]
	return ok
}

// Get returns the capability registered under name.
func (r *Registry) Get(name string) (Capability, bool) {
	e, ok := r.caps[name]
	if !ok {
		return Capability{}, false
	}
	return e.Capability, true
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every registered capability sorted by name.
func (r *Registry) List() []Capability {
	names := r.Names()
	out := make([]Capability, len(names))
	for i, name := range names {
		out[i] = r.caps[name].Capability
	}
	return out
}

// Validate checks args against the schema of the named capability.
func (r *Registry) Validate(name string, args map[string]any) error {
	e, ok := r.caps[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
	return validateArgs(name, e.schema, args)
}

// Dispatch runs the named handler without validating args.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (Result, error) {
	e, ok := r.caps[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return e.Handler(ctx, args)
}
