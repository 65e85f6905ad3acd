// Package trace provides request IDs and their context propagation so every
// log line emitted while serving a request can be correlated.
package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// traceKey is the unexported context key used to store the trace ID.
type traceKey struct{}

// maxInboundIDLen bounds caller-supplied IDs accepted by Sanitize.
const maxInboundIDLen = 128

// GenerateID returns a new random trace ID of the form "t_<32 hex chars>".
func GenerateID() string {
	return "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sanitize returns id when it is a safe caller-supplied trace ID (printable
// ASCII without spaces, bounded length) and a freshly generated one otherwise.
func Sanitize(id string) string {
	if id == "" || len(id) > maxInboundIDLen {
		return GenerateID()
	}
	for _, r := range id {
		if r <= ' ' || r > '~' {
			return GenerateID()
		}
	}
	return id
}

// WithTraceID returns a child context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
