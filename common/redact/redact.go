// Package redact masks credential-looking values before they are logged.
//
// Capability arguments are free-form JSON, and some extension points (Open
// Cloud, DataStore) are expected to receive API keys. Arguments therefore go
// through Args before they reach a log line.
package redact

import "strings"

// Placeholder replaces every masked value.
const Placeholder = "[REDACTED]"

var sensitiveWords = []string{"password", "passwd", "token", "secret", "apikey", "api_key", "key", "credential", "auth", "cookie"}

// Args returns a copy of args in which every non-empty string stored under a
// sensitive key is replaced by Placeholder. Nested objects and arrays are
// walked; args itself is never modified.
func Args(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && s != "" && SensitiveKey(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = value(v)
	}
	return out
}

func value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Args(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = value(e)
		}
		return out
	default:
		return v
	}
}

// SensitiveKey reports whether a key name suggests it holds a credential.
func SensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, w := range sensitiveWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
