package capability

import (
	"encoding/json"

	"github.com/robloxmcp/studio-assist/internal/nlcmd"
)

// stringArg extracts a string value from a JSON-decoded args map.
// Returns ("", false) when the key is absent or the value is not a string.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// stringArgOr returns the string at key, or def when it is absent or empty.
func stringArgOr(args map[string]any, key, def string) string {
	if s, ok := stringArg(args, key); ok && s != "" {
		return s
	}
	return def
}

// mapArg returns the object at key, or nil.
func mapArg(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}

// languageArg resolves the "language" argument, defaulting to
// nlcmd.DefaultLanguage when it is absent or unsupported.
func languageArg(args map[string]any) nlcmd.Language {
	s, _ := stringArg(args, "language")
	lang, ok := nlcmd.ParseLanguage(s)
	if !ok {
		return nlcmd.DefaultLanguage
	}
	return lang
}

// decodeArg re-decodes the value at key into out via JSON. Absent keys leave
// out untouched.
func decodeArg(args map[string]any, key string, out any) error {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
