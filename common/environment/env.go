// Package environment reads typed configuration values from environment
// variables.
//
// Every helper returns the supplied default when the variable is unset, empty
// or unparsable, so a misconfigured value never aborts startup on its own.
// Callers that need stricter checks validate the resulting config.
package environment

import (
	"os"
	"strconv"
	"time"
)

// StringOr returns the value of the named environment variable, or defaultValue
// if the variable is unset or empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// BoolOr parses the named environment variable as a boolean. Recognized values
// are the same as strconv.ParseBool ("1", "t", "true", "0", "f", "false", etc.).
func BoolOr(name string, defaultValue bool) bool {
	return parseOr(name, defaultValue, strconv.ParseBool)
}

// IntOr parses the named environment variable as a decimal integer.
func IntOr(name string, defaultValue int) int {
	return parseOr(name, defaultValue, strconv.Atoi)
}

// FloatOr parses the named environment variable as a float64 (e.g. "0.7").
func FloatOr(name string, defaultValue float64) float64 {
	return parseOr(name, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// DurationOr parses the named environment variable as a time.Duration (e.g.
// "30s", "5m", "1h").
func DurationOr(name string, defaultValue time.Duration) time.Duration {
	return parseOr(name, defaultValue, time.ParseDuration)
}

func parseOr[T any](name string, defaultValue T, parse func(string) (T, error)) T {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	out, err := parse(v)
	if err != nil {
		return defaultValue
	}
	return out
}
