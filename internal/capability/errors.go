package capability

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCapability is returned when no capability is registered under
	// the requested name. It affects only the request that triggered it.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrNotImplemented is returned by capabilities that are declared in the
	// registry as extension points but have no implementation yet.
	ErrNotImplemented = errors.New("capability not implemented")
)

// ValidationError reports arguments that are missing or malformed. It is
// raised at the boundary, before any handler runs.
type ValidationError struct {
	// Name is the capability or prompt the arguments were meant for.
	Name string
	// Problems lists one human-readable entry per failed constraint.
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("invalid arguments for %q", e.Name)
	}
	return fmt.Sprintf("invalid arguments for %q: %s", e.Name, strings.Join(e.Problems, "; "))
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
