package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsBusy_IgnoresOtherErrors(t *testing.T) {
	for _, err := range []error{
		errors.New("database is locked"),
		fmt.Errorf("%w: abc", ErrSessionNotFound),
		nil,
	} {
		if isBusy(err) {
			t.Errorf("isBusy(%v) = true", err)
		}
	}
}
