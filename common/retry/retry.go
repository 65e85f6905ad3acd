// Package retry re-runs operations that fail with transient errors, backing
// off exponentially between attempts.
//
//	err := retry.Do(ctx, retry.Policy{Attempts: 4, Retryable: isBusy}, func() error {
//	    return store.write(ctx)
//	})
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy controls how Do retries.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below 1 mean a single call.
	Attempts int
	// BaseDelay is the wait after the first failure; it doubles after each
	// further failure up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable classifies errors. When nil every error is retried.
	Retryable func(err error) bool
}

// DefaultPolicy suits short local contention such as a locked database.
var DefaultPolicy = Policy{
	Attempts:  4,
	BaseDelay: 10 * time.Millisecond,
	MaxDelay:  250 * time.Millisecond,
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = func(error) bool { return true }
	}
	return p
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. It returns the last error from fn, joined with the
// context error when cancellation ended the loop.
func Do(ctx context.Context, p Policy, fn func() error) error {
	p = p.normalized()
	delay := p.BaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.Attempts || !p.Retryable(err) {
			return err
		}

		slog.Debug("retrying after transient error", "attempt", attempt, "of", p.Attempts, "delay", delay, "err", err)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
		delay = min(delay*2, p.MaxDelay)
	}
}
