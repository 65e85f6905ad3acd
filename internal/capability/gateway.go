package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/robloxmcp/studio-assist/common/redact"
	"github.com/robloxmcp/studio-assist/internal/observability"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

// Gateway is the single entry point for invoking capabilities on behalf of an
// external caller. It is safe for concurrent use once the registry has been
// populated.
type Gateway struct {
	registry *Registry
}

// NewGateway returns a Gateway over registry.
func NewGateway(registry *Registry) *Gateway {
	return &Gateway{registry: registry}
}

// Registry returns the underlying registry.
func (g *Gateway) Registry() *Registry { return g.registry }

// Execute resolves name, validates args against its schema and runs the
// handler. An unregistered name fails with ErrUnknownCapability and never
// reaches a handler; invalid arguments fail with *ValidationError.
func (g *Gateway) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	log := observability.WithTrace(ctx).With("capability", name)

	if !g.registry.Has(name) {
		err := unknownCapability(name, g.registry.Names())
		log.Warn("capability dispatch rejected", "err", err)
		return Result{}, err
	}
	if err := g.registry.Validate(name, args); err != nil {
		log.Info("capability arguments rejected", "err", err)
		return Result{}, err
	}

	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("capability call", "args", redact.Args(args))
	}
	start := time.Now()
	res, err := g.registry.Dispatch(ctx, name, args)
	if err != nil {
		level := log.Error
		switch {
		case errors.Is(err, ErrNotImplemented):
			level = log.Debug
		case errors.Is(err, wizard.ErrUnknownStep):
			level = log.Info
		}
		level("capability failed", "err", err, "duration", time.Since(start))
		return Result{}, err
	}
	log.Debug("capability executed", "duration", time.Since(start), "text", res.IsText())
	return res, nil
}

// unknownCapability builds the error for name, suggesting the closest
// registered name when one is within typo distance.
func unknownCapability(name string, registered []string) error {
	if s := closest(name, registered); s != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownCapability, name, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
}

// closest returns the candidate with the smallest edit distance to name, or
// "" when none is close enough to be a plausible typo.
func closest(name string, candidates []string) string {
	if len(name) < 3 {
		return ""
	}
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if d > TypoLimit(len(c)) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// TypoLimit is the largest edit distance still treated as a typo of a word
// with the given length.
func TypoLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
