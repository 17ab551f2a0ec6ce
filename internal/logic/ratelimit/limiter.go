package ratelimit

import (
	"fmt"
	"log/slog"
	"time"
)

// Limiter enforces a global ceiling on deployments inside a trailing window.
// It is global on purpose: the quota protects the cloud bill, not a user.
type Limiter struct {
	logger  *slog.Logger
	store   Store
	ceiling int
	window  time.Duration
}

// New creates a new rate limiter backed by the given store.
func New(
	logger *slog.Logger,
	store Store,
	ceiling int,
	window time.Duration,
) *Limiter {
	return &Limiter{
		logger:  logger,
		store:   store,
		ceiling: ceiling,
		window:  window,
	}
}

// CheckAdmission reports whether a new deployment may start at `now`.
// It does not record anything; admission and recording are deliberately
// separate so a failed create never consumes quota.
func (l *Limiter) CheckAdmission(now time.Time) (Decision, error) {
	cutoff := now.Add(-l.window)

	// Pruning is storage hygiene only; the count below re-filters, so a
	// failed prune cannot change the decision.
	if err := l.store.Prune(cutoff); err != nil {
		l.logger.Warn("prune audit log", "reason", err)
	}

	times, err := l.store.DeployTimes()
	if err != nil {
		return Decision{}, fmt.Errorf("read deploy times: %w", err)
	}

	var oldest time.Time

	recent := 0

	for _, t := range times {
		if !t.After(cutoff) {
			continue
		}

		if recent == 0 || t.Before(oldest) {
			oldest = t
		}

		recent++
	}

	remaining := l.ceiling - recent
	if remaining < 0 {
		remaining = 0
	}

	decision := Decision{
		Allowed:   recent < l.ceiling,
		Remaining: remaining,
		Ceiling:   l.ceiling,
	}

	if !decision.Allowed {
		decision.ResetAt = oldest.Add(l.window)
	}

	return decision, nil
}

// Record appends a deployment record unconditionally. Callers confirm
// admission first; Record does not re-validate.
func (l *Limiter) Record(rec Record) error {
	if err := l.store.Append(rec); err != nil {
		return fmt.Errorf("append deployment record: %w", err)
	}

	return nil
}
