package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var ErrInvalidProject = errors.New("unknown project")

// RateLimitedError rejects a deploy because the trailing-window quota is
// exhausted. ResetAt is when the oldest in-window deployment expires.
type RateLimitedError struct {
	Remaining int
	Ceiling   int
	ResetAt   time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitedError) IsRateLimited() {}

// GatewayError wraps a failed provider call. A timed-out call is still a
// GatewayError; the outcome is ambiguous and the next evict or sweep
// reconciles whatever the provider actually did.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a deadline or network
// timeout rather than a provider rejection.
func (e *GatewayError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func gatewayError(op string, err error) *GatewayError {
	return &GatewayError{Op: op, Err: err}
}

// isNotFound checks the adapter's "resource does not exist" marker without
// importing the adapter package.
func isNotFound(err error) bool {
	var target notFound

	return errors.As(err, &target)
}
