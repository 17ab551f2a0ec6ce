package ratelimit

import "time"

// Record is one immutable deployment fact: when it happened and who asked for it.
// Records are appended to the audit log and never mutated afterwards.
type Record struct {
	ID           string
	Timestamp    time.Time
	Name         string
	Contact      string
	Organization string
	SourceAddr   string
	TrustScore   float64
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	Ceiling   int

	// ResetAt is the time the oldest in-window deployment leaves the window.
	// Zero when the limiter is not at capacity.
	ResetAt time.Time
}
