package ratelimit

import "time"

// Store is the port interface for the durable audit log.
// Implementations are provided by adapters in the infra layer.
type Store interface {
	// DeployTimes returns all recorded deployment timestamps in append order.
	DeployTimes() ([]time.Time, error)

	// Append records a deployment. The requester part of the record is kept
	// forever as an audit trail.
	Append(rec Record) error

	// Prune drops deployment timestamps strictly before the cutoff.
	// It must never drop timestamps still inside the window.
	Prune(cutoff time.Time) error
}
