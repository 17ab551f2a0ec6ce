package orchestrator

import "time"

const (
	// DefaultNamePrefix is shared by every instance this orchestrator
	// creates. The orphan sweep deletes everything under it.
	DefaultNamePrefix = "demo-"

	// backgroundCallTimeout bounds gateway calls made from expiry timers
	// and sweep loops, where no request context exists.
	backgroundCallTimeout = 2 * time.Minute

	// maxSweepStaleness is how long the reconcile loop may go without a
	// completed sweep before Ping reports the service unhealthy.
	maxSweepStaleness = 2 * time.Hour
)

// Eviction triggers, for logs and metrics.
const (
	TriggerManual = "manual"
	TriggerExpiry = "expiry"
	TriggerSweep  = "sweep"
)
