package orchestrator

import (
	"context"
	"time"

	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/ratelimit"
)

// Gateway is the port interface for the cloud provider's compute API.
// Calls are blocking, may take tens of seconds and may fail or time out.
// Implementations are provided by adapters in the outbound layer.
type Gateway interface {
	// CreateInstance requests a new preemptible instance. On error the
	// caller must not assume the resource was not created.
	CreateInstance(ctx context.Context, spec CreateSpec) (*CreatedInstance, error)

	// DescribeInstance returns the provider-reported phase. A missing
	// resource is reported through a notFound error.
	DescribeInstance(ctx context.Context, name string) (LifecyclePhase, error)

	// DeleteInstance removes the named resource. Deleting a name that no
	// longer exists yields a notFound error, which callers treat as success.
	DeleteInstance(ctx context.Context, name string) error

	// ListInstancesByPrefix returns the names of all live resources whose
	// name starts with the prefix, for reconciliation sweeps.
	ListInstancesByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Limiter is the port interface for the global deployment quota.
type Limiter interface {
	CheckAdmission(now time.Time) (ratelimit.Decision, error)
	Record(rec ratelimit.Record) error
}

// ScriptBuilder renders the boot-time startup script for a project.
type ScriptBuilder interface {
	Render(p catalog.Project, generatedAt time.Time) (string, error)
}

// SweepSchedule yields the next reconciliation sweep time.
type SweepSchedule interface {
	NextAfter(after time.Time) time.Time
}

// notFound is a private interface for checking "not found" errors
// without importing the adapter package.
type notFound interface {
	IsNotFound()
}
