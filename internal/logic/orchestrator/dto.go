package orchestrator

import (
	"time"

	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
)

// LifecyclePhase is the provider execution state normalized to a fixed set.
type LifecyclePhase string

const (
	// PhaseNotRunning is local-only: the slot is empty.
	PhaseNotRunning LifecyclePhase = "not_running"

	PhaseProvisioning LifecyclePhase = "provisioning"
	PhaseRunning      LifecyclePhase = "running"
	PhaseStopping     LifecyclePhase = "stopping"
	PhaseTerminated   LifecyclePhase = "terminated"
)

// APIStatus maps the phase onto the vocabulary exposed over HTTP.
// Terminated reports as stopping: the resource still exists provider-side
// and the next sweep removes it.
func (p LifecyclePhase) APIStatus() string {
	switch p {
	case PhaseProvisioning:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping, PhaseTerminated:
		return "stopping"
	case PhaseNotRunning:
		return "not_running"
	}

	return "not_running"
}

// Requester identifies who asked for a deployment. Free text apart from the
// trust score, which comes from the verification oracle.
type Requester struct {
	Name         string
	Contact      string
	Organization string
	SourceAddr   string
	TrustScore   float64
}

// Instance describes the one cloud resource the slot may hold.
type Instance struct {
	Name         string
	ProjectID    string
	ExternalAddr string
	Phase        LifecyclePhase
	Port         int
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Requester    Requester
}

// CreateSpec is everything the gateway needs to create one instance.
type CreateSpec struct {
	Name          string
	Project       catalog.Project
	StartupScript string
}

// CreatedInstance is the gateway's view of a freshly created resource.
// ExternalAddr is empty until the provider assigns one.
type CreatedInstance struct {
	Name         string
	ExternalAddr string
}

// DeployResult is the success payload of Deploy.
type DeployResult struct {
	Name         string
	ExternalAddr string
	Port         int
	ExpiresAt    time.Time
}

// StatusResult is the answer to a status query.
type StatusResult struct {
	Phase        LifecyclePhase
	Name         string
	ExternalAddr string
	Port         int
	ExpiresAt    time.Time
}
