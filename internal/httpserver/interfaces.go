package httpserver

import (
	"context"
	"time"

	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
	"github.com/divyamohan1993/project-orchestrator/internal/infra/appstate"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/ratelimit"
)

// appstater is an internal interface for application state management.
type appstater interface {
	GetState() appstate.State
	IsHealthy() bool
	IsReady() bool
	GetUptime() time.Duration
	GetStartTime() time.Time
}

// orchestratorService is the slice of the orchestrator the API needs.
type orchestratorService interface {
	Deploy(
		ctx context.Context,
		projectID string,
		requester orchestrator.Requester,
		now time.Time,
	) (*orchestrator.DeployResult, error)

	Evict(ctx context.Context) []string

	Status(ctx context.Context, projectID string) (*orchestrator.StatusResult, error)
}

// admissioner answers rate-limit inspection queries.
type admissioner interface {
	CheckAdmission(now time.Time) (ratelimit.Decision, error)
}

// verifier is the bot-verification oracle consumed before deploy admission.
type verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (float64, error)
}

// projectCatalog lists the deployable projects.
type projectCatalog interface {
	List() []catalog.Project
}

// verificationFailed is a private interface for checking rejected-token
// errors without importing the adapter package.
type verificationFailed interface {
	IsVerificationFailed()
}
