package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
	"github.com/divyamohan1993/project-orchestrator/internal/infra/metrics"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/ratelimit"
)

// Service is the single-slot instance orchestrator. It admits deploys
// through the rate limiter, keeps at most one live instance in the slot,
// expires it after the configured lifetime and periodically reconciles the
// slot against the provider's actual state.
type Service struct {
	logger     *slog.Logger
	gateway    Gateway
	limiter    Limiter
	catalog    *catalog.Catalog
	scripts    ScriptBuilder
	schedule   SweepSchedule
	slot       *Slot
	lifetime   time.Duration
	namePrefix string

	ready         chan struct{}
	doneCh        chan struct{}
	inShutdown    atomic.Bool
	mu            sync.RWMutex
	lastSweepTime time.Time
}

// New creates a new orchestrator service.
func New(
	logger *slog.Logger,
	gateway Gateway,
	limiter Limiter,
	cat *catalog.Catalog,
	scripts ScriptBuilder,
	schedule SweepSchedule,
	slot *Slot,
	lifetime time.Duration,
	namePrefix string,
) *Service {
	if namePrefix == "" {
		namePrefix = DefaultNamePrefix
	}

	return &Service{
		logger:     logger,
		gateway:    gateway,
		limiter:    limiter,
		catalog:    cat,
		scripts:    scripts,
		schedule:   schedule,
		slot:       slot,
		lifetime:   lifetime,
		namePrefix: namePrefix,
		ready:      make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Deploy admits, evicts the current occupant and creates a new instance
// for the project. A failed create leaves the slot empty and does not
// consume quota.
func (s *Service) Deploy(
	ctx context.Context,
	projectID string,
	requester Requester,
	now time.Time,
) (*DeployResult, error) {
	logger := s.logger.With("orchestrator", "Deploy", "project", projectID)

	project, ok := s.catalog.Lookup(projectID)
	if !ok {
		return nil, ErrInvalidProject
	}

	decision, err := s.limiter.CheckAdmission(now)
	if err != nil {
		return nil, fmt.Errorf("check admission: %w", err)
	}

	if !decision.Allowed {
		metrics.RecordRateLimited()

		return nil, &RateLimitedError{
			Remaining: decision.Remaining,
			Ceiling:   decision.Ceiling,
			ResetAt:   decision.ResetAt,
		}
	}

	// Unconditional: clears the slot and sweeps orphans left behind by a
	// prior process incarnation.
	evicted := s.Evict(ctx)
	if len(evicted) > 0 {
		logger.InfoContext(ctx, "evicted before deploy", "names", evicted)
	}

	// Second-granularity timestamp in the name makes collisions impossible
	// by construction under the hourly quota.
	name := fmt.Sprintf("%s%s-%d", s.namePrefix, projectID, now.Unix())

	script, err := s.scripts.Render(project, now)
	if err != nil {
		return nil, fmt.Errorf("render startup script: %w", err)
	}

	created, err := s.gateway.CreateInstance(ctx, CreateSpec{
		Name:          name,
		Project:       project,
		StartupScript: script,
	})
	if err != nil {
		metrics.RecordGatewayError("create")
		metrics.RecordDeploy(projectID, "failed")

		// The provider may have partially succeeded; the next evict or
		// sweep reconciles it. No quota is consumed.
		return nil, gatewayError("create", err)
	}

	instance := Instance{
		Name:         created.Name,
		ProjectID:    projectID,
		ExternalAddr: created.ExternalAddr,
		Phase:        PhaseProvisioning,
		Port:         project.Port,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.lifetime),
		Requester:    requester,
	}

	s.slot.Occupy(instance)

	err = s.limiter.Record(ratelimit.Record{
		ID:           uuid.NewString(),
		Timestamp:    now,
		Name:         requester.Name,
		Contact:      requester.Contact,
		Organization: requester.Organization,
		SourceAddr:   requester.SourceAddr,
		TrustScore:   requester.TrustScore,
	})
	if err != nil {
		// The instance exists; losing one quota entry is preferable to
		// failing the deploy after the fact.
		logger.ErrorContext(ctx, "record deployment", "reason", err)
	}

	s.scheduleEviction(instance.Name, instance.ExpiresAt.Sub(now))

	metrics.RecordDeploy(projectID, "success")
	logger.InfoContext(ctx, "instance deployed",
		"name", instance.Name,
		"address", instance.ExternalAddr,
		"expiresAt", instance.ExpiresAt,
	)

	return &DeployResult{
		Name:         instance.Name,
		ExternalAddr: instance.ExternalAddr,
		Port:         instance.Port,
		ExpiresAt:    instance.ExpiresAt,
	}, nil
}

// Evict vacates the slot and deletes its occupant, then sweeps every
// provider-side resource under the name prefix regardless of local
// tracking. Deletes are best-effort; the fixed lifetime and the next sweep
// provide eventual correction. Returns the names it attempted to delete.
func (s *Service) Evict(ctx context.Context) []string {
	logger := s.logger.With("orchestrator", "Evict")

	var attempted []string

	if prev, ok := s.slot.Vacate(); ok {
		attempted = append(attempted, prev.Name)
		s.deleteInstance(ctx, logger, prev.Name, TriggerManual)
	}

	names, err := s.gateway.ListInstancesByPrefix(ctx, s.namePrefix)
	if err != nil {
		metrics.RecordGatewayError("list")
		logger.ErrorContext(ctx, "orphan sweep list", "reason", err)

		return attempted
	}

	for _, name := range names {
		if slices.Contains(attempted, name) {
			continue
		}

		attempted = append(attempted, name)
		s.deleteInstance(ctx, logger, name, TriggerSweep)
	}

	return attempted
}

// evictNamed deletes the occupant only if the slot still holds exactly this
// name. Stale expiry timers become no-ops here.
func (s *Service) evictNamed(ctx context.Context, name, trigger string) bool {
	logger := s.logger.With("orchestrator", "evictNamed", "name", name)

	prev, ok := s.slot.VacateNamed(name)
	if !ok {
		logger.DebugContext(ctx, "slot no longer holds instance, skipping eviction")

		return false
	}

	s.deleteInstance(ctx, logger, prev.Name, trigger)

	return true
}

// Status reconciles the slot against the provider and answers for the given
// project. A NotFound from describe is an implicit termination: the slot is
// vacated as a side effect of this nominally read-only query.
func (s *Service) Status(ctx context.Context, projectID string) (*StatusResult, error) {
	occupant, ok := s.slot.Peek()
	if !ok || occupant.ProjectID != projectID {
		return &StatusResult{Phase: PhaseNotRunning}, nil
	}

	phase, err := s.gateway.DescribeInstance(ctx, occupant.Name)
	if err != nil {
		if isNotFound(err) {
			s.slot.VacateNamed(occupant.Name)
			s.logger.InfoContext(ctx, "occupant gone provider-side, vacated slot",
				"name", occupant.Name,
			)

			return &StatusResult{Phase: PhaseNotRunning}, nil
		}

		metrics.RecordGatewayError("describe")

		return nil, gatewayError("describe", err)
	}

	return &StatusResult{
		Phase:        phase,
		Name:         occupant.Name,
		ExternalAddr: occupant.ExternalAddr,
		Port:         occupant.Port,
		ExpiresAt:    occupant.ExpiresAt,
	}, nil
}

// ReconcileCommand runs one sweep: it expires an overdue occupant and
// deletes every prefixed resource the slot does not account for. Unlike
// Evict it spares the live occupant.
func (s *Service) ReconcileCommand(ctx context.Context) error {
	logger := s.logger.With("orchestrator", "ReconcileCommand")

	now := time.Now()

	if occupant, ok := s.slot.Peek(); ok && !now.Before(occupant.ExpiresAt) {
		logger.InfoContext(ctx, "occupant past expiry", "name", occupant.Name)
		s.evictNamed(ctx, occupant.Name, TriggerExpiry)
	}

	names, err := s.gateway.ListInstancesByPrefix(ctx, s.namePrefix)
	if err != nil {
		metrics.RecordGatewayError("list")

		return fmt.Errorf("list instances: %w", err)
	}

	occupant, held := s.slot.Peek()

	swept := 0

	for _, name := range names {
		if held && name == occupant.Name {
			continue
		}

		s.deleteInstance(ctx, logger, name, TriggerSweep)

		swept++
	}

	if swept > 0 {
		logger.InfoContext(ctx, "orphans swept", "count", swept)
	}

	return nil
}

// Start launches the reconcile loop.
func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "orchestrator is shutting down, skipping start")

		return nil
	}

	go s.RunCommand(ctx)

	return nil
}

// Name returns the name of the server component.
func (s *Service) Name() string {
	return "orchestrator"
}

// Ready returns a channel that is closed once the reconcile loop runs.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Ping reports unhealthy when the reconcile loop has not completed a sweep
// for too long.
func (s *Service) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		if age := s.lastSweepAge(); age > maxSweepStaleness {
			return fmt.Errorf("last sweep was too long ago: %s", age.Round(time.Second).String())
		}

		return nil
	default:
		return fmt.Errorf("orchestrator is not ready")
	}
}

// RunCommand runs reconciliation sweeps on the configured schedule until
// the context is cancelled.
func (s *Service) RunCommand(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("orchestrator", "RunCommand")

	// Initial sweep cleans up resources left by a prior incarnation whose
	// slot state was lost.
	if err := s.ReconcileCommand(ctx); err != nil {
		logger.ErrorContext(ctx, "initial sweep", "reason", err)
	}

	s.setLastSweepTime()
	close(s.ready)

	for {
		next := s.schedule.NextAfter(time.Now())

		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			logger.InfoContext(ctx, "terminating reconcile loop")

			return
		}

		if err := s.ReconcileCommand(ctx); err != nil {
			logger.ErrorContext(ctx, "sweep", "reason", err)
		}

		s.setLastSweepTime()
	}
}

// Shutdown waits for the reconcile loop to exit.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "orchestrator is already shutting down, skipping shutdown")

		return nil
	}

	defer func() {
		s.logger.InfoContext(ctx, "orchestrator shut downed")
	}()

	s.logger.InfoContext(ctx, "shutting down orchestrator")

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before reconcile loop exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "reconcile loop exited")
	}

	return nil
}

// scheduleEviction arms a fire-and-forget timer for the instance's expiry.
// The timer is keyed by name and re-checks slot occupancy on fire, so it is
// never cancelled on early eviction; a stale fire is a no-op.
func (s *Service) scheduleEviction(name string, after time.Duration) {
	time.AfterFunc(after, func() {
		if s.inShutdown.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), backgroundCallTimeout)
		defer cancel()

		if s.evictNamed(ctx, name, TriggerExpiry) {
			s.logger.InfoContext(ctx, "instance expired", "name", name)
		}
	})
}

// deleteInstance issues one best-effort gateway delete. NotFound is success:
// the resource already expired provider-side.
func (s *Service) deleteInstance(
	ctx context.Context,
	logger *slog.Logger,
	name,
	trigger string,
) {
	err := s.gateway.DeleteInstance(ctx, name)
	if err != nil && !isNotFound(err) {
		metrics.RecordGatewayError("delete")
		logger.ErrorContext(ctx, "delete instance",
			"name", name,
			"trigger", trigger,
			"reason", err,
		)

		return
	}

	metrics.RecordEviction(trigger)
}

func (s *Service) lastSweepAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return time.Since(s.lastSweepTime)
}

func (s *Service) setLastSweepTime() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSweepTime = time.Now()
}
