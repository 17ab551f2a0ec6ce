package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/ratelimit"
)

type notFoundErr struct{ name string }

func (e *notFoundErr) Error() string { return fmt.Sprintf("instance %q not found", e.name) }

func (e *notFoundErr) IsNotFound() {}

// fakeGateway is a hand-written in-memory compute provider. It records
// every call in order so tests can assert delete-before-create sequencing.
type fakeGateway struct {
	mu   sync.Mutex
	live map[string]orchestrator.LifecyclePhase
	ops  []string

	createErr   error
	describeErr error
	listErr     error
	addr        string

	// onCreate runs before the instance is registered, outside the lock.
	// Tests use it as a barrier to interleave concurrent deploys.
	onCreate func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		live: make(map[string]orchestrator.LifecyclePhase),
		addr: "203.0.113.7",
	}
}

func (g *fakeGateway) CreateInstance(
	_ context.Context,
	spec orchestrator.CreateSpec,
) (*orchestrator.CreatedInstance, error) {
	if g.onCreate != nil {
		g.onCreate()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.ops = append(g.ops, "create:"+spec.Name)

	if g.createErr != nil {
		return nil, g.createErr
	}

	g.live[spec.Name] = orchestrator.PhaseProvisioning

	return &orchestrator.CreatedInstance{Name: spec.Name, ExternalAddr: g.addr}, nil
}

func (g *fakeGateway) DescribeInstance(
	_ context.Context,
	name string,
) (orchestrator.LifecyclePhase, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ops = append(g.ops, "describe:"+name)

	if g.describeErr != nil {
		return "", g.describeErr
	}

	phase, ok := g.live[name]
	if !ok {
		return "", &notFoundErr{name: name}
	}

	return phase, nil
}

func (g *fakeGateway) DeleteInstance(_ context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ops = append(g.ops, "delete:"+name)

	if _, ok := g.live[name]; !ok {
		return &notFoundErr{name: name}
	}

	delete(g.live, name)

	return nil
}

func (g *fakeGateway) ListInstancesByPrefix(_ context.Context, prefix string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ops = append(g.ops, "list:"+prefix)

	if g.listErr != nil {
		return nil, g.listErr
	}

	var names []string

	for name := range g.live {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

func (g *fakeGateway) liveNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var names []string
	for name := range g.live {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (g *fakeGateway) opLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, len(g.ops))
	copy(out, g.ops)

	return out
}

func (g *fakeGateway) setPhase(name string, phase orchestrator.LifecyclePhase) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.live[name] = phase
}

type fakeLimiter struct {
	mu        sync.Mutex
	decision  ratelimit.Decision
	checkErr  error
	recordErr error
	records   []ratelimit.Record
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{decision: ratelimit.Decision{Allowed: true, Remaining: 3, Ceiling: 3}}
}

func (l *fakeLimiter) CheckAdmission(_ time.Time) (ratelimit.Decision, error) {
	if l.checkErr != nil {
		return ratelimit.Decision{}, l.checkErr
	}

	return l.decision, nil
}

func (l *fakeLimiter) Record(rec ratelimit.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.recordErr != nil {
		return l.recordErr
	}

	l.records = append(l.records, rec)

	return nil
}

func (l *fakeLimiter) recorded() []ratelimit.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ratelimit.Record, len(l.records))
	copy(out, l.records)

	return out
}

type fakeScripts struct{ err error }

func (f *fakeScripts) Render(_ catalog.Project, _ time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return "#!/bin/bash\necho boot\n", nil
}

type fakeSchedule struct{}

func (fakeSchedule) NextAfter(after time.Time) time.Time { return after.Add(time.Hour) }

const (
	projectSetu      = "setu-voice-ondc"
	projectCityguard = "cityguard-response-hub"
)

func newService(
	gw *fakeGateway,
	limiter orchestrator.Limiter,
	lifetime time.Duration,
) (*orchestrator.Service, *orchestrator.Slot) {
	logger := slog.Default()
	slot := orchestrator.NewSlot()

	svc := orchestrator.New(
		logger,
		gw,
		limiter,
		catalog.New(logger, ""),
		&fakeScripts{},
		fakeSchedule{},
		slot,
		lifetime,
		"demo-",
	)

	return svc, slot
}

func TestService_Deploy(t *testing.T) {
	t.Parallel()

	t.Run("creates instance and records deployment", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		limiter := allowAll()
		svc, slot := newService(gw, limiter, time.Hour)

		now := time.Now()
		requester := orchestrator.Requester{
			Name:       "Asha",
			Contact:    "asha@example.org",
			SourceAddr: "198.51.100.3",
			TrustScore: 0.9,
		}

		result, err := svc.Deploy(t.Context(), projectSetu, requester, now)
		require.NoError(t, err)

		wantName := fmt.Sprintf("demo-%s-%d", projectSetu, now.Unix())
		require.Equal(t, wantName, result.Name)
		require.Equal(t, "203.0.113.7", result.ExternalAddr)
		require.Equal(t, 3000, result.Port)
		require.Equal(t, now.Add(time.Hour), result.ExpiresAt)

		require.Equal(t, []string{wantName}, gw.liveNames())

		occupant, ok := slot.Peek()
		require.True(t, ok)
		require.Equal(t, wantName, occupant.Name)
		require.Equal(t, projectSetu, occupant.ProjectID)

		records := limiter.recorded()
		require.Len(t, records, 1)
		require.NotEmpty(t, records[0].ID)
		require.Equal(t, "Asha", records[0].Name)
		require.Equal(t, now, records[0].Timestamp)
	})

	t.Run("unknown project is rejected before admission", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		limiter := allowAll()
		svc, _ := newService(gw, limiter, time.Hour)

		_, err := svc.Deploy(t.Context(), "no-such-project", orchestrator.Requester{}, time.Now())
		require.ErrorIs(t, err, orchestrator.ErrInvalidProject)
		require.Empty(t, gw.opLog())
		require.Empty(t, limiter.recorded())
	})

	t.Run("rate limited deploy touches no cloud state", func(t *testing.T) {
		t.Parallel()

		resetAt := time.Now().Add(20 * time.Minute)
		gw := newFakeGateway()
		limiter := &fakeLimiter{decision: ratelimit.Decision{
			Allowed: false,
			Ceiling: 3,
			ResetAt: resetAt,
		}}
		svc, _ := newService(gw, limiter, time.Hour)

		_, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, time.Now())

		var rateErr *orchestrator.RateLimitedError
		require.ErrorAs(t, err, &rateErr)
		require.Equal(t, resetAt, rateErr.ResetAt)
		require.Equal(t, 3, rateErr.Ceiling)
		require.Empty(t, gw.opLog())
	})

	t.Run("evicts previous occupant before creating", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		limiter := allowAll()
		svc, _ := newService(gw, limiter, time.Hour)

		first := time.Now()

		_, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, first)
		require.NoError(t, err)

		second := first.Add(10 * time.Minute)

		result, err := svc.Deploy(t.Context(), projectCityguard, orchestrator.Requester{}, second)
		require.NoError(t, err)

		// The newcomer is the only live instance.
		require.Equal(t, []string{result.Name}, gw.liveNames())

		// The old occupant was deleted strictly before the new create.
		firstName := fmt.Sprintf("demo-%s-%d", projectSetu, first.Unix())
		ops := gw.opLog()
		deleteIdx := indexOfOp(t, ops, "delete:"+firstName)
		createIdx := indexOfOp(t, ops, "create:"+result.Name)
		require.Less(t, deleteIdx, createIdx)
	})

	t.Run("failed create consumes no quota and leaves slot empty", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		gw.createErr = errors.New("quota exceeded in zone")
		limiter := allowAll()
		svc, slot := newService(gw, limiter, time.Hour)

		_, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, time.Now())

		var gatewayErr *orchestrator.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		require.Equal(t, "create", gatewayErr.Op)

		require.Empty(t, limiter.recorded())

		_, ok := slot.Peek()
		require.False(t, ok)
	})

	t.Run("timed out create reports as gateway timeout", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		gw.createErr = fmt.Errorf("wait operation: %w", context.DeadlineExceeded)
		svc, _ := newService(gw, allowAll(), time.Hour)

		_, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, time.Now())

		var gatewayErr *orchestrator.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		require.True(t, gatewayErr.Timeout())
	})

	t.Run("record failure does not fail the deploy", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		limiter := allowAll()
		limiter.recordErr = errors.New("disk full")
		svc, slot := newService(gw, limiter, time.Hour)

		result, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, time.Now())
		require.NoError(t, err)
		require.Equal(t, []string{result.Name}, gw.liveNames())

		_, ok := slot.Peek()
		require.True(t, ok)
	})

	t.Run("admission check error propagates", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		limiter := &fakeLimiter{checkErr: errors.New("corrupt audit log")}
		svc, _ := newService(gw, limiter, time.Hour)

		_, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, time.Now())
		require.Error(t, err)
		require.Empty(t, gw.opLog())
	})
}

// Two deploys that both pass the eviction step before either create lands
// leave two live instances. The slot keeps one; the next reconcile sweep
// deletes the other, restoring the single-instance invariant.
func TestService_DoubleDeployRace(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	svc, slot := newService(gw, allowAll(), time.Hour)

	var barrier sync.WaitGroup

	barrier.Add(2)
	gw.onCreate = func() {
		barrier.Done()
		barrier.Wait()
	}

	now := time.Now()

	var wg sync.WaitGroup

	errs := make(chan error, 2)

	for i, projectID := range []string{projectSetu, projectCityguard} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Deploy(
				t.Context(),
				projectID,
				orchestrator.Requester{},
				now.Add(time.Duration(i)*time.Second),
			)
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Both creates landed: the at-most-one invariant is broken.
	require.Len(t, gw.liveNames(), 2)

	gw.onCreate = nil

	require.NoError(t, svc.ReconcileCommand(t.Context()))

	// The sweep kept exactly the slot's occupant.
	occupant, ok := slot.Peek()
	require.True(t, ok)
	require.Equal(t, []string{occupant.Name}, gw.liveNames())
}

func TestService_Evict(t *testing.T) {
	t.Parallel()

	t.Run("empty slot still sweeps orphans", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		gw.setPhase("demo-leftover-1", orchestrator.PhaseRunning)
		gw.setPhase("demo-leftover-2", orchestrator.PhaseTerminated)
		gw.setPhase("unrelated-vm", orchestrator.PhaseRunning)
		svc, _ := newService(gw, allowAll(), time.Hour)

		attempted := svc.Evict(t.Context())
		require.ElementsMatch(t, []string{"demo-leftover-1", "demo-leftover-2"}, attempted)
		require.Equal(t, []string{"unrelated-vm"}, gw.liveNames())
	})

	t.Run("occupant already gone cloud-side is not an error", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		slot.Occupy(orchestrator.Instance{Name: "demo-ghost-1", ProjectID: projectSetu})

		attempted := svc.Evict(t.Context())
		require.Equal(t, []string{"demo-ghost-1"}, attempted)

		_, ok := slot.Peek()
		require.False(t, ok)
	})

	t.Run("occupant deleted once when list repeats it", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		// Occupant is live, so the list returns it again after the delete
		// already happened; Evict must not double-report it.
		gw.setPhase("demo-app-5", orchestrator.PhaseRunning)
		slot.Occupy(orchestrator.Instance{Name: "demo-app-5", ProjectID: projectSetu})

		attempted := svc.Evict(t.Context())
		require.Equal(t, []string{"demo-app-5"}, attempted)
		require.Empty(t, gw.liveNames())
	})

	t.Run("list failure stops the sweep but not the eviction", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		gw.listErr = errors.New("api unavailable")
		svc, slot := newService(gw, allowAll(), time.Hour)

		gw.setPhase("demo-app-6", orchestrator.PhaseRunning)
		slot.Occupy(orchestrator.Instance{Name: "demo-app-6", ProjectID: projectSetu})

		attempted := svc.Evict(t.Context())
		require.Equal(t, []string{"demo-app-6"}, attempted)
	})
}

func TestService_Status(t *testing.T) {
	t.Parallel()

	t.Run("empty slot answers not running without provider call", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, _ := newService(gw, allowAll(), time.Hour)

		result, err := svc.Status(t.Context(), projectSetu)
		require.NoError(t, err)
		require.Equal(t, orchestrator.PhaseNotRunning, result.Phase)
		require.Empty(t, gw.opLog())
	})

	t.Run("occupant of another project answers not running", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		gw.setPhase("demo-other-9", orchestrator.PhaseRunning)
		slot.Occupy(orchestrator.Instance{Name: "demo-other-9", ProjectID: projectCityguard})

		result, err := svc.Status(t.Context(), projectSetu)
		require.NoError(t, err)
		require.Equal(t, orchestrator.PhaseNotRunning, result.Phase)

		// The other project's occupant is untouched.
		_, ok := slot.Peek()
		require.True(t, ok)
		require.Empty(t, gw.opLog())
	})

	t.Run("reports the provider phase for the occupant", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		expiresAt := time.Now().Add(30 * time.Minute)
		gw.setPhase("demo-app-7", orchestrator.PhaseRunning)
		slot.Occupy(orchestrator.Instance{
			Name:         "demo-app-7",
			ProjectID:    projectSetu,
			ExternalAddr: "203.0.113.9",
			Port:         3000,
			ExpiresAt:    expiresAt,
		})

		result, err := svc.Status(t.Context(), projectSetu)
		require.NoError(t, err)
		require.Equal(t, orchestrator.PhaseRunning, result.Phase)
		require.Equal(t, "demo-app-7", result.Name)
		require.Equal(t, "203.0.113.9", result.ExternalAddr)
		require.Equal(t, 3000, result.Port)
		require.Equal(t, expiresAt, result.ExpiresAt)
	})

	t.Run("not found vacates the slot", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		// In the slot but not cloud-side: the spot VM was preempted.
		slot.Occupy(orchestrator.Instance{Name: "demo-app-8", ProjectID: projectSetu})

		result, err := svc.Status(t.Context(), projectSetu)
		require.NoError(t, err)
		require.Equal(t, orchestrator.PhaseNotRunning, result.Phase)

		_, ok := slot.Peek()
		require.False(t, ok)

		// The second query answers locally.
		_, err = svc.Status(t.Context(), projectSetu)
		require.NoError(t, err)
		require.Equal(t, []string{"describe:demo-app-8"}, gw.opLog())
	})

	t.Run("provider failure surfaces as gateway error", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		gw.describeErr = errors.New("api unavailable")
		svc, slot := newService(gw, allowAll(), time.Hour)

		slot.Occupy(orchestrator.Instance{Name: "demo-app-9", ProjectID: projectSetu})

		_, err := svc.Status(t.Context(), projectSetu)

		var gatewayErr *orchestrator.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		require.Equal(t, "describe", gatewayErr.Op)

		// An ambiguous failure never vacates the slot.
		_, ok := slot.Peek()
		require.True(t, ok)
	})
}

func TestService_ReconcileCommand(t *testing.T) {
	t.Parallel()

	t.Run("spares the live occupant and sweeps orphans", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		gw.setPhase("demo-app-1", orchestrator.PhaseRunning)
		gw.setPhase("demo-orphan-1", orchestrator.PhaseRunning)
		slot.Occupy(orchestrator.Instance{
			Name:      "demo-app-1",
			ProjectID: projectSetu,
			ExpiresAt: time.Now().Add(time.Hour),
		})

		require.NoError(t, svc.ReconcileCommand(t.Context()))
		require.Equal(t, []string{"demo-app-1"}, gw.liveNames())

		_, ok := slot.Peek()
		require.True(t, ok)
	})

	t.Run("evicts an overdue occupant", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		svc, slot := newService(gw, allowAll(), time.Hour)

		gw.setPhase("demo-app-2", orchestrator.PhaseRunning)
		slot.Occupy(orchestrator.Instance{
			Name:      "demo-app-2",
			ProjectID: projectSetu,
			ExpiresAt: time.Now().Add(-time.Minute),
		})

		require.NoError(t, svc.ReconcileCommand(t.Context()))
		require.Empty(t, gw.liveNames())

		_, ok := slot.Peek()
		require.False(t, ok)
	})

	t.Run("list failure is returned", func(t *testing.T) {
		t.Parallel()

		gw := newFakeGateway()
		gw.listErr = errors.New("api unavailable")
		svc, _ := newService(gw, allowAll(), time.Hour)

		require.Error(t, svc.ReconcileCommand(t.Context()))
	})
}

// A deploy with a short lifetime is evicted by its expiry timer without any
// further calls.
func TestService_ExpiryTimer(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	svc, slot := newService(gw, allowAll(), 50*time.Millisecond)

	result, err := svc.Deploy(t.Context(), projectSetu, orchestrator.Requester{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{result.Name}, gw.liveNames())

	require.Eventually(t, func() bool {
		_, ok := slot.Peek()

		return !ok && len(gw.liveNames()) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func indexOfOp(t *testing.T, ops []string, op string) int {
	t.Helper()

	for i, o := range ops {
		if o == op {
			return i
		}
	}

	t.Fatalf("operation %q not found in %v", op, ops)

	return -1
}
