package appstate_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/divyamohan1993/project-orchestrator/internal/infra/appstate"
)

func newTestState(t *testing.T) *appstate.AppState {
	t.Helper()

	quit := make(chan os.Signal, 1)

	return appstate.New(slog.Default(), time.Now(), quit)
}

type fakeComponent struct {
	name  string
	calls *[]string
	err   error
}

func (c *fakeComponent) Name() string { return c.name }

func (c *fakeComponent) Shutdown(_ context.Context) error {
	*c.calls = append(*c.calls, c.name)

	return c.err
}

func TestAppState_Transitions(t *testing.T) {
	t.Parallel()

	t.Run("happy path init to running", func(t *testing.T) {
		t.Parallel()

		s := newTestState(t)
		require.Equal(t, appstate.StateInit, s.GetState())
		require.False(t, s.IsHealthy())
		require.False(t, s.IsReady())

		require.NoError(t, s.SetStarting(t.Context()))
		require.Equal(t, appstate.StateStarting, s.GetState())
		require.False(t, s.IsReady())

		require.NoError(t, s.SetRunning(t.Context()))
		require.True(t, s.IsHealthy())
		require.True(t, s.IsReady())
	})

	t.Run("running without starting is invalid", func(t *testing.T) {
		t.Parallel()

		s := newTestState(t)

		err := s.SetRunning(t.Context())
		require.ErrorIs(t, err, appstate.ErrInvalidStateTransition)
	})

	t.Run("double starting is invalid", func(t *testing.T) {
		t.Parallel()

		s := newTestState(t)
		require.NoError(t, s.SetStarting(t.Context()))

		err := s.SetStarting(t.Context())
		require.ErrorIs(t, err, appstate.ErrInvalidStateTransition)
	})

	t.Run("terminating allowed from any live state", func(t *testing.T) {
		t.Parallel()

		s := newTestState(t)
		require.NoError(t, s.SetTerminating(t.Context()))
		require.Equal(t, appstate.StateTerminating, s.GetState())
		require.False(t, s.IsHealthy())
	})
}

func TestAppState_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("components run in reverse order and state terminates", func(t *testing.T) {
		t.Parallel()

		var calls []string

		s := newTestState(t)
		s.RegisterShutdowner(&fakeComponent{name: "a", calls: &calls})
		s.RegisterShutdowner(&fakeComponent{name: "b", calls: &calls})

		require.NoError(t, s.Shutdown(t.Context()))
		require.Equal(t, []string{"b", "a"}, calls)
		require.Equal(t, appstate.StateTerminated, s.GetState())
	})

	t.Run("component error still terminates", func(t *testing.T) {
		t.Parallel()

		var calls []string

		bad := errors.New("stuck")

		s := newTestState(t)
		s.RegisterShutdowner(&fakeComponent{name: "a", calls: &calls, err: bad})

		err := s.Shutdown(t.Context())
		require.ErrorIs(t, err, bad)
		require.Equal(t, appstate.StateTerminated, s.GetState())
	})

	t.Run("second shutdown reports already terminated", func(t *testing.T) {
		t.Parallel()

		s := newTestState(t)
		require.NoError(t, s.Shutdown(t.Context()))

		err := s.Shutdown(t.Context())
		require.ErrorIs(t, err, appstate.ErrAlreadyTerminated)
	})
}

func TestAppState_Uptime(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(-time.Minute)
	quit := make(chan os.Signal, 1)
	s := appstate.New(slog.Default(), start, quit)

	require.Equal(t, start, s.GetStartTime())
	require.GreaterOrEqual(t, s.GetUptime(), time.Minute)
}
