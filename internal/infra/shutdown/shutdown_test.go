package shutdown_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/divyamohan1993/project-orchestrator/internal/infra/shutdown"
)

type fakeQuiter struct {
	ch chan os.Signal
}

func (q *fakeQuiter) Quit() <-chan os.Signal {
	return q.ch
}

// fakeComponent records shutdown order and can fail on demand.
type fakeComponent struct {
	name  string
	err   error
	order *[]string
}

func (c *fakeComponent) Name() string { return c.name }

func (c *fakeComponent) Shutdown(_ context.Context) error {
	*c.order = append(*c.order, c.name)

	return c.err
}

func TestHandler_HandleSignals(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	t.Run("signal cancels context", func(t *testing.T) {
		t.Parallel()

		quiter := &fakeQuiter{ch: make(chan os.Signal, 1)}
		handler := shutdown.New(logger, quiter)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		done := make(chan struct{})

		go func() {
			handler.HandleSignals(ctx, cancel)
			close(done)
		}()

		quiter.ch <- syscall.SIGTERM

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context was not cancelled")
		}

		<-done
	})

	t.Run("context done terminates handler without signal", func(t *testing.T) {
		t.Parallel()

		quiter := &fakeQuiter{ch: make(chan os.Signal)}
		handler := shutdown.New(logger, quiter)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		done := make(chan struct{})

		go func() {
			handler.HandleSignals(ctx, func() {})
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not return")
		}
	})
}

func TestGracefulShutdown(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	t.Run("reverse order", func(t *testing.T) {
		t.Parallel()

		var order []string

		components := []shutdown.Shutdowner{
			&fakeComponent{name: "first", order: &order},
			&fakeComponent{name: "second", order: &order},
			&fakeComponent{name: "third", order: &order},
		}

		err := shutdown.GracefulShutdown(t.Context(), logger, components)
		require.NoError(t, err)
		require.Equal(t, []string{"third", "second", "first"}, order)
	})

	t.Run("errors are collected, not short-circuited", func(t *testing.T) {
		t.Parallel()

		var order []string

		bad := errors.New("port still busy")
		components := []shutdown.Shutdowner{
			&fakeComponent{name: "first", order: &order},
			&fakeComponent{name: "second", err: bad, order: &order},
		}

		err := shutdown.GracefulShutdown(t.Context(), logger, components)
		require.ErrorIs(t, err, bad)
		require.Equal(t, []string{"second", "first"}, order)
	})

	t.Run("empty list is fine", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, shutdown.GracefulShutdown(t.Context(), logger, nil))
	})
}
