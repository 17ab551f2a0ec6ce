package recaptcha_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divyamohan1993/project-orchestrator/internal/adapters/outbound/recaptcha"
)

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	t.Run("empty secret passes with zero score", func(t *testing.T) {
		t.Parallel()

		v := recaptcha.New(logger, "", "")

		score, err := v.Verify(t.Context(), "any-token", "203.0.113.7")
		require.NoError(t, err)
		require.Zero(t, score)
	})

	t.Run("missing token fails verification", func(t *testing.T) {
		t.Parallel()

		v := recaptcha.New(logger, "http://unused.invalid", "secret")

		_, err := v.Verify(t.Context(), "", "")
		requireVerificationFailed(t, err)
	})

	t.Run("successful token returns score", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			require.Equal(t, "secret", r.PostForm.Get("secret"))
			require.Equal(t, "tok-1", r.PostForm.Get("response"))
			require.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))

			_, _ = w.Write([]byte(`{"success": true, "score": 0.9}`))
		}))
		t.Cleanup(srv.Close)

		v := recaptcha.New(logger, srv.URL, "secret")

		score, err := v.Verify(t.Context(), "tok-1", "203.0.113.7")
		require.NoError(t, err)
		require.InDelta(t, 0.9, score, 1e-9)
	})

	t.Run("rejected token returns verification error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
		}))
		t.Cleanup(srv.Close)

		v := recaptcha.New(logger, srv.URL, "secret")

		_, err := v.Verify(t.Context(), "bad-token", "")
		requireVerificationFailed(t, err)
		require.Contains(t, err.Error(), "invalid-input-response")
	})

	t.Run("upstream error is not a verification failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)

		v := recaptcha.New(logger, srv.URL, "secret")

		_, err := v.Verify(t.Context(), "tok-1", "")
		require.Error(t, err)

		var target *recaptcha.VerificationError
		require.False(t, errors.As(err, &target))
	})
}

func requireVerificationFailed(t *testing.T, err error) {
	t.Helper()

	var target *recaptcha.VerificationError

	require.Error(t, err)
	require.True(t, errors.As(err, &target))
}
