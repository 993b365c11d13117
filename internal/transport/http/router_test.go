package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaniilOrchikov/blps-l1/pkg/testutil"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, path))
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewRouter(WithLogger(quiet()), WithHealthCheck("postgres", ok), WithHealthCheck("redis", ok))
		w := get(t, h, "/healthz")
		testutil.AssertStatus(t, w, http.StatusOK)

		body := testutil.UnmarshalResponse[healthBody](t, w)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("dependency down", func(t *testing.T) {
		h := NewRouter(WithLogger(quiet()), WithHealthCheck("postgres", ok), WithHealthCheck("redis", down))
		w := get(t, h, "/healthz")
		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)

		body := testutil.UnmarshalResponse[healthBody](t, w)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "unavailable", body.Checks["redis"])
	})

	t.Run("no dependencies configured", func(t *testing.T) {
		w := get(t, NewRouter(WithLogger(quiet())), "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "jobboard_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	w := get(t, NewRouter(WithGatherer(reg)), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jobboard_test_total 1")
}

func TestUnknownRoute(t *testing.T) {
	w := get(t, NewRouter(), "/vacancies")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
