package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/platform/metrics"
	"lookout/pkg/platform/middleware/requestid"
)

func serve(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	w, body := serve(t, NewRouter(New()), "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(requestid.Header))
}

func TestReady(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	t.Run("all checks pass", func(t *testing.T) {
		h := New(WithMetrics(m), WithCheck("redis", func(context.Context) error { return nil }))
		w, body := serve(t, NewRouter(h), "/readyz")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["ready"])
	})

	t.Run("a failing check reports unavailable", func(t *testing.T) {
		h := New(
			WithMetrics(m),
			WithCheck("redis", func(context.Context) error { return nil }),
			WithCheck("postgres", func(context.Context) error { return errors.New("connection refused") }),
		)
		w, body := serve(t, NewRouter(h), "/readyz")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, false, body["ready"])
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "connection refused", checks["postgres"])
		assert.Equal(t, "ok", checks["redis"])
		assert.InDelta(t, 1, testutil.ToFloat64(m.ReadyChecks.WithLabelValues("postgres", "fail")), 0)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	m.SetBackends("memory", "postgres")

	h := New(WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	w, _ := serve(t, NewRouter(h), "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lookout_backend_info{cache="memory",ledger="postgres"} 1`)
}
