package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/track-cli/internal/model"
	"github.com/sells-group/track-cli/pkg/carrier"
)

func TestTrackingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTrackingMetrics("track", reg)

	m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRuns))

	m.ItemDone(carrier.KindNone, 120*time.Millisecond)
	m.ItemDone(carrier.KindTimeout, time.Second)
	m.ItemDone(carrier.KindNone, 80*time.Millisecond)
	m.RunDone(model.RunStatusCancelled, 2*time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("cancelled")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestTrackingMetrics_ReRegisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewTrackingMetrics("track", reg)
	b := NewTrackingMetrics("track", reg)

	a.RunDone(model.RunStatusCompleted, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.RunsTotal.WithLabelValues("completed")))
}

func TestSessionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := 3
	g := NewSessionsGauge("track", reg, func() int { return n })

	assert.Equal(t, 3.0, testutil.ToFloat64(g))
	n = 5
	assert.Equal(t, 5.0, testutil.ToFloat64(g))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics("track", reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/shipments/{identifier}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/shipments/1Z12345E0205271688", "/api/shipments/other", "/health"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReqTotal.WithLabelValues(http.MethodGet, "/api/shipments/{identifier}", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReqTotal.WithLabelValues(http.MethodGet, "/health", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ReqDur))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}
