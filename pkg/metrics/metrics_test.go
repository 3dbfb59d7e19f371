package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestIncCounter(t *testing.T) {
	m := &Metric{Name: "test_events_total", Type: "counter_vec", Args: []string{"kind", "outcome"}}
	m.MetricCollector = NewMetric(m, "test")

	IncCounter(m, "expired", "processed")
	IncCounter(m, "expired", "processed")

	cv := m.MetricCollector.(*prometheus.CounterVec)
	var out dto.Metric
	require.NoError(t, cv.WithLabelValues("expired", "processed").Write(&out))
	require.Equal(t, 2.0, out.GetCounter().GetValue())
}

func TestHelpers_IgnoreUnregistered(t *testing.T) {
	m := &Metric{Name: "unregistered", Type: "counter_vec", Args: []string{"kind"}}
	require.NotPanics(t, func() {
		IncCounter(m, "x")
		ObserveSince(m, time.Now(), "x")
	})
}

func TestPrometheus_MiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewPrometheus(Options{Subsystem: "mwtest"})
	// second build reuses the registered collectors
	p = NewPrometheus(Options{Subsystem: "mwtest"})

	r := gin.New()
	r.Use(p.Middleware())
	r.GET("/users/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	var out dto.Metric
	require.NoError(t, p.reqCnt.WithLabelValues("200", http.MethodGet, "/users/:id").Write(&out))
	require.Equal(t, 2.0, out.GetCounter().GetValue())

	w := httptest.NewRecorder()
	p.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "mwtest_req_total")
}
