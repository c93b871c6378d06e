package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/service-auth/service-auth/internal/telemetry"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetCounter().GetValue()
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := counterValue(t, telemetry.HTTPRequestsTotal, http.MethodGet, "/users/:id", "200")
	doGet(t, r, "/users/42", nil)
	after := counterValue(t, telemetry.HTTPRequestsTotal, http.MethodGet, "/users/:id", "200")
	if after != before+1 {
		t.Errorf("expected counter to grow by 1, got %v -> %v", before, after)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())

	before := counterValue(t, telemetry.HTTPRequestsTotal, http.MethodGet, "<no-route>", "404")
	doGet(t, r, "/definitely/not/registered", nil)
	after := counterValue(t, telemetry.HTTPRequestsTotal, http.MethodGet, "<no-route>", "404")
	if after != before+1 {
		t.Errorf("expected 404 counter to grow by 1, got %v -> %v", before, after)
	}
}
