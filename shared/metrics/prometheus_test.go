package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsIsSingleton(t *testing.T) {
	assert.Same(t, NewMetrics(), NewMetrics())
}

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(m.Middleware("metrics-test"))
	router.GET("/surveys/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", Handler())

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/surveys/"+id, nil))
	}

	got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("metrics-test", "GET", "/surveys/:id", "200"))
	assert.Equal(t, 2.0, got)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), "surveyhub_http_requests_total"))
}

func TestRecordLimitCheck(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.limitChecks.WithLabelValues("surveys", "free", "denied"))
	m.RecordLimitCheck("surveys", "free", false)
	assert.Equal(t, before+1, testutil.ToFloat64(m.limitChecks.WithLabelValues("surveys", "free", "denied")))
}
