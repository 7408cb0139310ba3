// Package metrics provides the Prometheus metrics shared by every service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestsInFlight  prometheus.Gauge
	limitChecks       *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	wsConnections     prometheus.Gauge
	emailsSent        *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
	healthStatus      *prometheus.GaugeVec
}

var (
	globalMetrics *Metrics
	once          sync.Once
)

// NewMetrics creates and registers the metrics once per process.
func NewMetrics() *Metrics {
	once.Do(func() {
		globalMetrics = &Metrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "surveyhub_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"service", "method", "path", "status"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "surveyhub_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"service", "method", "path"},
			),
			requestsInFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "surveyhub_http_requests_in_flight",
					Help: "Number of HTTP requests currently being processed",
				},
			),
			limitChecks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "surveyhub_usage_limit_checks_total",
					Help: "Usage limit evaluations by resource, tier and outcome",
				},
				[]string{"resource", "tier", "outcome"},
			),
			webhookEvents: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "surveyhub_stripe_webhook_events_total",
					Help: "Stripe webhook events by type and outcome",
				},
				[]string{"type", "outcome"},
			),
			wsConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "surveyhub_websocket_connections",
					Help: "Open notification websocket connections",
				},
			),
			emailsSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "surveyhub_emails_sent_total",
					Help: "Transactional emails by template and outcome",
				},
				[]string{"template", "outcome"},
			),
			rateLimitRejected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "surveyhub_rate_limit_rejections_total",
					Help: "Requests rejected by the gateway rate limiter",
				},
				[]string{"scope"},
			),
			healthStatus: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "surveyhub_dependency_up",
					Help: "Dependency health (1 = up, 0 = down)",
				},
				[]string{"dependency"},
			),
		}
	})
	return globalMetrics
}

// Middleware records request counts and latency under the route template.
func (m *Metrics) Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestsTotal.WithLabelValues(service, c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(service, c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func (m *Metrics) RecordLimitCheck(resource, tier string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.limitChecks.WithLabelValues(resource, tier, outcome).Inc()
}

func (m *Metrics) RecordWebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) WebSocketOpened() { m.wsConnections.Inc() }
func (m *Metrics) WebSocketClosed() { m.wsConnections.Dec() }

func (m *Metrics) RecordEmail(template string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.emailsSent.WithLabelValues(template, outcome).Inc()
}

func (m *Metrics) RecordRateLimitRejection(scope string) {
	m.rateLimitRejected.WithLabelValues(scope).Inc()
}

func (m *Metrics) SetDependencyUp(dependency string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.healthStatus.WithLabelValues(dependency).Set(v)
}
