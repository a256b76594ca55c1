package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the generator and the metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	addressesGeneratedTotal prometheus.Counter
	unitFailuresTotal       *prometheus.CounterVec
	batchesTotal            *prometheus.CounterVec
	cooldownsTotal          *prometheus.CounterVec
	serviceCallDuration     *prometheus.HistogramVec
	unitsInflight           prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hme_generator",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		addressesGeneratedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hme_generator",
				Name:      "addresses_generated_total",
				Help:      "Total number of addresses created, reserved and persisted.",
			},
		),
		unitFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hme_generator",
				Name:      "unit_failures_total",
				Help:      "Single-address workflow failures by stage and service error code.",
			},
			[]string{"stage", "code"},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hme_generator",
				Name:      "batches_total",
				Help:      "Dispatched batches grouped by outcome.",
			},
			[]string{"status"},
		),
		cooldownsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hme_generator",
				Name:      "cooldowns_total",
				Help:      "Cooldown waits grouped by reason.",
			},
			[]string{"reason"},
		),
		serviceCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hme_generator",
				Name:      "service_call_duration_seconds",
				Help:      "Account service call duration in seconds grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"operation"},
		),
		unitsInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hme_generator",
				Name:      "units_inflight",
				Help:      "Current number of in-flight single-address workflows.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.addressesGeneratedTotal,
		m.unitFailuresTotal,
		m.batchesTotal,
		m.cooldownsTotal,
		m.serviceCallDuration,
		m.unitsInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err))
		return err
	}
}

func (m *Metrics) AddAddressesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.addressesGeneratedTotal.Add(float64(n))
}

func (m *Metrics) IncUnitFailure(stage string, code int) {
	if m == nil {
		return
	}
	m.unitFailuresTotal.WithLabelValues(normalizeLabel(stage), strconv.Itoa(code)).Inc()
}

func (m *Metrics) IncBatch(status string) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) IncCooldown(reason string) {
	if m == nil {
		return
	}
	m.cooldownsTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveServiceCall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.serviceCallDuration.WithLabelValues(normalizeLabel(operation)).Observe(seconds)
}

func (m *Metrics) IncUnitsInFlight() {
	if m == nil {
		return
	}
	m.unitsInflight.Inc()
}

func (m *Metrics) DecUnitsInFlight() {
	if m == nil {
		return
	}
	m.unitsInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
