package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "verdant",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Measurement metrics
	MeasurementsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "measurement",
		Name:      "computed_total",
		Help:      "Total property measurements computed",
	})

	SnapConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "verdant",
		Subsystem: "measurement",
		Name:      "snap_confidence",
		Help:      "Overall confidence of boundary snapping results",
		Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1},
	})

	BoundaryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "measurement",
		Name:      "boundary_fallbacks_total",
		Help:      "Total auto-detections that fell back to the default square",
	})

	// Pricing metrics
	QuotesPriced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "pricing",
		Name:      "quotes_priced_total",
		Help:      "Total quotes run through the rule engine",
	})

	RulesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "pricing",
		Name:      "rules_applied_total",
		Help:      "Total rule applications by rule type",
	}, []string{"rule_type"})

	PricingFailOpens = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "pricing",
		Name:      "fail_opens_total",
		Help:      "Total evaluations that returned original prices after an internal failure",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "verdant",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verdant",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "verdant",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "verdant",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "verdant",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
// Typed structurally so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}
	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
