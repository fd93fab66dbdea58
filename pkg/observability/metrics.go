package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Quota metrics
	QuotaDecisionsTotal *prometheus.CounterVec
	QuotaRollbacksTotal *prometheus.CounterVec

	// Provider metrics
	ProviderValidationsTotal *prometheus.CounterVec
	TokenExchangesTotal      *prometheus.CounterVec

	// Plan cache metrics
	PlanCacheHitsTotal   *prometheus.CounterVec
	PlanCacheMissesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackseek_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stackseek_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		QuotaDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackseek_quota_decisions_total",
				Help: "Total number of quota decisions",
			},
			[]string{"resource", "outcome"},
		),
		QuotaRollbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackseek_quota_rollbacks_total",
				Help: "Total number of compensating quota decrements",
			},
			[]string{"resource", "status"},
		),

		ProviderValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackseek_provider_validations_total",
				Help: "Total number of repository access validations",
			},
			[]string{"provider", "status"},
		),
		TokenExchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackseek_token_exchanges_total",
				Help: "Total number of OAuth code exchanges",
			},
			[]string{"provider", "status"},
		),

		PlanCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackseek_plan_cache_hits_total",
				Help: "Total number of plan cache hits",
			},
			[]string{"tier"},
		),
		PlanCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stackseek_plan_cache_misses_total",
				Help: "Total number of plan cache misses",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stackseek_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stackseek_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotaDecisionsTotal,
		m.QuotaRollbacksTotal,
		m.ProviderValidationsTotal,
		m.TokenExchangesTotal,
		m.PlanCacheHitsTotal,
		m.PlanCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
