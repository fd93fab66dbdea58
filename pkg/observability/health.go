package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// probeFunc checks a single dependency
type probeFunc func(ctx context.Context) error

// dependency is one probed backend. Optional dependencies degrade the
// report instead of failing it.
type dependency struct {
	name     string
	optional bool
	probe    probeFunc
}

// HealthChecker probes the service's backends for readiness reporting
type HealthChecker struct {
	deps []dependency
}

// NewHealthChecker builds a checker over the given backends. Either may
// be nil, in which case it is not probed.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	c := &HealthChecker{}

	if db != nil {
		c.deps = append(c.deps, dependency{
			name: "postgres",
			probe: func(ctx context.Context) error {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
				var one int
				return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
			},
		})
	}

	if redisClient != nil {
		// Redis only backs the plan cache; losing it degrades the
		// service instead of taking it down
		c.deps = append(c.deps, dependency{
			name:     "redis",
			optional: true,
			probe: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	return c
}

// CheckResult is the outcome of one dependency probe
type CheckResult struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the aggregated readiness state
type Report struct {
	Status    string                 `json:"status"`
	CheckedAt time.Time              `json:"checked_at"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Check probes every dependency and aggregates the results. A failed
// required dependency makes the report unhealthy; a failed optional one
// only degrades it.
func (h *HealthChecker) Check(ctx context.Context) Report {
	report := Report{
		Status:    StatusHealthy,
		CheckedAt: time.Now(),
		Checks:    make(map[string]CheckResult, len(h.deps)),
	}

	for _, dep := range h.deps {
		start := time.Now()
		err := dep.probe(ctx)

		result := CheckResult{OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			result.Error = err.Error()
			if dep.optional {
				if report.Status == StatusHealthy {
					report.Status = StatusDegraded
				}
			} else {
				report.Status = StatusUnhealthy
			}
		}
		report.Checks[dep.name] = result
	}

	return report
}

// Liveness reports that the process is up; it never probes dependencies
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeReport(w, http.StatusOK, Report{Status: StatusHealthy, CheckedAt: time.Now()})
}

// Readiness probes all dependencies. Degraded still serves traffic and
// returns 200; only unhealthy returns 503.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := h.Check(ctx)

	status := http.StatusOK
	if report.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeReport(w, status, report)
}

func writeReport(w http.ResponseWriter, status int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}

// RegisterHealthRoutes registers the health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
