package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Monitor metrics
	RecordsNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrace_records_normalized_total",
		Help: "Records normalized and forwarded downstream, by kind",
	}, []string{"kind"})
	RecordsBuffered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetrace_records_buffered_total",
		Help: "Resource starts buffered before a base time was established",
	})
	RecordsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetrace_records_replayed_total",
		Help: "Buffered records replayed when the base time was established",
	})
	ResourceUpdatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetrace_resource_updates_dropped_total",
		Help: "Resource updates dropped because no base time existed yet",
	})
	TabChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetrace_tab_changes_total",
		Help: "Page transitions synthesized from main-resource requests",
	})

	// Hintlet metrics
	HintsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrace_hints_emitted_total",
		Help: "Hints emitted, by rule",
	}, []string{"rule"})
	RulePanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrace_rule_panics_total",
		Help: "Rule executions recovered from a panic, by rule",
	}, []string{"rule"})

	// Store metrics
	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrace_store_writes_total",
		Help: "Trace store writes, by entry type",
	}, []string{"entry"})
	StoreWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetrace_store_write_errors_total",
		Help: "Trace store writes that failed",
	})
)

func init() {
	// Pre-initialize Vec metrics so they appear in /metrics output before first use.
	RecordsNormalized.WithLabelValues("TAB_CHANGE")
	HintsEmitted.WithLabelValues("Uncompressed Resource")
	RulePanics.WithLabelValues("Uncompressed Resource")
	StoreWrites.WithLabelValues("record")
	StoreWrites.WithLabelValues("hint")
}

// HealthCheck holds a single health check function.
type HealthCheck struct {
	Name  string
	Check func() error
}

// HealthStatus represents the health response.
type HealthStatus struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks"`
}

// healthChecker holds registered health checks.
type healthChecker struct {
	mu     sync.RWMutex
	checks []HealthCheck
}

var defaultHealthChecker = &healthChecker{}

// RegisterHealthCheck adds a health check.
func RegisterHealthCheck(name string, check func() error) {
	defaultHealthChecker.mu.Lock()
	defer defaultHealthChecker.mu.Unlock()
	defaultHealthChecker.checks = append(defaultHealthChecker.checks, HealthCheck{
		Name:  name,
		Check: check,
	})
}

// runChecks runs all registered health checks.
func runChecks() HealthStatus {
	defaultHealthChecker.mu.RLock()
	checks := make([]HealthCheck, len(defaultHealthChecker.checks))
	copy(checks, defaultHealthChecker.checks)
	defaultHealthChecker.mu.RUnlock()

	status := HealthStatus{
		Status: "ok",
		Checks: make(map[string]string),
	}

	for _, hc := range checks {
		if err := hc.Check(); err != nil {
			status.Status = "degraded"
			status.Checks[hc.Name] = err.Error()
		} else {
			status.Checks[hc.Name] = "ok"
		}
	}
	return status
}

// HealthzHandler handles GET /healthz requests.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	status := runChecks()
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// MetricsServer starts an HTTP server for /metrics and /healthz on the given addr.
// It blocks until the provided stop channel is closed, then shuts down gracefully.
func MetricsServer(addr string, stop <-chan struct{}) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", HealthzHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errCh:
		return err
	}
}
