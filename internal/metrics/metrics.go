// Package metrics exposes Prometheus instrumentation for growth replay and
// the HTTP transport on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/patch"
)

const namespace = "arbor"

// Metrics holds every collector. It implements growth.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	patchOps      *prometheus.CounterVec
	steps         prometheus.Counter
	failedPatches prometheus.Counter
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		patchOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "patch_operations_total",
				Help:      "Patch operations by outcome (applied, skipped, failed).",
			},
			[]string{"outcome"},
		),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "growth_steps_total",
			Help:      "Growth snapshots emitted by replays.",
		}),
		failedPatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "growth_failed_patches_total",
			Help:      "Patches whose result could not be decoded.",
		}),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.patchOps,
		m.steps,
		m.failedPatches,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OperationApplied counts a patch operation outcome.
func (m *Metrics) OperationApplied(_, _ int, outcome patch.Outcome) {
	m.patchOps.WithLabelValues(outcome.String()).Inc()
}

// StepEmitted counts an emitted growth snapshot.
func (m *Metrics) StepEmitted(domain.TreeGrowthStep) {
	m.steps.Inc()
}

// PatchFailed counts a patch that produced no snapshot.
func (m *Metrics) PatchFailed(_, _ int, _ error) {
	m.failedPatches.Inc()
}

// Middleware records request durations labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
