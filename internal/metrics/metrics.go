// Package metrics exposes solver activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtding233/honing-forecast/internal/tail"
)

const namespace = "honed"

// Metrics owns a registry so tests and embedded hosts don't share the global one.
type Metrics struct {
	reg *prometheus.Registry

	Solves      *prometheus.CounterVec   // mode, outcome
	Duration    *prometheus.HistogramVec // mode
	TailEvals   *prometheus.CounterVec   // method
	Fallbacks   *prometheus.CounterVec   // reason
	States      prometheus.Counter
	RulesReload prometheus.Counter
	InFlight    prometheus.Gauge
}

// New registers every collector on a fresh registry. withRuntime adds the Go
// and process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Solve requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall time per solve.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"mode"}),
		TailEvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tail_evaluations_total",
			Help:      "Tail probability evaluations by method.",
		}, []string{"method"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saddlepoint_fallbacks_total",
			Help:      "Saddlepoint evaluations that fell back to Edgeworth.",
		}, []string{"reason"}),
		States: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_evaluated_total",
			Help:      "Strategies evaluated by the annealer.",
		}),
		RulesReload: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_reloads_total",
			Help:      "Rules cache invalidations from file changes.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solves_in_flight",
			Help:      "Solves currently running.",
		}),
	}
	m.reg.MustRegister(m.Solves, m.Duration, m.TailEvals, m.Fallbacks, m.States, m.RulesReload, m.InFlight)
	if withRuntime {
		m.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveSolve records one finished solve. A nil m is a no-op.
func (m *Metrics) ObserveSolve(mode, outcome string, took time.Duration, c tail.Counters) {
	if m == nil {
		return
	}
	m.Solves.WithLabelValues(mode, outcome).Inc()
	m.Duration.WithLabelValues(mode).Observe(took.Seconds())
	m.TailEvals.WithLabelValues(tail.Trivial.String()).Add(float64(c.Trivial))
	m.TailEvals.WithLabelValues(tail.Brute.String()).Add(float64(c.Brute))
	m.TailEvals.WithLabelValues(tail.Saddlepoint.String()).Add(float64(c.SA))
	m.TailEvals.WithLabelValues(tail.KS.String()).Add(float64(c.KS))
	m.Fallbacks.WithLabelValues("overflow").Add(float64(c.Overflow))
	m.Fallbacks.WithLabelValues("non_convergence").Add(float64(c.NonConvergence))
	m.States.Add(float64(c.StatesEvaluated))
}

// Track marks a solve as running until the returned func is called.
func (m *Metrics) Track() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// Reloaded counts one rules invalidation.
func (m *Metrics) Reloaded() {
	if m != nil {
		m.RulesReload.Inc()
	}
}
