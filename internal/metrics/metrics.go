// Package metrics exports engine activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/joeycumines/reactree/internal/flow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reactree"

// Recorder implements flow.Recorder on its own registry, so several engines
// (or tests) never collide on the global one.
type Recorder struct {
	RunsTotal     *prometheus.CounterVec
	ResultsTotal  *prometheus.CounterVec
	StopsTotal    prometheus.Counter
	SwitchesTotal prometheus.Counter
	TicksTotal    prometheus.Counter
	TickDuration  prometheus.Histogram

	registry *prometheus.Registry
}

var _ flow.Recorder = (*Recorder)(nil)

// NewRecorder registers the engine metrics, plus the Go runtime and process
// collectors, on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{registry: reg}

	r.RunsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Node runs started, by action kind.",
		},
		[]string{"kind"},
	)
	r.ResultsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Node runs concluded, by outcome.",
		},
		[]string{"outcome"},
	)
	r.StopsTotal = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stops_total",
		Help:      "Nodes that stopped running, by conclusion or interrupt.",
	})
	r.SwitchesTotal = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selector_switches_total",
		Help:      "Score selectors that replaced their active child.",
	})
	r.TicksTotal = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_total",
		Help:      "Engine ticks processed.",
	})
	r.TickDuration = promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Wall time spent processing one engine tick.",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) RecordRun(kind string) {
	if kind == "" {
		kind = "none"
	}
	r.RunsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordResult(outcome flow.Outcome) {
	r.ResultsTotal.WithLabelValues(outcome.String()).Inc()
}

func (r *Recorder) RecordStop() { r.StopsTotal.Inc() }

func (r *Recorder) RecordSwitch() { r.SwitchesTotal.Inc() }

func (r *Recorder) RecordTick(elapsed time.Duration) {
	r.TicksTotal.Inc()
	r.TickDuration.Observe(elapsed.Seconds())
}

// Registry returns the underlying Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
