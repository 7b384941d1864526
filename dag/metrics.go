package dag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for run and node execution,
// namespaced "taskdag":
//
//   - inflight_nodes (gauge): nodes currently executing.
//   - pending_nodes (gauge): nodes not yet resolved in the current run.
//   - node_duration_ms (histogram, labels node_id/status): execution time.
//   - nodes_total (counter, label status): resolved nodes by terminal state
//     (completed, failed, skipped).
//   - runs_total (counter, label status): finished runs by verdict
//     (success, failure, cancelled).
//   - run_duration_ms (histogram): whole-run wall-clock time.
//
// Attach with WithMetrics and expose the registry via promhttp:
//
//	registry := prometheus.NewRegistry()
//	metrics := dag.NewMetrics(registry)
//	ex, _ := dag.NewExecutor(g, dag.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe for concurrent use.
type Metrics struct {
	inflight     prometheus.Gauge
	pending      prometheus.Gauge
	nodeDuration *prometheus.HistogramVec
	nodesTotal   *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// NewMetrics creates and registers all scheduler metrics with the provided
// registry. Passing nil registers with prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskdag",
			Name:      "inflight_nodes",
			Help:      "Number of nodes currently executing.",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskdag",
			Name:      "pending_nodes",
			Help:      "Number of nodes not yet resolved in the current run.",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskdag",
			Name:      "node_duration_ms",
			Help:      "Node execution duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		nodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskdag",
			Name:      "nodes_total",
			Help:      "Resolved nodes by terminal state.",
		}, []string{"status"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskdag",
			Name:      "runs_total",
			Help:      "Finished runs by verdict.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskdag",
			Name:      "run_duration_ms",
			Help:      "Whole-run wall-clock duration in milliseconds.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}),
	}
}

func (m *Metrics) nodeStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) nodeFinished(nodeID, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.nodeDuration.WithLabelValues(nodeID, status).Observe(float64(d.Milliseconds()))
	m.nodesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) nodeSkipped() {
	if m == nil {
		return
	}
	m.nodesTotal.WithLabelValues("skipped").Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) runFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(float64(d.Milliseconds()))
}
