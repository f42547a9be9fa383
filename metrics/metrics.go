package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geobuddy"

// Metrics holds the Prometheus collectors for the explorer and its data source.
type Metrics struct {
	Fetches       *prometheus.CounterVec   // labels: kind={root,Continent,Country}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: kind
	Toggles       *prometheus.CounterVec   // labels: policy, action={expand,collapse}
	StaleLoads    prometheus.Counter
	Selections    *prometheus.CounterVec // labels: kind
}

func newMetrics() *Metrics {
	return &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Data source fetches by parent kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Data source fetch duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		Toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Expand and collapse events applied by the expansion controller.",
		}, []string{"policy", "action"}),
		StaleLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_loads_total",
			Help:      "Fetched children dropped because their node was no longer in the tree.",
		}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Nodes activated in the explorer by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Fetches, m.FetchDuration, m.Toggles, m.StaleLoads, m.Selections}
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// means the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
