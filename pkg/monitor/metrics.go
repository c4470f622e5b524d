package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one store, registered on a
// private registry so several stores can live in one process.
type Metrics struct {
	registry      *prometheus.Registry
	inserts       prometheus.Counter
	deletes       *prometheus.CounterVec
	recomputes    prometheus.Counter
	divergences   prometheus.Counter
	points        prometheus.Gauge
	skylineSize   prometheus.Gauge
	regionPoints  prometheus.Histogram
	pruned        prometheus.Counter
	nodesExpanded prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skylinedb_inserts_total",
			Help: "Points inserted through incremental maintenance",
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skylinedb_deletes_total",
			Help: "Points deleted, by whether they were skyline members",
		}, []string{"member"}),
		recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skylinedb_recomputes_total",
			Help: "Full branch-and-bound skyline computations",
		}),
		divergences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skylinedb_verify_divergence_total",
			Help: "Verification runs where maintenance disagreed with recomputation",
		}),
		points: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skylinedb_points",
			Help: "Points held by the spatial index",
		}),
		skylineSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skylinedb_skyline_size",
			Help: "Current number of skyline points",
		}),
		regionPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skylinedb_region_points",
			Help:    "Points found in the affected rectangle of a skyline delete",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skylinedb_pruned_candidates_total",
			Help: "Traversal candidates discarded by dominance pruning",
		}),
		nodesExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skylinedb_nodes_expanded_total",
			Help: "Index nodes expanded by skyline traversals",
		}),
	}
	m.registry.MustRegister(
		m.inserts, m.deletes, m.recomputes, m.divergences,
		m.points, m.skylineSize, m.regionPoints, m.pruned, m.nodesExpanded,
	)
	return m
}

func (m *Metrics) ObserveInsert() {
	m.inserts.Inc()
}

func (m *Metrics) ObserveDelete(member bool, regionPoints int) {
	if member {
		m.deletes.WithLabelValues("true").Inc()
		m.regionPoints.Observe(float64(regionPoints))
		return
	}
	m.deletes.WithLabelValues("false").Inc()
}

func (m *Metrics) ObserveRecompute(nodesExpanded, pruned int) {
	m.recomputes.Inc()
	m.nodesExpanded.Add(float64(nodesExpanded))
	m.pruned.Add(float64(pruned))
}

func (m *Metrics) ObserveDivergence() {
	m.divergences.Inc()
}

func (m *Metrics) SetSizes(points, skyline int) {
	m.points.Set(float64(points))
	m.skylineSize.Set(float64(skyline))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
