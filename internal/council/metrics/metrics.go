package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the council data core.
type Metrics struct {
	SourceFailures      *prometheus.CounterVec
	SourceLatency       *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
	InFlightJoins       *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	Refreshes           *prometheus.CounterVec
	CachedEntities      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "councilwatch_source_failures_total",
			Help: "Upstream source calls that failed and contributed no items",
		}, []string{"source"}),
		SourceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "councilwatch_source_latency_seconds",
			Help:    "Latency of upstream source calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "councilwatch_cache_lookups_total",
			Help: "Entity cache reads by kind and outcome (hit, stale, miss)",
		}, []string{"kind", "outcome"}),
		InFlightJoins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "councilwatch_inflight_joins_total",
			Help: "Fetches that attached to an already running fetch for the same key",
		}, []string{"kind"}),
		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "councilwatch_persistence_failures_total",
			Help: "Durable cache read or write failures",
		}, []string{"op"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "councilwatch_scheduled_refreshes_total",
			Help: "Scheduler-driven refreshes by trigger and result",
		}, []string{"trigger", "result"}),
		CachedEntities: factory.NewGauge(prometheus.GaugeOpts{
			Name: "councilwatch_cached_entities",
			Help: "Number of councils currently held in the entity cache",
		}),
	}
}

func (m *Metrics) IncrementSourceFailure(source string) {
	m.SourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveSourceLatency(source string, d time.Duration) {
	m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) IncrementCacheLookup(kind, outcome string) {
	m.CacheLookups.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementInFlightJoin(kind string) {
	m.InFlightJoins.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPersistenceFailure(op string) {
	m.PersistenceFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementRefresh(trigger, result string) {
	m.Refreshes.WithLabelValues(trigger, result).Inc()
}

func (m *Metrics) SetCachedEntities(n int) {
	m.CachedEntities.Set(float64(n))
}
