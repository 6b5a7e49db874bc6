// Package observability holds the Prometheus metrics and tracing helpers
// shared by the server components.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Registry owns these metrics; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	rpcDuration       *prometheus.HistogramVec
	rpcTotal          *prometheus.CounterVec
	balanceDuration   prometheus.Histogram
	settlementsTotal  prometheus.Counter
	danglingRefsTotal *prometheus.CounterVec
	rateRefreshTotal  *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests call
// NewMetrics more than once.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		rpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "groupsplit_rpc_duration_seconds",
				Help:    "Duration of RPCs by procedure.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"procedure"},
		),
		rpcTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsplit_rpc_total",
				Help: "Total RPCs by procedure and result code.",
			},
			[]string{"procedure", "code"},
		),
		balanceDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "groupsplit_balance_computation_seconds",
				Help:    "Time spent computing balances and settlements for a group.",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		settlementsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "groupsplit_settlements_suggested_total",
				Help: "Total settlements suggested.",
			},
		),
		danglingRefsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsplit_dangling_references_total",
				Help: "Expense references to unknown members skipped during balance computation.",
			},
			[]string{"role"},
		),
		rateRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsplit_rate_refresh_total",
				Help: "Exchange rate refresh attempts by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsplit_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsplit_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
	m.rpcTotal.WithLabelValues(procedure, code).Inc()
}

// ObserveBalances records one balance computation.
func (m *Metrics) ObserveBalances(d time.Duration, settlements int) {
	m.balanceDuration.Observe(d.Seconds())
	m.settlementsTotal.Add(float64(settlements))
}

// IncrDanglingRef counts a skipped payer or participant reference.
func (m *Metrics) IncrDanglingRef(role string) {
	m.danglingRefsTotal.WithLabelValues(role).Inc()
}

// RecordRateRefresh counts a rate refresh by outcome ("ok", "error", "open").
func (m *Metrics) RecordRateRefresh(outcome string) {
	m.rateRefreshTotal.WithLabelValues(outcome).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}
