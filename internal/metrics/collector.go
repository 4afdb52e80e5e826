// Package metrics records engine activity as prometheus metrics.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the engine's metric vectors.
type Collector struct {
	lookupsTotal   *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec

	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	gateFailures   *prometheus.CounterVec

	scriptsTotal   *prometheus.CounterVec
	scriptDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	apartmentQueue prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates the vectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.lookupsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Selector resolutions by selector kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	c.lookupDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Selector resolution latency including polling",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	c.actionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Element actions by action and outcome",
		},
		[]string{"action", "outcome"},
	)
	c.actionDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Element action latency including actionability gates",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)
	c.gateFailures = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_failures_total",
			Help:      "Actionability gate failures by gate",
		},
		[]string{"gate"},
	)

	c.scriptsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_total",
			Help:      "Browser script evaluations by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)
	c.scriptDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_duration_seconds",
			Help:      "Browser script evaluation latency",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"transport"},
	)

	c.cacheHits = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Engine cache hits",
		},
		[]string{"cache"},
	)
	c.cacheMisses = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Engine cache misses",
		},
		[]string{"cache"},
	)

	c.apartmentQueue = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "apartment_queue_depth",
		Help:      "Platform calls waiting for the apartment thread",
	})

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordLookup records one FindElement/FindElements call.
func (c *Collector) RecordLookup(kind, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.lookupsTotal.WithLabelValues(kind, outcome).Inc()
	c.lookupDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordAction records one element action.
func (c *Collector) RecordAction(action, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.actionsTotal.WithLabelValues(action, outcome).Inc()
	c.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordGateFailure records an actionability gate that stopped an action.
func (c *Collector) RecordGateFailure(gate string) {
	if c == nil {
		return
	}
	c.gateFailures.WithLabelValues(gate).Inc()
}

// RecordScript records one ExecuteScript call.
func (c *Collector) RecordScript(transport, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.scriptsTotal.WithLabelValues(transport, outcome).Inc()
	c.scriptDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// SetApartmentQueue reports the apartment queue depth.
func (c *Collector) SetApartmentQueue(depth int) {
	if c == nil {
		return
	}
	c.apartmentQueue.Set(float64(depth))
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error, code func(error) string) string {
	if err == nil {
		return "ok"
	}
	if c := code(err); c != "" {
		return c
	}
	return "error"
}
