package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineMetrics tracks cache behavior and pipeline latency on a private
// registry so tests can build isolated instances.
type EngineMetrics struct {
	registry *prometheus.Registry

	cacheRequests *prometheus.CounterVec
	queriesTotal  *prometheus.CounterVec
	askDuration   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
}

func New() *EngineMetrics {
	registry := prometheus.NewRegistry()

	cacheRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerhub",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by tier and result.",
		},
		[]string{"tier", "result"},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerhub",
			Subsystem: "engine",
			Name:      "queries_total",
			Help:      "Answered queries by strategy and status.",
		},
		[]string{"strategy", "status"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "answerhub",
			Subsystem: "engine",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end ask latency by strategy.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"strategy"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "answerhub",
			Subsystem: "engine",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	registry.MustRegister(cacheRequests, queriesTotal, askDuration, stageDuration)

	return &EngineMetrics{
		registry:      registry,
		cacheRequests: cacheRequests,
		queriesTotal:  queriesTotal,
		askDuration:   askDuration,
		stageDuration: stageDuration,
	}
}

func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCache records one tier lookup. Wire it as the tiered cache
// observer.
func (m *EngineMetrics) ObserveCache(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(tier, result).Inc()
}

func (m *EngineMetrics) ObserveAsk(strategy string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.queriesTotal.WithLabelValues(strategy, status).Inc()
	m.askDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

func (m *EngineMetrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
