package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling core.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheWrite          prometheus.Observer
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	mutations           *prometheus.CounterVec
	mutationDuration    *prometheus.HistogramVec
	txRetries           *prometheus.CounterVec
	ledgerClamps        prometheus.Counter
	consistencyFindings *prometheus.GaugeVec
	ledgerDrift         prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_mutations_total",
		Help: "Assignment mutations by action and outcome",
	}, []string{"action", "outcome"})

	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assignment_mutation_duration_seconds",
		Help:    "Duration of assignment mutations including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	txRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_tx_retries_total",
		Help: "Assignment transactions retried after a transient storage failure",
	}, []string{"action"})

	ledgerClamps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_clamp_total",
		Help: "Hour ledger updates that would have driven assigned minutes below zero",
	})

	consistencyFindings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "consistency_conflicts",
		Help: "Conflicts found by the last consistency audit, per quarter and kind",
	}, []string{"quarter", "kind"})

	ledgerDrift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_drift_instructors",
		Help: "Instructors whose cached minutes differed from their assignments at the last audit",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHits, cacheMisses,
		mutations, mutationDuration, txRetries, ledgerClamps,
		consistencyFindings, ledgerDrift, goroutines,
	)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		mutations:           mutations,
		mutationDuration:    mutationDuration,
		txRetries:           txRetries,
		ledgerClamps:        ledgerClamps,
		consistencyFindings: consistencyFindings,
		ledgerDrift:         ledgerDrift,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveMutation records the outcome of an assignment mutation.
func (m *MetricsService) ObserveMutation(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(action, outcome).Inc()
	m.mutationDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordTxRetry counts a retried transaction.
func (m *MetricsService) RecordTxRetry(action string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(action).Inc()
}

// RecordLedgerClamp counts a ledger update clamped at zero.
func (m *MetricsService) RecordLedgerClamp() {
	if m == nil {
		return
	}
	m.ledgerClamps.Inc()
}

// SetConsistencyFindings publishes the per-kind conflict counts of one quarter.
func (m *MetricsService) SetConsistencyFindings(quarter string, counts map[string]int) {
	if m == nil {
		return
	}
	m.consistencyFindings.DeletePartialMatch(prometheus.Labels{"quarter": quarter})
	for kind, count := range counts {
		m.consistencyFindings.WithLabelValues(quarter, kind).Set(float64(count))
	}
}

// SetLedgerDrift publishes the number of drifting instructors.
func (m *MetricsService) SetLedgerDrift(count int) {
	if m == nil {
		return
	}
	m.ledgerDrift.Set(float64(count))
}
