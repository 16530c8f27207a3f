package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assignment outcomes recorded on lot_assignments_total.
const (
	OutcomeAssigned   = "assigned"
	OutcomeConflict   = "conflict"
	OutcomeNotFound   = "not_found"
	OutcomeIneligible = "ineligible"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, cache use and permit workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	formsUploaded   *prometheus.CounterVec
	studentsAdded   prometheus.Counter
	assignments     *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
	occupancy      atomic.Pointer[func() int]
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	formsUploaded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_forms_uploaded_total",
		Help: "Documents marked as uploaded, by form",
	}, []string{"form"})

	studentsAdded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "permit_students_added_total",
		Help: "Students added to the roster",
	})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lot_assignments_total",
		Help: "Spot assignment attempts, by outcome",
	}, []string{"outcome"})

	m := &MetricsService{registry: registry}

	spotsOccupied := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lot_spots_occupied",
		Help: "Spots currently occupied",
	}, func() float64 {
		if fn := m.occupancy.Load(); fn != nil {
			return float64((*fn)())
		}
		return 0
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		formsUploaded, studentsAdded, assignments, spotsOccupied, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	m.requestDuration = requestDuration
	m.requestTotal = requestTotal
	m.cacheLatency = cacheLatency
	m.cacheWrite = cacheWrite
	m.cacheHitRatio = cacheHitRatio
	m.cacheHits = cacheHits
	m.cacheMisses = cacheMisses
	m.formsUploaded = formsUploaded
	m.studentsAdded = studentsAdded
	m.assignments = assignments
	return m
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

// Registry exposes the underlying registry, mainly for tests.
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordFormUpload counts a document flipping to uploaded.
func (m *MetricsService) RecordFormUpload(form string) {
	if m == nil {
		return
	}
	m.formsUploaded.WithLabelValues(form).Inc()
}

// RecordStudentAdded counts a roster insertion.
func (m *MetricsService) RecordStudentAdded() {
	if m == nil {
		return
	}
	m.studentsAdded.Inc()
}

// RecordAssignment counts an assignment attempt by outcome.
func (m *MetricsService) RecordAssignment(outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(outcome).Inc()
}

// TrackSpotsOccupied makes lot_spots_occupied read fn at scrape time. Until it is called the gauge
// reports zero.
func (m *MetricsService) TrackSpotsOccupied(fn func() int) {
	if m == nil || fn == nil {
		return
	}
	m.occupancy.Store(&fn)
}
