package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	searchTotal     *prometheus.CounterVec
	searchDates     prometheus.Histogram
	bookingsCreated *prometheus.CounterVec
	slotConflicts   *prometheus.CounterVec
	detectorRuns    prometheus.Counter
	detectorFound   prometheus.Gauge
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

	searchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_searches_total",
		Help: "Total nearest-slot searches by exam kind",
	}, []string{"exam_kind"})

	searchDates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_search_distinct_dates",
		Help:    "Distinct dates found per nearest-slot search",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
	})

	bookingsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total bookings created by portion class",
	}, []string{"portion"})

	slotConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_conflicts_total",
		Help: "Total rejected bookings by conflict reason",
	}, []string{"reason"})

	detectorRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "problem_detector_runs_total",
		Help: "Total problem detector sweeps",
	})

	detectorFound := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "problem_detector_last_found",
		Help: "Problems found by the most recent detector sweep",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, searchTotal, searchDates, bookingsCreated, slotConflicts, detectorRuns, detectorFound, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		searchTotal:     searchTotal,
		searchDates:     searchDates,
		bookingsCreated: bookingsCreated,
		slotConflicts:   slotConflicts,
		detectorRuns:    detectorRuns,
		detectorFound:   detectorFound,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSlotSearch records one nearest-slot search and its yield.
func (m *MetricsService) ObserveSlotSearch(examKind string, distinctDates int) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(examKind).Inc()
	m.searchDates.Observe(float64(distinctDates))
}

// ObserveBookingCreated counts a committed booking.
func (m *MetricsService) ObserveBookingCreated(portion string) {
	if m == nil {
		return
	}
	m.bookingsCreated.WithLabelValues(portion).Inc()
}

// ObserveSlotConflict counts a rejected booking.
func (m *MetricsService) ObserveSlotConflict(reason string) {
	if m == nil {
		return
	}
	m.slotConflicts.WithLabelValues(reason).Inc()
}

// ObserveDetectorRun records one detector sweep and its findings.
func (m *MetricsService) ObserveDetectorRun(problems int) {
	if m == nil {
		return
	}
	m.detectorRuns.Inc()
	m.detectorFound.Set(float64(problems))
}
