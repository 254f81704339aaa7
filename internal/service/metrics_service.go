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

// Outcome labels shared by domain counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is a no-op.
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

	logins            *prometheus.CounterVec
	checkoutSessions  *prometheus.CounterVec
	paymentsConfirmed prometheus.Counter
	webhookEvents     *prometheus.CounterVec
	gradeSubmissions  *prometheus.CounterVec
	mails             *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core and domain Prometheus collectors.
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
		Help:    "Latency for cache operations",
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

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepass_logins_total",
		Help: "Login attempts by role and outcome",
	}, []string{"role", "outcome"})

	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepass_checkout_sessions_total",
		Help: "Checkout sessions requested from the payment provider",
	}, []string{"outcome"})

	paymentsConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coursepass_payments_confirmed_total",
		Help: "Payments confirmed through provider webhooks",
	})

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepass_webhook_events_total",
		Help: "Webhook deliveries by event type and outcome",
	}, []string{"type", "outcome"})

	gradeSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepass_grade_submissions_total",
		Help: "Grade submissions by outcome",
	}, []string{"outcome"})

	mails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursepass_mails_total",
		Help: "Notification mails by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		logins, checkoutSessions, paymentsConfirmed, webhookEvents, gradeSubmissions, mails,
		goroutines,
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		logins:            logins,
		checkoutSessions:  checkoutSessions,
		paymentsConfirmed: paymentsConfirmed,
		webhookEvents:     webhookEvents,
		gradeSubmissions:  gradeSubmissions,
		mails:             mails,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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

func (m *MetricsService) RecordLogin(role, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(role, outcome).Inc()
}

func (m *MetricsService) RecordCheckoutSession(outcome string) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(outcome).Inc()
}

func (m *MetricsService) RecordPaymentConfirmed() {
	if m == nil {
		return
	}
	m.paymentsConfirmed.Inc()
}

func (m *MetricsService) RecordWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *MetricsService) RecordGradeSubmission(outcome string) {
	if m == nil {
		return
	}
	m.gradeSubmissions.WithLabelValues(outcome).Inc()
}

func (m *MetricsService) RecordMail(outcome string) {
	if m == nil {
		return
	}
	m.mails.WithLabelValues(outcome).Inc()
}
