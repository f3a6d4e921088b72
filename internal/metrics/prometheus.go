// Package metrics provides Prometheus metrics for the recognition service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// noLetter labels transitions to "no letter".
const noLetter = "none"

// Manager owns the service metrics. It implements recognizer.Recorder.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	enabled        bool
	constLabels    map[string]string
	registry       *prometheus.Registry

	framesProcessed   prometheus.Counter
	framesRejected    *prometheus.CounterVec
	frameLatency      prometheus.Histogram
	detections        *prometheus.CounterVec
	motionTransitions *prometheus.CounterVec
	activeSessions    prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithRegistry it registers on a
// fresh registry that also carries the Go and process collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "fingerspell",
		subsystem:      "recognizer",
		latencyBuckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		enabled:        true,
		constLabels:    map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "frames_processed_total",
		Help:        "Total number of landmark frames processed",
		ConstLabels: m.constLabels,
	})

	m.framesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "frames_rejected_total",
		Help:        "Total number of frames rejected, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "frame_latency_seconds",
		Help:        "Time spent classifying, tracking and arbitrating one frame",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	})

	m.detections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "detections_total",
		Help:        "Total number of stable letter changes, by letter",
		ConstLabels: m.constLabels,
	}, []string{"letter"})

	m.motionTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "motion_transitions_total",
		Help:        "Total number of motion tracker transitions, by letter and new status",
		ConstLabels: m.constLabels,
	}, []string{"letter", "status"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "active_sessions",
		Help:        "Number of recognition sessions currently streaming",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests, by method, route and status code",
		ConstLabels: m.constLabels,
	}, []string{"method", "route", "code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "HTTP request latency, by method and route",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: m.constLabels,
	}, []string{"method", "route"})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FrameProcessed records a processed frame and its latency.
func (m *Manager) FrameProcessed(d time.Duration) {
	if !m.enabled {
		return
	}
	m.framesProcessed.Inc()
	m.frameLatency.Observe(d.Seconds())
}

// FrameRejected records a dropped, malformed or duplicate frame.
func (m *Manager) FrameRejected(reason string) {
	if !m.enabled {
		return
	}
	m.framesRejected.WithLabelValues(reason).Inc()
}

// DetectionChanged records a new stable letter. An empty letter counts as "none".
func (m *Manager) DetectionChanged(letter string) {
	if !m.enabled {
		return
	}
	if letter == "" {
		letter = noLetter
	}
	m.detections.WithLabelValues(letter).Inc()
}

// MotionTransition records a motion tracker status change.
func (m *Manager) MotionTransition(letter, status string) {
	if !m.enabled {
		return
	}
	m.motionTransitions.WithLabelValues(letter, status).Inc()
}

// SessionStarted increments the active session gauge.
func (m *Manager) SessionStarted() {
	if m.enabled {
		m.activeSessions.Inc()
	}
}

// SessionEnded decrements the active session gauge.
func (m *Manager) SessionEnded() {
	if m.enabled {
		m.activeSessions.Dec()
	}
}

// ObserveHTTP records one HTTP request.
func (m *Manager) ObserveHTTP(method, route string, code int, d time.Duration) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
