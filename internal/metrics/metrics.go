// Package metrics exposes Prometheus instruments for captures and callbacks.
//
// All methods are nil-safe so library code can record unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	MetricCapturesTotal     = "planprint_captures_total"
	MetricCaptureDuration   = "planprint_capture_duration_seconds"
	MetricCapturesActive    = "planprint_captures_active"
	MetricOverlayFallbacks  = "planprint_overlay_fallbacks_total"
	MetricCallbacksTotal    = "planprint_callbacks_total"
	MetricCallbacksPending  = "planprint_callbacks_pending"
	MetricPoolWaitSeconds   = "planprint_pool_wait_seconds"
	MetricHTTPRequestsTotal = "planprint_http_requests_total"
)

// captureBuckets cover the configured capture delay plus rendering time.
var captureBuckets = []float64{1, 2.5, 5, 10, 12.5, 15, 20, 25, 30, 45, 60}

// Metrics holds the instruments registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	captures        *prometheus.CounterVec
	captureDuration *prometheus.HistogramVec
	active          prometheus.Gauge
	overlayFallback prometheus.Counter
	callbacks       *prometheus.CounterVec
	pending         prometheus.Gauge
	poolWait        prometheus.Histogram
	httpRequests    *prometheus.CounterVec
}

// New creates the instruments on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCapturesTotal,
			Help: "Captures by final state.",
		}, []string{"state"}),
		captureDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricCaptureDuration,
			Help:    "Wall-clock capture duration by renderer backend.",
			Buckets: captureBuckets,
		}, []string{"backend"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCapturesActive,
			Help: "Captures currently running.",
		}),
		overlayFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricOverlayFallbacks,
			Help: "Captures that fell back to the unmodified base stylesheet.",
		}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCallbacksTotal,
			Help: "Callback registrations by event.",
		}, []string{"event"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCallbacksPending,
			Help: "Callbacks registered and not yet consumed or expired.",
		}),
		poolWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricPoolWaitSeconds,
			Help:    "Time spent waiting for a free renderer.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.captures, m.captureDuration, m.active, m.overlayFallback,
		m.callbacks, m.pending, m.poolWait, m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CaptureStarted marks a capture as running.
func (m *Metrics) CaptureStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

// CaptureFinished records the final state of a capture started with
// CaptureStarted.
func (m *Metrics) CaptureFinished(backend, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.captures.WithLabelValues(state).Inc()
	m.captureDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// OverlayFallback counts a capture that used the base stylesheet.
func (m *Metrics) OverlayFallback() {
	if m == nil {
		return
	}
	m.overlayFallback.Inc()
}

// PoolWait records time spent acquiring a renderer.
func (m *Metrics) PoolWait(d time.Duration) {
	if m == nil {
		return
	}
	m.poolWait.Observe(d.Seconds())
}

// HTTPRequest counts a served request. code is collapsed to its class.
func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusClass(code)).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// CallbackRegistered implements callback.Observer.
func (m *Metrics) CallbackRegistered() {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues("registered").Inc()
	m.pending.Inc()
}

// CallbackConsumed implements callback.Observer.
func (m *Metrics) CallbackConsumed() {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues("consumed").Inc()
	m.pending.Dec()
}

// CallbackExpired implements callback.Observer.
func (m *Metrics) CallbackExpired() {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues("expired").Inc()
	m.pending.Dec()
}

// CallbackCancelled implements callback.Observer.
func (m *Metrics) CallbackCancelled() {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues("cancelled").Inc()
	m.pending.Dec()
}
