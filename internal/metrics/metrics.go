// Package metrics collects client-side metrics: API request outcomes
// and notification poll cycles. The registry is private so repeated
// construction in tests never collides with default metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricRequestsTotal          = "abroad_client_requests_total"
	MetricRequestDurationSeconds = "abroad_client_request_duration_seconds"
	MetricPollCyclesTotal        = "abroad_client_poll_cycles_total"
	MetricPollFailuresTotal      = "abroad_client_poll_failures_total"
	MetricUnreadNotifications    = "abroad_client_unread_notifications"
)

// Recorder aggregates client metrics. It implements the request
// observer used by the API client and the poll observer used by the
// notification poller.
//
// Thread Safety: safe for concurrent use by multiple goroutines.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	pollCyclesTotal        prometheus.Counter
	pollFailuresTotal      prometheus.Counter
	unreadNotifications    prometheus.Gauge
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Total API requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		requestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRequestDurationSeconds,
			Help:    "API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		pollCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPollCyclesTotal,
			Help: "Total notification poll cycles executed.",
		}),
		pollFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPollFailuresTotal,
			Help: "Total notification poll cycles that failed.",
		}),
		unreadNotifications: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricUnreadNotifications,
			Help: "Current number of unread notifications.",
		}),
	}

	registry.MustRegister(
		r.requestsTotal,
		r.requestDurationSeconds,
		r.pollCyclesTotal,
		r.pollFailuresTotal,
		r.unreadNotifications,
	)
	return r
}

// ObserveRequest records one completed API request. A zero status means
// the request failed before a response arrived.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	r.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.requestDurationSeconds.WithLabelValues(method, path).Observe(duration.Seconds())
}

// PollCompleted records a successful poll cycle and the resulting
// unread count.
func (r *Recorder) PollCompleted(unread int) {
	r.pollCyclesTotal.Inc()
	r.unreadNotifications.Set(float64(unread))
}

// PollFailed records a failed poll cycle.
func (r *Recorder) PollFailed() {
	r.pollCyclesTotal.Inc()
	r.pollFailuresTotal.Inc()
}

// Handler returns an HTTP handler exposing the metrics in Prometheus
// text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
