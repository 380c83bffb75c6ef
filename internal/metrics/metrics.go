package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/smsexpert/internal/model"
)

// Metrics holds the client's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	pollRuns *prometheus.CounterVec
	counters *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsexpert",
			Name:      "api_requests_total",
			Help:      "API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		pollRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsexpert",
			Name:      "poll_runs_total",
			Help:      "Background poll runs by job and result.",
		}, []string{"job", "result"}),
		counters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "smsexpert",
			Name:      "inbox_counters",
			Help:      "Last known inbox counters.",
		}, []string{"counter"}),
	}
	m.registry.MustRegister(m.requests, m.pollRuns, m.counters)
	return m
}

// ObserveRequest counts one API request.
func (m *Metrics) ObserveRequest(method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

// ObservePoll counts one poll run.
func (m *Metrics) ObservePoll(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.pollRuns.WithLabelValues(job, result).Inc()
}

// SetCounts publishes the latest inbox counters.
func (m *Metrics) SetCounts(c model.UnreadCounts) {
	if m == nil {
		return
	}
	m.counters.WithLabelValues("unread").Set(float64(c.UnreadCount))
	m.counters.WithLabelValues("admin_unread").Set(float64(c.AdminUnread))
	m.counters.WithLabelValues("push_unread").Set(float64(c.PushUnread))
	m.counters.WithLabelValues("acknowledgement_required").Set(float64(c.AcknowledgementRequired))
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
