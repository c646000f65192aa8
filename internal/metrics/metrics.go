// Package metrics holds the Prometheus collectors of the join service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crackedclub"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	submissions  *prometheus.CounterVec
	jobs         *prometheus.CounterVec
	reg          prometheus.Registerer
}

// New registers the collectors on reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status code",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Form submissions by form and result",
		}, []string{"form", "result"}),

		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background jobs finished by type and outcome",
		}, []string{"type", "outcome"}),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Submission counts one submit of form ("join" or "waitlist") with its result.
func (m *Metrics) Submission(form, result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, result).Inc()
}

// Job counts a finished job attempt: done, retry or dead.
func (m *Metrics) Job(typ, outcome string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(typ, outcome).Inc()
}

// TrackSessions exposes the live session count read from fn on every scrape.
func (m *Metrics) TrackSessions(fn func() int) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Visitor sessions held in memory",
	}, func() float64 { return float64(fn()) })
}
