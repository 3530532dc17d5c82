// Package metrics exposes Prometheus collectors for page actions and the
// HTTP surface.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xhsmcp/queue"
)

type Metrics struct {
	registry *prometheus.Registry

	actionsTotal    *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry. pending, when non-nil,
// backs the queue depth gauge.
func New(pending func() int) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		actionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhs_actions_total",
			Help: "Page actions by action and final status.",
		}, []string{"action", "status"}),
		actionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xhs_action_duration_seconds",
			Help:    "Time spent driving the page per action.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"action"}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhs_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xhs_http_request_duration_seconds",
			Help:    "HTTP request latencies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if pending != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "xhs_queue_pending",
			Help: "Actions waiting for the page worker.",
		}, func() float64 { return float64(pending()) })
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobFinished counts the job and observes how long it ran.
func (m *Metrics) JobFinished(_ context.Context, job queue.Job) {
	m.actionsTotal.WithLabelValues(job.Action, job.Status).Inc()
	if job.StartedAt != nil {
		m.actionDuration.WithLabelValues(job.Action).Observe(float64(job.DurationMs) / 1000)
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
