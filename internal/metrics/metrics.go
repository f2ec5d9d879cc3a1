// Package metrics holds the Prometheus collectors for the api and worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	recipientSends   *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		// Dispatch outcomes partitioned by channel and result kind
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_dispatches_total",
				Help: "Campaign dispatch attempts by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaign_dispatch_duration_seconds",
				Help:    "Wall time of completed campaign dispatches",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 300, 900},
			},
			[]string{"channel"},
		),
		recipientSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_recipient_sends_total",
				Help: "Per-recipient send attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_inflight_requests",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}

	reg.MustRegister(
		m.dispatchesTotal,
		m.dispatchDuration,
		m.recipientSends,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInFlight,
	)

	return m
}

// Handler serves the exposition format for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Recipient results
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// ObserveDispatch records one dispatch outcome. outcome is "success" or
// an error kind.
func (m *Metrics) ObserveDispatch(channel, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(channel, outcome).Inc()
	if outcome == "success" {
		m.dispatchDuration.WithLabelValues(channel).Observe(elapsed.Seconds())
	}
}

// ObserveRecipient records one recipient's send result
func (m *Metrics) ObserveRecipient(channel, result string) {
	if m == nil {
		return
	}
	m.recipientSends.WithLabelValues(channel, result).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.httpRequestsTotal.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(elapsed.Seconds())
}

// InFlight tracks concurrently served requests. Call the returned func
// when the request completes.
func (m *Metrics) InFlight() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}
