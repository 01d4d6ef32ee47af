// Package metrics records request metrics for the naming and storage servers.
// A nil registry disables collection and every recorder becomes a no-op.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RequestMetrics observes messages handled by a server dispatcher.
type RequestMetrics interface {
	RecordRequestStart(msgType string)
	RecordRequest(msgType string, code string, duration time.Duration)
}

type requestMetrics struct {
	service          string
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
}

// NewRequestMetrics registers the request collectors for service on reg.
// Several services may share one registry.
func NewRequestMetrics(reg *prometheus.Registry, service string) RequestMetrics {
	if reg == nil {
		return NoopRequestMetrics{}
	}

	return &requestMetrics{
		service: service,
		requestsTotal: registerOrExisting(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dfs_requests_total",
				Help: "Total number of requests by service, message type and response code",
			},
			[]string{"service", "type", "code"},
		)),
		requestDuration: registerOrExisting(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dfs_request_duration_seconds",
				Help:    "Duration of request handling in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"service", "type"},
		)),
		requestsInFlight: registerOrExisting(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dfs_requests_in_flight",
				Help: "Requests currently being handled",
			},
			[]string{"service", "type"},
		)),
	}
}

// registerOrExisting returns the collector already registered under the same
// descriptor, so two services in one process share the vectors.
func registerOrExisting[C prometheus.Collector](reg *prometheus.Registry, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}

func (m *requestMetrics) RecordRequestStart(msgType string) {
	m.requestsInFlight.WithLabelValues(m.service, msgType).Inc()
}

func (m *requestMetrics) RecordRequest(msgType string, code string, duration time.Duration) {
	m.requestsInFlight.WithLabelValues(m.service, msgType).Dec()
	m.requestsTotal.WithLabelValues(m.service, msgType, code).Inc()
	m.requestDuration.WithLabelValues(m.service, msgType).Observe(duration.Seconds())
}

type NoopRequestMetrics struct{}

func (NoopRequestMetrics) RecordRequestStart(string)                   {}
func (NoopRequestMetrics) RecordRequest(string, string, time.Duration) {}

// NewRegistry returns a registry with the Go runtime and process collectors
// already attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
