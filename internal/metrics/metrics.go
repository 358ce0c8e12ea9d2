// Package metrics holds the Prometheus instruments for the primary service
// and the relay. Each Metrics owns its registry so instances never collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hookwatch"

// Metrics holds all the Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	WebhooksReceived *prometheus.CounterVec
	WebhooksRejected *prometheus.CounterVec
	StoreErrors      prometheus.Counter
	AlertsRaised     prometheus.Counter
	PublishErrors    prometheus.Counter
	BroadcastDrops   *prometheus.CounterVec
	Viewers          prometheus.Gauge

	RelayJobs            *prometheus.CounterVec
	RelayForwardFailures *prometheus.CounterVec
	RelayQueueDrops      prometheus.Counter
}

// New creates a Metrics instance with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WebhooksReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Webhook payloads persisted, by source.",
		}, []string{"source"}),
		WebhooksRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_rejected_total",
			Help:      "Webhook payloads rejected as malformed, by source.",
		}, []string{"source"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Log store write failures.",
		}),
		AlertsRaised: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Suspicious report alerts raised.",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Event bus publish failures.",
		}),
		BroadcastDrops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Live events dropped for slow viewers, by event name.",
		}, []string{"event"}),
		Viewers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewers_connected",
			Help:      "Currently connected live viewers.",
		}),
		RelayJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "jobs_total",
			Help:      "Relay jobs processed, by route.",
		}, []string{"route"}),
		RelayForwardFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "forward_failures_total",
			Help:      "Relay forwards that failed, by target kind.",
		}, []string{"target"}),
		RelayQueueDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "queue_dropped_total",
			Help:      "Relay jobs dropped because the queue was full.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) WebhookReceived(source string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.WithLabelValues(source).Inc()
}

func (m *Metrics) WebhookRejected(source string) {
	if m == nil {
		return
	}
	m.WebhooksRejected.WithLabelValues(source).Inc()
}

func (m *Metrics) StoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) AlertRaised() {
	if m == nil {
		return
	}
	m.AlertsRaised.Inc()
}

func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.PublishErrors.Inc()
}

func (m *Metrics) BroadcastDropped(event string) {
	if m == nil {
		return
	}
	m.BroadcastDrops.WithLabelValues(event).Inc()
}

func (m *Metrics) SetViewers(n int) {
	if m == nil {
		return
	}
	m.Viewers.Set(float64(n))
}

func (m *Metrics) RelayJob(route string) {
	if m == nil {
		return
	}
	m.RelayJobs.WithLabelValues(route).Inc()
}

func (m *Metrics) RelayForwardFailed(target string) {
	if m == nil {
		return
	}
	m.RelayForwardFailures.WithLabelValues(target).Inc()
}

func (m *Metrics) RelayQueueDropped() {
	if m == nil {
		return
	}
	m.RelayQueueDrops.Inc()
}
