// Package metrics exposes hub activity as Prometheus metrics.
//
// Each Collector owns a private registry so that several hubs (tests, mostly)
// can live in one process without colliding on the default registerer. All
// methods are safe on a nil *Collector, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chathub"

// Frame outcomes for InboundFrame.
const (
	FrameDecoded     = "decoded"
	FrameFallback    = "fallback"
	FrameRateLimited = "rate_limited"
)

// Collector groups the hub's counters and gauges.
type Collector struct {
	registry *prometheus.Registry

	connections      prometheus.Gauge
	admissionsDenied prometheus.Counter
	broadcasts       prometheus.Counter
	deliveries       prometheus.Counter
	skipped          prometheus.Counter
	frames           *prometheus.CounterVec
	filesStored      prometheus.Counter
	filesDropped     *prometheus.CounterVec
}

// New creates a Collector with every metric registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of connections currently in the registry.",
		}),
		admissionsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_denied_total",
			Help:      "Upgrade requests rejected by the session gate.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Messages fanned out to the registry.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_enqueued_total",
			Help:      "Payloads appended to a connection outbox.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_skipped_total",
			Help:      "Payloads not enqueued because the outbox was already closed.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_frames_total",
			Help:      "Inbound text frames by outcome.",
		}, []string{"outcome"}),
		filesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_stored_total",
			Help:      "Files written by the relay.",
		}),
		filesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_dropped_total",
			Help:      "File messages dropped by the relay, by reason.",
		}, []string{"reason"}),
	}

	c.registry.MustRegister(
		c.connections,
		c.admissionsDenied,
		c.broadcasts,
		c.deliveries,
		c.skipped,
		c.frames,
		c.filesStored,
		c.filesDropped,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// SetConnections records the current registry size.
func (c *Collector) SetConnections(n int) {
	if c == nil {
		return
	}
	c.connections.Set(float64(n))
}

// AdmissionDenied counts one upgrade request refused by the session gate.
func (c *Collector) AdmissionDenied() {
	if c == nil {
		return
	}
	c.admissionsDenied.Inc()
}

// Broadcast records one fan-out pass that enqueued to delivered outboxes and
// skipped the closed ones.
func (c *Collector) Broadcast(delivered, skipped int) {
	if c == nil {
		return
	}
	c.broadcasts.Inc()
	c.deliveries.Add(float64(delivered))
	c.skipped.Add(float64(skipped))
}

// InboundFrame counts one inbound text frame under outcome.
func (c *Collector) InboundFrame(outcome string) {
	if c == nil {
		return
	}
	c.frames.WithLabelValues(outcome).Inc()
}

// FileStored counts one file written by the relay.
func (c *Collector) FileStored() {
	if c == nil {
		return
	}
	c.filesStored.Inc()
}

// FileDropped counts one File message dropped for reason.
func (c *Collector) FileDropped(reason string) {
	if c == nil {
		return
	}
	c.filesDropped.WithLabelValues(reason).Inc()
}
