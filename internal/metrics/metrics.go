package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ursuslabs/ursus-realtime/internal/hub"
)

// Hub holds the hub's Prometheus collectors. Gauges track the current
// snapshot; counters accumulate window totals across snapshots.
type Hub struct {
	registry *prometheus.Registry

	connections   prometheus.Gauge
	subscriptions prometheus.Gauge
	channels      prometheus.Gauge

	messagesIn  prometheus.Counter
	messagesOut prometheus.Counter
	bytesIn     prometheus.Counter
	bytesOut    prometheus.Counter
	errors      prometheus.Counter

	bridgeEvents *prometheus.CounterVec
}

// NewHub creates and registers the hub collectors on a fresh registry.
func NewHub() *Hub {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Hub{
		registry: reg,
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ursus_hub_connections",
			Help: "Currently connected clients.",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ursus_hub_subscriptions",
			Help: "Active (client, channel) subscription pairs.",
		}),
		channels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ursus_hub_channels",
			Help: "Channels with at least one subscriber.",
		}),
		messagesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "ursus_hub_messages_in_total",
			Help: "Inbound client messages.",
		}),
		messagesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "ursus_hub_messages_out_total",
			Help: "Outbound frames delivered to clients.",
		}),
		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "ursus_hub_bytes_in_total",
			Help: "Inbound payload bytes.",
		}),
		bytesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "ursus_hub_bytes_out_total",
			Help: "Outbound payload bytes.",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ursus_hub_errors_total",
			Help: "Per-connection protocol and delivery errors.",
		}),
		bridgeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ursus_bridge_events_total",
			Help: "Domain events dispatched by the bridge.",
		}, []string{"result"}),
	}
}

// Observe applies one stats snapshot to the collectors. Wire it as the
// hub's stats observer.
func (m *Hub) Observe(s hub.Snapshot) {
	m.connections.Set(float64(s.ActiveConnections))
	m.subscriptions.Set(float64(s.Subscriptions))
	m.channels.Set(float64(s.Channels))

	m.messagesIn.Add(float64(s.MessagesIn))
	m.messagesOut.Add(float64(s.MessagesOut))
	m.bytesIn.Add(float64(s.BytesIn))
	m.bytesOut.Add(float64(s.BytesOut))
	m.errors.Add(float64(s.Errors))
}

// ObserveBridge records bridge dispatch counts by result
// ("dispatched", "decode_error", "unknown").
func (m *Hub) ObserveBridge(result string, n float64) {
	m.bridgeEvents.WithLabelValues(result).Add(n)
}

// Handler serves the metrics endpoint.
func (m *Hub) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
