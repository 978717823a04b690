// Package metrics holds the prometheus collectors of the chat server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Rooms       prometheus.Gauge
	Members     prometheus.Gauge
	Connections prometheus.Gauge
	Events      *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Broadcasts  prometheus.Counter
	Dropped     prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat", Name: "rooms_active",
			Help: "Live rooms in the registry.",
		}),
		Members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat", Name: "members_active",
			Help: "Connections that are members of a room.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat", Name: "connections_open",
			Help: "Open WebSocket connections.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat", Name: "events_total",
			Help: "Inbound events handled, by event name.",
		}, []string{"event"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat", Name: "rejections_total",
			Help: "Inbound events refused, by reason.",
		}, []string{"reason"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat", Name: "messages_broadcast_total",
			Help: "Chat messages fanned out to a room.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat", Name: "frames_dropped_total",
			Help: "Outbound frames dropped on a full send queue.",
		}),
	}
	reg.MustRegister(m.Rooms, m.Members, m.Connections, m.Events, m.Rejections, m.Broadcasts, m.Dropped)
	return m
}

// SetOccupancy publishes registry totals.
func (m *Metrics) SetOccupancy(rooms, members int) {
	m.Rooms.Set(float64(rooms))
	m.Members.Set(float64(members))
}

// Handler exposes the collectors of g at /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
