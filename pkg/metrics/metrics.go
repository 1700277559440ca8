package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoomsCreated counts rooms allocated over the process lifetime.
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamelink_rooms_created_total",
		Help: "Rooms created.",
	})

	// MessagesRelayed counts link cable payloads forwarded between players.
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamelink_link_messages_relayed_total",
		Help: "Link cable messages relayed.",
	})

	// WSConnections tracks currently open websocket connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamelink_ws_connections",
		Help: "Open websocket connections.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
