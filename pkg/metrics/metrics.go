package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsOpen tracks live websocket connections.
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_open",
		Help: "Currently open websocket connections.",
	})

	// EventsTotal counts routed inbound events by name, including dropped
	// ones.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_total",
		Help: "Inbound websocket events routed, by event name.",
	}, []string{"event"})
)

// RegisterRoomCount exposes the live room total as a gauge pulled from the
// registry at scrape time.
func RegisterRoomCount(count func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rooms_active",
		Help: "Rooms currently held in the registry.",
	}, count)
}

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
