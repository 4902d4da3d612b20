package httpx

import (
	"net/http"

	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/app"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/room"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/ws"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, hub *ws.Hub, reg *room.Registry) http.Handler {
	mw := NewMiddleware(cfg)
	api := &RoomsAPI{Reg: reg}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint; the room is chosen by the join event, not the URL
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Read-only room views
	mux.Handle("GET /api/rooms", http.HandlerFunc(api.List))
	mux.Handle("GET /api/rooms/{id}", http.HandlerFunc(api.Get))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
