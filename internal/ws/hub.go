package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/exec"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/room"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/pkg/metrics"
)

// Hub owns the live connections. It tracks which connections are in which
// room (the broadcast audience, distinct from the registry's presence set
// of display names) and serializes each room's mutation-plus-dispatch so
// every member observes updates in the order the registry applied them.
type Hub struct {
	log  *slog.Logger
	reg  *room.Registry
	exec *exec.Client

	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	order map[string]*sync.Mutex // per-room event serialization, never global
}

// NewHub sets up the hub around an injected registry and exec client.
func NewHub(logger *slog.Logger, reg *room.Registry, ex *exec.Client) *Hub {
	return &Hub{
		log:   logger,
		reg:   reg,
		exec:  ex,
		rooms: map[string]map[*Conn]struct{}{},
		order: map[string]*sync.Mutex{},
	}
}

// roomLock returns the serialization mutex for a room, creating it on
// first use. Lock lifetime matches registry lifetime: cheap enough to
// keep until process exit.
func (h *Hub) roomLock(roomID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.order[roomID]
	if m == nil {
		m = &sync.Mutex{}
		h.order[roomID] = m
	}
	return m
}

// addToRoom puts the connection in the room's audience.
func (h *Hub) addToRoom(roomID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.rooms[roomID]
	if set == nil {
		set = map[*Conn]struct{}{}
		h.rooms[roomID] = set
	}
	set[c] = struct{}{}
}

// removeFromRoom drops the connection from the room's audience.
func (h *Hub) removeFromRoom(roomID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.rooms[roomID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// audience snapshots the room's connections, optionally excluding one.
func (h *Hub) audience(roomID string, except *Conn) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.rooms[roomID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		if c != except {
			out = append(out, c)
		}
	}
	return out
}

// encode builds a wire frame. A nil return means the payload could not be
// marshalled; the caller drops the message.
func (h *Hub) encode(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.Error("ws.encode", "event", event, "err", err)
		return nil
	}
	b, err := json.Marshal(envelope{Event: event, Data: raw})
	if err != nil {
		h.log.Error("ws.encode", "event", event, "err", err)
		return nil
	}
	return b
}

// unicast delivers a message only to the originating connection; used for
// bootstrap snapshots.
func (h *Hub) unicast(c *Conn, event string, data any) {
	if b := h.encode(event, data); b != nil {
		c.send(b)
	}
}

// broadcastOthers delivers to every room member except the originator,
// which already holds the authoritative local copy.
func (h *Hub) broadcastOthers(roomID string, origin *Conn, event string, data any) {
	b := h.encode(event, data)
	if b == nil {
		return
	}
	for _, c := range h.audience(roomID, origin) {
		c.send(b)
	}
}

// broadcastAll delivers to every member including the originator, so all
// of them converge on the registry's canonical value.
func (h *Hub) broadcastAll(roomID string, event string, data any) {
	h.broadcastOthers(roomID, nil, event, data)
}

// ServeWS handles a new /ws connection for its lifetime.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	wsc, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(wsc)
	h.log.Info("ws.connected", "conn", c.ID())
	metrics.ConnectionsOpen.Inc()

	go c.WriteLoop(ctx)

	for {
		payload, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.route(ctx, c, payload)
	}

	h.disconnect(c)
	metrics.ConnectionsOpen.Dec()
	h.log.Info("ws.disconnected", "conn", c.ID())
	_ = c.Close()
}

// disconnect runs the Joined -> Unjoined transition for a closed
// transport, indistinguishable from leaveRoom except for the reason tag.
func (h *Hub) disconnect(c *Conn) {
	h.leaveCurrentRoom(c, "disconnected")
}

// leaveCurrentRoom removes the connection's room binding (if any) and
// broadcasts the departure. Idempotent: a second call is a no-op.
func (h *Hub) leaveCurrentRoom(c *Conn, reason string) {
	roomID, userName, wasJoined := c.unbind()
	if !wasJoined {
		return
	}
	h.departRoom(c, roomID, userName, reason)
	h.log.Info("room.left", "room", roomID, "user", userName, "reason", reason)
}
