package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Conn wraps one live websocket connection plus its session state: at any
// moment a connection is either unjoined or bound to exactly one
// (room, displayName) pair.
type Conn struct {
	ws  *websocket.Conn
	out chan []byte
	id  string

	mu       sync.Mutex
	roomID   string
	userName string
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a websocket connection with a fresh connection id.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:  ws,
		id:  uuid.NewString(),
		out: make(chan []byte, 256),
	}
}

// ID returns the server-assigned connection id.
func (c *Conn) ID() string { return c.id }

// Session returns the current (room, displayName) binding; joined is
// false while the connection is unjoined.
func (c *Conn) Session() (roomID, userName string, joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.userName, c.roomID != ""
}

// bind transitions the session to joined, returning the prior binding so
// the caller can broadcast the implicit departure first.
func (c *Conn) bind(roomID, userName string) (prevRoom, prevUser string, wasJoined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prevRoom, prevUser, wasJoined = c.roomID, c.userName, c.roomID != ""
	c.roomID, c.userName = roomID, userName
	return prevRoom, prevUser, wasJoined
}

// unbind transitions the session back to unjoined.
func (c *Conn) unbind() (roomID, userName string, wasJoined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	roomID, userName, wasJoined = c.roomID, c.userName, c.roomID != ""
	c.roomID, c.userName = "", ""
	return roomID, userName, wasJoined
}

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// send queues an outbound frame without blocking; the frame is dropped if
// the connection's buffer is full.
func (c *Conn) send(b []byte) {
	select {
	case c.out <- b:
	default:
	}
}

// WriteLoop sends outbound messages + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the WS connection normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }
