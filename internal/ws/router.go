package ws

import (
	"context"
	"encoding/json"

	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/exec"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/room"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/pkg/metrics"
)

// route validates an inbound frame and invokes the matching registry
// operation plus dispatch. Malformed frames are dropped with only a debug
// log; the client is never told.
func (h *Hub) route(ctx context.Context, c *Conn, frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		h.drop(c, "frame", err)
		return
	}
	metrics.EventsTotal.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case evJoin:
		var p joinPayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.UserName == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.handleJoin(c, p)

	case evLeaveRoom:
		h.leaveCurrentRoom(c, "left")

	case evCodeChange:
		var p codeChangePayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.Code == nil {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			h.reg.SetCode(p.RoomID, *p.Code)
			h.broadcastOthers(p.RoomID, c, evCodeUpdate, *p.Code)
		})

	case evLanguageChange:
		var p languageChangePayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.Language == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			h.reg.SetLanguage(p.RoomID, p.Language)
			h.broadcastAll(p.RoomID, evLanguageUpdate, p.Language)
		})

	case evTyping:
		var p typingPayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.UserName == "" {
			h.drop(c, env.Event, nil)
			return
		}
		// Transient; nothing stored.
		h.broadcastOthers(p.RoomID, c, evUserTyping, p.UserName)

	case evCompileCode:
		var p compilePayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.Language == "" {
			h.drop(c, env.Event, nil)
			return
		}
		// The execution service is external and slow; call it outside any
		// room critical section and off the read loop.
		go h.handleCompile(ctx, p)

	case evToggleWhiteboard:
		var p togglePayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.Visible == nil {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			wb := h.reg.ToggleWhiteboard(p.RoomID, *p.Visible)
			h.broadcastAll(p.RoomID, evToggledWhiteboard, toggledWhiteboardMsg{
				Visible:  wb.Visible,
				Shapes:   wb.Shapes,
				Drawings: wb.Strokes,
			})
		})

	case evDraw:
		var p drawPayload
		if !decode(env.Data, &p) || !validDraw(p) {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			st := h.reg.AddStroke(p.RoomID, room.Stroke{
				X0: *p.X0, Y0: *p.Y0, X1: *p.X1, Y1: *p.Y1,
				Color: p.Color, Tool: p.Tool, Width: p.Width,
			}, c.ID())
			h.broadcastOthers(p.RoomID, c, evDraw, st)
		})

	case evShapeDraw:
		var p shapeDrawPayload
		if !decode(env.Data, &p) || !validShape(p) {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			sh := h.reg.AddShape(p.RoomID, room.Shape{
				Type: p.Type,
				X0:   *p.X0, Y0: *p.Y0, X1: *p.X1, Y1: *p.Y1,
				Color: p.Color,
			}, c.ID())
			h.broadcastOthers(p.RoomID, c, evShapeDraw, sh)
		})

	case evShapeOptionChange:
		var p shapeOptionPayload
		if !decode(env.Data, &p) || p.Shape == "" {
			h.drop(c, env.Event, nil)
			return
		}
		roomID, _, joined := c.Session()
		if !joined {
			return
		}
		// Tool selection relay; opaque to the core.
		h.broadcastOthers(roomID, c, evShapeOptionChange, p.Shape)

	case evClearCanvas:
		var p roomOnlyPayload
		if !decode(env.Data, &p) || p.RoomID == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			h.reg.ClearWhiteboard(p.RoomID)
			h.broadcastAll(p.RoomID, evClearCanvas, struct{}{})
		})

	case evWhiteboardJoin:
		var p roomOnlyPayload
		if !decode(env.Data, &p) || p.RoomID == "" {
			h.drop(c, env.Event, nil)
			return
		}
		_, userName, _ := c.Session()
		if userName == "" {
			userName = "User " + shortID(c.ID())
		}
		h.inRoom(p.RoomID, func() {
			wb, added := h.reg.WhiteboardJoin(p.RoomID, c.ID(), userName)
			h.unicast(c, evWhiteboardStateSync, wb)
			if added {
				h.broadcastOthers(p.RoomID, c, evUserJoinedWhiteboard, wbUserJoinedMsg{ID: c.ID(), Name: userName})
			}
		})

	case evGetWhiteboard:
		var p roomOnlyPayload
		if !decode(env.Data, &p) || p.RoomID == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			wb := h.reg.Whiteboard(p.RoomID)
			h.unicast(c, evToggledWhiteboard, toggledWhiteboardMsg{
				Visible:  wb.Visible,
				Shapes:   wb.Shapes,
				Drawings: wb.Strokes,
			})
		})

	case evToggleVideoCall:
		var p togglePayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.Visible == nil {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			vc := h.reg.ToggleVideoCall(p.RoomID, *p.Visible)
			h.broadcastAll(p.RoomID, evToggleVideoCall, toggleVideoCallMsg{
				Visible:      vc.Active,
				Participants: vc.Participants,
			})
		})

	case evJoinVideoCall:
		var p callMemberPayload
		if !decode(env.Data, &p) || p.RoomID == "" || p.UserName == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			roster, changed := h.reg.AddCallParticipant(p.RoomID, c.ID(), p.UserName)
			if changed {
				h.broadcastAll(p.RoomID, evVideoCallRoster, rosterMsg{Participants: roster})
			}
		})

	case evLeaveVideoCall:
		var p roomOnlyPayload
		if !decode(env.Data, &p) || p.RoomID == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			roster, changed := h.reg.RemoveCallParticipant(p.RoomID, c.ID())
			if changed {
				h.broadcastAll(p.RoomID, evVideoCallRoster, rosterMsg{Participants: roster})
			}
		})

	case evEndVideoCall:
		var p roomOnlyPayload
		if !decode(env.Data, &p) || p.RoomID == "" {
			h.drop(c, env.Event, nil)
			return
		}
		h.inRoom(p.RoomID, func() {
			h.reg.EndVideoCall(p.RoomID)
			h.broadcastAll(p.RoomID, evVideoCallEnded, roomOnlyPayload{RoomID: p.RoomID})
		})

	default:
		h.drop(c, env.Event, nil)
	}
}

// handleJoin binds the connection to a room, leaving any prior room
// first, then bootstraps the joiner with five ordered unicast messages
// before the presence broadcast.
func (h *Hub) handleJoin(c *Conn, p joinPayload) {
	prevRoom, prevUser, wasJoined := c.bind(p.RoomID, p.UserName)
	if wasJoined {
		h.departRoom(c, prevRoom, prevUser, "left")
	}

	lock := h.roomLock(p.RoomID)
	lock.Lock()
	defer lock.Unlock()

	h.addToRoom(p.RoomID, c)
	snap, users := h.reg.Join(p.RoomID, p.UserName)

	// Bootstrap: the snapshot is atomic with respect to other room
	// mutations, and these five frames land before any later broadcast.
	h.unicast(c, evCodeUpdate, snap.Code)
	h.unicast(c, evLanguageUpdate, snap.Language)
	h.unicast(c, evOutputUpdate, snap.Output)
	h.unicast(c, evToggledWhiteboard, toggledWhiteboardMsg{
		Visible:  snap.Whiteboard.Visible,
		Shapes:   snap.Whiteboard.Shapes,
		Drawings: snap.Whiteboard.Strokes,
	})
	h.unicast(c, evToggleVideoCall, toggleVideoCallMsg{
		Visible:      snap.VideoCall.Active,
		Participants: snap.VideoCall.Participants,
	})

	h.broadcastAll(p.RoomID, evUserJoined, users)
	h.broadcastAll(p.RoomID, evUserListUpdated, userListMsg{Users: users, Count: len(users)})
	h.log.Info("room.joined", "room", p.RoomID, "user", p.UserName, "conn", c.ID())
}

// departRoom broadcasts a departure from a specific room. Used for the
// implicit leave on re-join, where the session is already rebound.
func (h *Hub) departRoom(c *Conn, roomID, userName, reason string) {
	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	h.removeFromRoom(roomID, c)
	users, left, roster, rosterChanged := h.reg.Leave(roomID, userName, c.ID())
	if !left {
		return
	}
	h.broadcastAll(roomID, evUserJoined, users)
	h.broadcastAll(roomID, evUserLeft, userLeftMsg{UserName: userName, Reason: reason})
	h.broadcastAll(roomID, evUserListUpdated, userListMsg{Users: users, Count: len(users)})
	if rosterChanged {
		h.broadcastAll(roomID, evVideoCallRoster, rosterMsg{Participants: roster})
	}
}

// handleCompile calls the external execution service, then publishes the
// result to the whole room. Errors surface as output text because the
// client only reads run.output.
func (h *Hub) handleCompile(ctx context.Context, p compilePayload) {
	resp, err := h.exec.Run(ctx, exec.Request{
		Language: p.Language,
		Version:  p.Version,
		Source:   p.Code,
		Stdin:    p.Input,
	})
	if err != nil {
		h.log.Error("exec.run", "room", p.RoomID, "lang", p.Language, "err", err)
		resp = &exec.Response{Run: exec.RunResult{Output: "execution failed: " + err.Error()}}
	}

	h.inRoom(p.RoomID, func() {
		h.reg.SetOutput(p.RoomID, resp.Run.Output)
		h.broadcastAll(p.RoomID, evCodeResponse, resp)
		h.broadcastAll(p.RoomID, evOutputUpdate, resp.Run.Output)
	})
}

// inRoom serializes fn against all other mutation-plus-dispatch work for
// the same room. Other rooms proceed in parallel.
func (h *Hub) inRoom(roomID string, fn func()) {
	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// drop logs a rejected frame. Deliberately silent toward the client.
func (h *Hub) drop(c *Conn, event string, err error) {
	h.log.Debug("ws.drop", "conn", c.ID(), "event", event, "err", err)
}

func decode(raw json.RawMessage, v any) bool {
	if raw == nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func validDraw(p drawPayload) bool {
	return p.RoomID != "" &&
		p.X0 != nil && p.Y0 != nil && p.X1 != nil && p.Y1 != nil &&
		p.Color != "" && room.ValidTool(p.Tool) && p.Width > 0
}

func validShape(p shapeDrawPayload) bool {
	return p.RoomID != "" &&
		p.X0 != nil && p.Y0 != nil && p.X1 != nil && p.Y1 != nil &&
		p.Color != "" && room.ValidShapeType(p.Type)
}

// shortID trims a connection id down to a display suffix.
func shortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}
