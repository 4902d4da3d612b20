package room

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry owns all room state for the process. It is a pure state
// machine: mutators return whatever the caller needs to build broadcast
// payloads, and nothing is ever sent from inside the registry, so it is
// testable without a transport.
//
// Every operation locks only the target room, never the whole registry,
// so unrelated rooms are never serialized against each other.
type Registry struct {
	log *slog.Logger
	ttl time.Duration // evict rooms empty longer than this

	mu    sync.RWMutex
	rooms map[string]*entry
}

type entry struct {
	mu sync.Mutex
	st *state
}

// NewRegistry creates an empty registry. Rooms whose presence stays empty
// for ttl are reclaimed by Run; ttl <= 0 disables eviction.
func NewRegistry(logger *slog.Logger, ttl time.Duration) *Registry {
	return &Registry{log: logger, ttl: ttl, rooms: map[string]*entry{}}
}

// room returns the entry for id, creating it with default state if absent.
func (r *Registry) room(id string) *entry {
	r.mu.RLock()
	e := r.rooms[id]
	r.mu.RUnlock()
	if e != nil {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e = r.rooms[id]; e == nil {
		e = &entry{st: newState()}
		r.rooms[id] = e
		r.log.Debug("room.created", "room", id)
	}
	return e
}

// withRoom runs fn with the room's state locked.
func (r *Registry) withRoom(id string, fn func(*state)) {
	e := r.room(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.st)
	e.st.touchEmpty()
}

// Join adds name to the room's presence and returns a full consistent
// snapshot for bootstrap plus the updated user list.
func (r *Registry) Join(roomID, name string) (snap Snapshot, users []string) {
	r.withRoom(roomID, func(s *state) {
		s.addUser(name)
		snap = s.snapshot()
		users = snap.Users
	})
	return snap, users
}

// Leave removes name from presence. Idempotent: left is false when the
// name was not present, and callers should broadcast nothing in that case.
// The returned roster and changed flag cover the connection's video-call
// entry, which is removed alongside presence.
func (r *Registry) Leave(roomID, name, connID string) (users []string, left bool, roster []CallParticipant, rosterChanged bool) {
	r.withRoom(roomID, func(s *state) {
		left = s.removeUser(name)
		users = s.userList()

		// A departing connection cannot stay on the whiteboard or in the
		// call roster.
		for i, u := range s.wbUsers {
			if u.ID == connID {
				s.wbUsers = append(s.wbUsers[:i], s.wbUsers[i+1:]...)
				break
			}
		}
		for i, p := range s.callRoster {
			if p.ID == connID {
				s.callRoster = append(s.callRoster[:i], s.callRoster[i+1:]...)
				rosterChanged = true
				break
			}
		}
		roster = copySlice(s.callRoster)
	})
	return users, left, roster, rosterChanged
}

// SetCode replaces the shared code buffer, last writer wins.
func (r *Registry) SetCode(roomID, code string) {
	r.withRoom(roomID, func(s *state) { s.code = code })
}

// SetLanguage replaces the language tag.
func (r *Registry) SetLanguage(roomID, lang string) {
	r.withRoom(roomID, func(s *state) { s.language = lang })
}

// SetOutput replaces the last execution output.
func (r *Registry) SetOutput(roomID, out string) {
	r.withRoom(roomID, func(s *state) { s.output = out })
}

// ToggleWhiteboard sets visibility and hard-resets drawn content: both
// toggling on and off clear strokes and shapes, preserving whiteboard
// users. Returns the post-toggle whiteboard state for the broadcast.
func (r *Registry) ToggleWhiteboard(roomID string, visible bool) (wb WhiteboardState) {
	r.withRoom(roomID, func(s *state) {
		s.wbVisible = visible
		s.strokes = nil
		s.shapes = nil
		wb = s.whiteboard()
	})
	return wb
}

// AddStroke appends a stroke, stamping it with a registry-issued id,
// author connection id, and timestamp. The stored value is returned for
// relay to the rest of the room.
func (r *Registry) AddStroke(roomID string, st Stroke, connID string) (out Stroke) {
	r.withRoom(roomID, func(s *state) {
		st.ID = s.nextID()
		st.UserID = connID
		st.Timestamp = time.Now().UnixMilli()
		s.strokes = append(s.strokes, st)
		out = st
	})
	return out
}

// AddShape appends a shape the same way AddStroke appends strokes.
func (r *Registry) AddShape(roomID string, sh Shape, connID string) (out Shape) {
	r.withRoom(roomID, func(s *state) {
		sh.ID = s.nextID()
		sh.UserID = connID
		sh.Timestamp = time.Now().UnixMilli()
		s.shapes = append(s.shapes, sh)
		out = sh
	})
	return out
}

// ClearWhiteboard empties strokes and shapes, leaving visibility and
// whiteboard users untouched.
func (r *Registry) ClearWhiteboard(roomID string) {
	r.withRoom(roomID, func(s *state) {
		s.strokes = nil
		s.shapes = nil
	})
}

// WhiteboardJoin registers the connection as a whiteboard user (idempotent
// by connection id) and returns the current whiteboard state for the
// unicast sync plus whether the user was newly added.
func (r *Registry) WhiteboardJoin(roomID, connID, name string) (wb WhiteboardState, added bool) {
	r.withRoom(roomID, func(s *state) {
		found := false
		for _, u := range s.wbUsers {
			if u.ID == connID {
				found = true
				break
			}
		}
		if !found {
			s.wbUsers = append(s.wbUsers, WhiteboardUser{ID: connID, Name: name})
			added = true
		}
		wb = s.whiteboard()
	})
	return wb, added
}

// Whiteboard returns the current whiteboard state without mutating it.
func (r *Registry) Whiteboard(roomID string) (wb WhiteboardState) {
	r.withRoom(roomID, func(s *state) { wb = s.whiteboard() })
	return wb
}

// ToggleVideoCall sets the active flag. Deactivating does not clear the
// roster; ending a call and emptying it are distinct signals.
func (r *Registry) ToggleVideoCall(roomID string, active bool) (vc VideoCallState) {
	r.withRoom(roomID, func(s *state) {
		s.callActive = active
		vc = s.videoCall()
	})
	return vc
}

// EndVideoCall deactivates the call and clears the roster.
func (r *Registry) EndVideoCall(roomID string) {
	r.withRoom(roomID, func(s *state) {
		s.callActive = false
		s.callRoster = nil
	})
}

// AddCallParticipant adds the connection to the roster. Idempotent: a
// connection never appears twice, and changed is false on the duplicate.
func (r *Registry) AddCallParticipant(roomID, connID, name string) (roster []CallParticipant, changed bool) {
	r.withRoom(roomID, func(s *state) {
		for _, p := range s.callRoster {
			if p.ID == connID {
				roster = copySlice(s.callRoster)
				return
			}
		}
		s.callRoster = append(s.callRoster, CallParticipant{
			ID:       connID,
			Name:     name,
			JoinedAt: time.Now().UnixMilli(),
		})
		changed = true
		roster = copySlice(s.callRoster)
	})
	return roster, changed
}

// RemoveCallParticipant removes the connection from the roster; no-op if
// absent.
func (r *Registry) RemoveCallParticipant(roomID, connID string) (roster []CallParticipant, changed bool) {
	r.withRoom(roomID, func(s *state) {
		for i, p := range s.callRoster {
			if p.ID == connID {
				s.callRoster = append(s.callRoster[:i], s.callRoster[i+1:]...)
				changed = true
				break
			}
		}
		roster = copySlice(s.callRoster)
	})
	return roster, changed
}

// Snapshot returns the room's full state. Auto-creates like every other
// operation.
func (r *Registry) Snapshot(roomID string) (snap Snapshot) {
	r.withRoom(roomID, func(s *state) { snap = s.snapshot() })
	return snap
}

// Exists reports whether the room is currently live, without creating it.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// List returns an Info per live room for the rooms API.
func (r *Registry) List() []Info {
	r.mu.RLock()
	entries := make(map[string]*entry, len(r.rooms))
	for id, e := range r.rooms {
		entries[id] = e
	}
	r.mu.RUnlock()

	out := make([]Info, 0, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		out = append(out, Info{ID: id, Members: len(e.st.users)})
		e.mu.Unlock()
	}
	return out
}

// Run sweeps for evictable rooms until ctx is done. A room is evicted
// only once its presence has been empty for the full TTL; any join in
// between resets the clock.
func (r *Registry) Run(ctx context.Context) {
	if r.ttl <= 0 {
		<-ctx.Done()
		return
	}

	tick := time.NewTicker(r.ttl / 4)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			r.evictStale()
		}
	}
}

func (r *Registry) evictStale() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.rooms {
		e.mu.Lock()
		stale := len(e.st.users) == 0 && !e.st.emptySince.IsZero() && e.st.emptySince.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(r.rooms, id)
			r.log.Info("room.evicted", "room", id)
		}
	}
}
