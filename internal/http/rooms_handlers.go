package httpx

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/agnik04dastidar/Real-Time-Code-Editor/internal/room"
)

// RoomsAPI exposes read-only views over the registry for debugging and
// room pickers. No auth: room membership is unauthorized by design.
type RoomsAPI struct{ Reg *room.Registry }

type roomStateResponse struct {
	ID         string               `json:"id"`
	Code       string               `json:"code"`
	Language   string               `json:"language"`
	Output     string               `json:"output"`
	Users      []string             `json:"users"`
	Whiteboard room.WhiteboardState `json:"whiteboard"`
	VideoCall  room.VideoCallState  `json:"videoCall"`
}

// List returns id + member count for every live room, sorted by id.
func (a *RoomsAPI) List(w http.ResponseWriter, _ *http.Request) {
	rooms := a.Reg.List()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	writeJSON(w, rooms)
}

// Get returns one room's full snapshot. 404 rather than auto-create: a
// read-only view must not spawn rooms.
func (a *RoomsAPI) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if !a.Reg.Exists(id) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	snap := a.Reg.Snapshot(id)
	writeJSON(w, roomStateResponse{
		ID:         id,
		Code:       snap.Code,
		Language:   snap.Language,
		Output:     snap.Output,
		Users:      snap.Users,
		Whiteboard: snap.Whiteboard,
		VideoCall:  snap.VideoCall,
	})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
