package ws

import "encoding/json"

// Inbound event names. Kept wire-compatible with the existing clients.
const (
	evJoin              = "join"
	evLeaveRoom         = "leaveRoom"
	evCodeChange        = "codeChange"
	evLanguageChange    = "languageChange"
	evTyping            = "typing"
	evCompileCode       = "compileCode"
	evToggleWhiteboard  = "toggleWhiteboard"
	evDraw              = "draw"
	evShapeDraw         = "shapeDraw"
	evShapeOptionChange = "shapeOptionChange"
	evClearCanvas       = "clearCanvas"
	evWhiteboardJoin    = "whiteboardJoin"
	evGetWhiteboard     = "getWhiteboardState"
	evToggleVideoCall   = "toggleVideoCall"
	evJoinVideoCall     = "joinVideoCall"
	evLeaveVideoCall    = "leaveVideoCall"
	evEndVideoCall      = "endVideoCall"
)

// Outbound event names.
const (
	evCodeUpdate           = "codeUpdate"
	evLanguageUpdate       = "languageUpdate"
	evOutputUpdate         = "outputUpdate"
	evUserTyping           = "userTyping"
	evCodeResponse         = "codeResponse"
	evToggledWhiteboard    = "toggledWhiteboard"
	evWhiteboardStateSync  = "whiteboardStateSync"
	evUserJoinedWhiteboard = "userJoinedWhiteboard"
	evVideoCallRoster      = "videoCallParticipantsUpdated"
	evVideoCallEnded       = "videoCallEnded"
	evUserJoined           = "userJoined"
	evUserLeft             = "userLeft"
	evUserListUpdated      = "userListUpdated"
)

// envelope is the wire frame: an event name plus its payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads. Pointer fields distinguish "absent" from zero values
// so the router can reject structurally malformed frames.

type joinPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type codeChangePayload struct {
	RoomID string  `json:"roomId"`
	Code   *string `json:"code"`
}

type languageChangePayload struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

type typingPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type compilePayload struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Language string `json:"language"`
	Version  string `json:"version"`
	Input    string `json:"input"`
}

type togglePayload struct {
	RoomID  string `json:"roomId"`
	Visible *bool  `json:"visible"`
}

type drawPayload struct {
	RoomID string   `json:"roomId"`
	X0     *float64 `json:"x0"`
	Y0     *float64 `json:"y0"`
	X1     *float64 `json:"x1"`
	Y1     *float64 `json:"y1"`
	Color  string   `json:"color"`
	Tool   string   `json:"tool"`
	Width  float64  `json:"width"`
}

type shapeDrawPayload struct {
	RoomID string   `json:"roomId"`
	Type   string   `json:"type"`
	X0     *float64 `json:"x0"`
	Y0     *float64 `json:"y0"`
	X1     *float64 `json:"x1"`
	Y1     *float64 `json:"y1"`
	Color  string   `json:"color"`
}

type shapeOptionPayload struct {
	Shape string `json:"shape"`
}

type roomOnlyPayload struct {
	RoomID string `json:"roomId"`
}

type callMemberPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// Outbound payloads that are not raw registry types.

type toggledWhiteboardMsg struct {
	Visible  bool `json:"visible"`
	Shapes   any  `json:"shapes"`
	Drawings any  `json:"drawings"`
}

type toggleVideoCallMsg struct {
	Visible      bool `json:"visible"`
	Participants any  `json:"participants"`
}

type rosterMsg struct {
	Participants any `json:"participants"`
}

type userLeftMsg struct {
	UserName string `json:"userName"`
	Reason   string `json:"reason"`
}

type userListMsg struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

type wbUserJoinedMsg struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
