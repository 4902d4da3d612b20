package room

import "time"

// Defaults seeded into every freshly created room.
const (
	DefaultCode     = "// write code here"
	DefaultLanguage = "javascript"
)

// Stroke is one freehand segment on the whiteboard. Append-only; never
// mutated after the registry accepts it.
type Stroke struct {
	ID        int64   `json:"id"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Color     string  `json:"color"`
	Tool      string  `json:"tool"` // "pen" or "eraser"
	Width     float64 `json:"width"`
	UserID    string  `json:"userId"` // originating connection id
	Timestamp int64   `json:"timestamp"`
}

// Shape is one geometric primitive on the whiteboard. The registry stores
// and relays shapes; it never interprets their geometry.
type Shape struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	Color     string  `json:"color"`
	UserID    string  `json:"userId"`
	Timestamp int64   `json:"timestamp"`
}

// shapeTypes is the accepted tagged shape set; anything else is rejected
// by the router before it reaches the registry.
var shapeTypes = map[string]bool{
	"line":      true,
	"rectangle": true,
	"circle":    true,
	"ellipse":   true,
	"triangle":  true,
	"diamond":   true,
	"pentagon":  true,
}

// ValidShapeType reports whether t is one of the supported shape tags.
func ValidShapeType(t string) bool { return shapeTypes[t] }

// ValidTool reports whether t is a supported stroke tool.
func ValidTool(t string) bool { return t == "pen" || t == "eraser" }

// Cursor is a whiteboard user's last known pointer position.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WhiteboardUser is a connection that opened the whiteboard view.
type WhiteboardUser struct {
	ID     string `json:"id"` // connection id
	Name   string `json:"name"`
	Cursor Cursor `json:"cursor"`
}

// CallParticipant is one entry in the video-call roster. The core tracks
// the roster only; media is handled entirely by the external call provider.
type CallParticipant struct {
	ID       string `json:"id"` // connection id
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
}

// WhiteboardState is the whiteboard sub-snapshot sent on bootstrap and
// whiteboardStateSync.
type WhiteboardState struct {
	Visible bool             `json:"visible"`
	Strokes []Stroke         `json:"drawings"`
	Shapes  []Shape          `json:"shapes"`
	Users   []WhiteboardUser `json:"users"`
}

// VideoCallState is the call sub-snapshot.
type VideoCallState struct {
	Active       bool              `json:"active"`
	Participants []CallParticipant `json:"participants"`
}

// Snapshot is the complete state of a room at one instant, handed to a
// joining connection for bootstrap. All slices are copies; callers may
// serialize them without racing subsequent mutations.
type Snapshot struct {
	Code       string
	Language   string
	Output     string
	Users      []string
	Whiteboard WhiteboardState
	VideoCall  VideoCallState
}

// Info is the lightweight per-room view exposed by the rooms API.
type Info struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

// state is the mutable data for one room. Guarded by its own mutex inside
// the registry; never handed out directly.
type state struct {
	users []string // presence: display names currently joined, insertion order

	code     string
	language string
	output   string

	wbVisible bool
	strokes   []Stroke
	shapes    []Shape
	wbUsers   []WhiteboardUser

	callActive bool
	callRoster []CallParticipant

	seq        int64     // per-room monotonic id source
	emptySince time.Time // zero while the room has members
}

func newState() *state {
	return &state{
		code:       DefaultCode,
		language:   DefaultLanguage,
		emptySince: time.Now(),
	}
}

func (s *state) hasUser(name string) bool {
	for _, u := range s.users {
		if u == name {
			return true
		}
	}
	return false
}

// addUser appends name to presence if absent.
func (s *state) addUser(name string) {
	if !s.hasUser(name) {
		s.users = append(s.users, name)
	}
}

// removeUser drops name from presence, reporting whether it was present.
func (s *state) removeUser(name string) bool {
	for i, u := range s.users {
		if u == name {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return true
		}
	}
	return false
}

// nextID advances the room's id sequence. Monotonic, so stroke/shape ids
// are totally ordered within a room.
func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// userList re-serializes the presence set as a sequence for transmission.
// Never nil: the wire format promises an array.
func (s *state) userList() []string {
	out := make([]string, len(s.users))
	copy(out, s.users)
	return out
}

func (s *state) whiteboard() WhiteboardState {
	return WhiteboardState{
		Visible: s.wbVisible,
		Strokes: copySlice(s.strokes),
		Shapes:  copySlice(s.shapes),
		Users:   copySlice(s.wbUsers),
	}
}

func (s *state) videoCall() VideoCallState {
	return VideoCallState{
		Active:       s.callActive,
		Participants: copySlice(s.callRoster),
	}
}

// copySlice returns a non-nil copy so empty logs marshal as [] rather
// than null.
func copySlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func (s *state) snapshot() Snapshot {
	return Snapshot{
		Code:       s.code,
		Language:   s.language,
		Output:     s.output,
		Users:      s.userList(),
		Whiteboard: s.whiteboard(),
		VideoCall:  s.videoCall(),
	}
}

// touchEmpty keeps the eviction clock in sync with presence.
func (s *state) touchEmpty() {
	if len(s.users) == 0 {
		if s.emptySince.IsZero() {
			s.emptySince = time.Now()
		}
	} else {
		s.emptySince = time.Time{}
	}
}
