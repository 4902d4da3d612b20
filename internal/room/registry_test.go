package room

import (
	"log/slog"
	"testing"
	"time"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(slog.Default(), 0)
}

func TestJoinDefaults(t *testing.T) {
	r := testRegistry(t)

	snap, users := r.Join("r1", "A")
	if snap.Code != DefaultCode {
		t.Fatalf("code = %q, want %q", snap.Code, DefaultCode)
	}
	if snap.Language != DefaultLanguage {
		t.Fatalf("language = %q, want %q", snap.Language, DefaultLanguage)
	}
	if snap.Output != "" {
		t.Fatalf("output = %q, want empty", snap.Output)
	}
	if len(users) != 1 || users[0] != "A" {
		t.Fatalf("users = %v, want [A]", users)
	}
	if snap.Whiteboard.Visible || len(snap.Whiteboard.Strokes) != 0 || len(snap.Whiteboard.Shapes) != 0 {
		t.Fatalf("whiteboard not empty: %+v", snap.Whiteboard)
	}
	if snap.VideoCall.Active || len(snap.VideoCall.Participants) != 0 {
		t.Fatalf("video call not empty: %+v", snap.VideoCall)
	}
}

func TestSnapshotReflectsPriorMutations(t *testing.T) {
	r := testRegistry(t)

	r.Join("r1", "A")
	r.SetCode("r1", "print(1)")
	r.SetLanguage("r1", "python")
	r.SetOutput("r1", "1\n")
	r.AddStroke("r1", Stroke{X0: 1, Y1: 2, Color: "#000", Tool: "pen", Width: 2}, "connA")
	r.AddShape("r1", Shape{Type: "circle", Color: "#f00"}, "connA")

	snap, users := r.Join("r1", "B")
	if snap.Code != "print(1)" || snap.Language != "python" || snap.Output != "1\n" {
		t.Fatalf("snapshot code state = %q/%q/%q", snap.Code, snap.Language, snap.Output)
	}
	if len(snap.Whiteboard.Strokes) != 1 || len(snap.Whiteboard.Shapes) != 1 {
		t.Fatalf("snapshot whiteboard = %+v", snap.Whiteboard)
	}
	if len(users) != 2 || users[0] != "A" || users[1] != "B" {
		t.Fatalf("users = %v, want [A B]", users)
	}
}

func TestJoinIsIdempotentPerName(t *testing.T) {
	r := testRegistry(t)
	r.Join("r1", "A")
	_, users := r.Join("r1", "A")
	if len(users) != 1 {
		t.Fatalf("users = %v, want single A", users)
	}
}

func TestLeaveIdempotent(t *testing.T) {
	r := testRegistry(t)
	r.Join("r1", "A")

	users, left, _, _ := r.Leave("r1", "A", "connA")
	if !left || len(users) != 0 {
		t.Fatalf("first leave: left=%v users=%v", left, users)
	}

	users, left, _, rosterChanged := r.Leave("r1", "A", "connA")
	if left || rosterChanged {
		t.Fatalf("second leave must be a no-op, got left=%v rosterChanged=%v", left, rosterChanged)
	}
	if len(users) != 0 {
		t.Fatalf("users = %v", users)
	}
}

func TestLeaveRemovesCallAndWhiteboardEntries(t *testing.T) {
	r := testRegistry(t)
	r.Join("r1", "A")
	r.WhiteboardJoin("r1", "connA", "A")
	r.AddCallParticipant("r1", "connA", "A")

	roster, changed := func() ([]CallParticipant, bool) {
		_, _, roster, changed := r.Leave("r1", "A", "connA")
		return roster, changed
	}()
	if !changed || len(roster) != 0 {
		t.Fatalf("roster after leave = %v changed=%v", roster, changed)
	}
	if wb := r.Whiteboard("r1"); len(wb.Users) != 0 {
		t.Fatalf("whiteboard users after leave = %v", wb.Users)
	}
}

func TestStrokeIDsMonotonic(t *testing.T) {
	r := testRegistry(t)

	var last int64
	for i := 0; i < 10; i++ {
		st := r.AddStroke("r1", Stroke{Color: "#000", Tool: "pen", Width: 1}, "connA")
		if st.ID <= last {
			t.Fatalf("stroke id %d not greater than %d", st.ID, last)
		}
		last = st.ID
	}
	// Shapes draw from the same sequence, so ids stay unique room-wide.
	sh := r.AddShape("r1", Shape{Type: "line", Color: "#000"}, "connA")
	if sh.ID <= last {
		t.Fatalf("shape id %d not greater than %d", sh.ID, last)
	}
}

func TestStrokeOrderPreserved(t *testing.T) {
	r := testRegistry(t)
	for i := 0; i < 5; i++ {
		r.AddStroke("r1", Stroke{X0: float64(i), Color: "#000", Tool: "pen", Width: 1}, "connA")
	}
	snap := r.Snapshot("r1")
	for i, st := range snap.Whiteboard.Strokes {
		if st.X0 != float64(i) {
			t.Fatalf("stroke %d out of order: %+v", i, st)
		}
	}
}

func TestToggleWhiteboardResetsContent(t *testing.T) {
	r := testRegistry(t)
	r.AddStroke("r1", Stroke{Color: "#000", Tool: "pen", Width: 1}, "connA")
	r.AddShape("r1", Shape{Type: "rectangle", Color: "#000"}, "connA")
	r.WhiteboardJoin("r1", "connA", "A")

	for _, visible := range []bool{true, false} {
		wb := r.ToggleWhiteboard("r1", visible)
		if wb.Visible != visible {
			t.Fatalf("visible = %v, want %v", wb.Visible, visible)
		}
		if len(wb.Strokes) != 0 || len(wb.Shapes) != 0 {
			t.Fatalf("toggle did not reset content: %+v", wb)
		}
		if len(wb.Users) != 1 {
			t.Fatalf("toggle must preserve whiteboard users, got %v", wb.Users)
		}
	}
}

func TestClearWhiteboardPreservesUsers(t *testing.T) {
	r := testRegistry(t)
	r.AddStroke("r1", Stroke{Color: "#000", Tool: "pen", Width: 1}, "connA")
	r.AddShape("r1", Shape{Type: "circle", Color: "#000"}, "connA")
	r.WhiteboardJoin("r1", "connA", "A")

	r.ClearWhiteboard("r1")

	wb := r.Whiteboard("r1")
	if len(wb.Strokes) != 0 || len(wb.Shapes) != 0 {
		t.Fatalf("clear left content: %+v", wb)
	}
	if len(wb.Users) != 1 || wb.Users[0].ID != "connA" {
		t.Fatalf("clear dropped whiteboard users: %v", wb.Users)
	}
}

func TestWhiteboardJoinIdempotent(t *testing.T) {
	r := testRegistry(t)

	_, added := r.WhiteboardJoin("r1", "connA", "A")
	if !added {
		t.Fatal("first whiteboard join should add")
	}
	wb, added := r.WhiteboardJoin("r1", "connA", "A")
	if added || len(wb.Users) != 1 {
		t.Fatalf("duplicate whiteboard join: added=%v users=%v", added, wb.Users)
	}
}

func TestToggleVideoCallKeepsRoster(t *testing.T) {
	r := testRegistry(t)
	r.AddCallParticipant("r1", "connA", "A")

	vc := r.ToggleVideoCall("r1", false)
	if vc.Active {
		t.Fatal("call should be inactive")
	}
	if len(vc.Participants) != 1 {
		t.Fatalf("deactivating must not clear the roster, got %v", vc.Participants)
	}
}

func TestCallParticipantIdempotency(t *testing.T) {
	r := testRegistry(t)

	roster, changed := r.AddCallParticipant("r1", "connA", "A")
	if !changed || len(roster) != 1 {
		t.Fatalf("add: changed=%v roster=%v", changed, roster)
	}
	roster, changed = r.AddCallParticipant("r1", "connA", "A")
	if changed || len(roster) != 1 {
		t.Fatalf("duplicate add: changed=%v roster=%v", changed, roster)
	}

	roster, changed = r.RemoveCallParticipant("r1", "connA")
	if !changed || len(roster) != 0 {
		t.Fatalf("remove: changed=%v roster=%v", changed, roster)
	}
	_, changed = r.RemoveCallParticipant("r1", "connA")
	if changed {
		t.Fatal("removing an absent participant must be a no-op")
	}
}

func TestEndVideoCallClearsEverything(t *testing.T) {
	r := testRegistry(t)
	r.ToggleVideoCall("r1", true)
	r.AddCallParticipant("r1", "connA", "A")
	r.AddCallParticipant("r1", "connB", "B")

	r.EndVideoCall("r1")

	snap := r.Snapshot("r1")
	if snap.VideoCall.Active || len(snap.VideoCall.Participants) != 0 {
		t.Fatalf("end call left state: %+v", snap.VideoCall)
	}
}

func TestRoomsIsolated(t *testing.T) {
	r := testRegistry(t)
	r.SetCode("r1", "one")
	r.SetCode("r2", "two")

	if got := r.Snapshot("r1").Code; got != "one" {
		t.Fatalf("r1 code = %q", got)
	}
	if got := r.Snapshot("r2").Code; got != "two" {
		t.Fatalf("r2 code = %q", got)
	}
}

func TestListAndExists(t *testing.T) {
	r := testRegistry(t)
	if r.Exists("r1") {
		t.Fatal("room should not exist yet")
	}
	r.Join("r1", "A")
	if !r.Exists("r1") {
		t.Fatal("room should exist after join")
	}
	infos := r.List()
	if len(infos) != 1 || infos[0].ID != "r1" || infos[0].Members != 1 {
		t.Fatalf("list = %v", infos)
	}
}

func TestEviction(t *testing.T) {
	r := NewRegistry(slog.Default(), 10*time.Millisecond)
	r.Join("r1", "A")
	r.Join("r2", "B")
	r.Leave("r1", "A", "connA")

	time.Sleep(20 * time.Millisecond)
	r.evictStale()

	if r.Exists("r1") {
		t.Fatal("empty room should be evicted after TTL")
	}
	if !r.Exists("r2") {
		t.Fatal("occupied room must survive eviction")
	}
}

func TestEvictionSparedWhileOccupied(t *testing.T) {
	r := NewRegistry(slog.Default(), 10*time.Millisecond)
	r.Join("r1", "A")
	time.Sleep(20 * time.Millisecond)
	r.evictStale()
	if !r.Exists("r1") {
		t.Fatal("room with members must never be evicted")
	}
}
