package app

import (
	"fmt"
	"testing"

	"github.com/dkeye/beacon/internal/domain"
)

func TestJoinAutoCreatesRoom(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", domain.UserData{"name": "alice"})

	if !s.Exists("r1") {
		t.Fatal("expected room r1 to exist after join")
	}
	if got := s.ParticipantCount("r1"); got != 1 {
		t.Fatalf("expected 1 participant, got %d", got)
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)
	s.Join("r1", "conn-b", nil)

	if !s.Leave("r1", "conn-a") {
		t.Fatal("expected leave to report removal")
	}
	if !s.Exists("r1") {
		t.Fatal("room must survive while a participant remains")
	}

	s.Leave("r1", "conn-b")
	if s.Exists("r1") {
		t.Fatal("room must be deleted the instant it empties")
	}
}

func TestLeaveAllReturnsAffectedRooms(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)
	s.Join("r2", "conn-a", nil)
	s.Join("r2", "conn-b", nil)

	affected := s.LeaveAll("conn-a")
	if len(affected) != 2 {
		t.Fatalf("expected 2 affected rooms, got %v", affected)
	}
	if s.Exists("r1") {
		t.Fatal("r1 emptied and must be gone")
	}
	if !s.Exists("r2") {
		t.Fatal("r2 still has a member and must remain")
	}
}

func TestLeaveNonexistentRoomIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	if s.Leave("ghost", "conn-a") {
		t.Fatal("leave on a missing room must be a silent no-op")
	}
	if got := s.LeaveAll("conn-a"); len(got) != 0 {
		t.Fatalf("expected no affected rooms, got %v", got)
	}
	if got := s.Participants("ghost", ""); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got)
	}
}

func TestParticipantsExcludesCaller(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", domain.UserData{"name": "alice"})
	s.Join("r1", "conn-b", nil)

	got := s.Participants("r1", "conn-b")
	if len(got) != 1 || got[0].SocketID != "conn-a" {
		t.Fatalf("expected only conn-a, got %v", got)
	}
	if got[0].UserData["name"] != "alice" {
		t.Fatalf("expected profile to round-trip, got %v", got[0].UserData)
	}
}

func TestHistoryCapEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)

	for i := 1; i <= domain.HistoryLimit+1; i++ {
		msg, err := domain.NewChatMessage(nil, "conn-a", fmt.Sprintf("msg-%d", i))
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		s.AppendMessage("r1", msg)
	}

	msgs := s.Messages("r1")
	if len(msgs) != domain.HistoryLimit {
		t.Fatalf("expected %d messages, got %d", domain.HistoryLimit, len(msgs))
	}
	if msgs[0].Text != "msg-2" {
		t.Fatalf("expected oldest surviving message msg-2, got %q", msgs[0].Text)
	}
	if last := msgs[len(msgs)-1].Text; last != fmt.Sprintf("msg-%d", domain.HistoryLimit+1) {
		t.Fatalf("unexpected newest message %q", last)
	}
}

func TestAppendMessageWithoutRoomIsDropped(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	msg, _ := domain.NewChatMessage(nil, "conn-a", "hello")
	if s.AppendMessage("ghost", msg) {
		t.Fatal("append must not create a room")
	}
	if s.Exists("ghost") {
		t.Fatal("append must not create a room")
	}
}

func TestStatusKeyIsOrderIndependent(t *testing.T) {
	t.Parallel()

	if domain.StatusKey("a", "b") != domain.StatusKey("b", "a") {
		t.Fatal("pair key must not depend on argument order")
	}
}

func TestReportStatusUpsertsSingleEntryPerPair(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)
	s.Join("r1", "conn-b", nil)

	s.ReportStatus("conn-a", "conn-b", "connecting")
	s.ReportStatus("conn-b", "conn-a", "connected")

	conns := s.Connections("r1")
	if len(conns) != 1 {
		t.Fatalf("expected a single pair entry, got %d", len(conns))
	}
	if conns[0].Status != "connected" {
		t.Fatalf("expected last report to win, got %q", conns[0].Status)
	}
	if conns[0].Peers[0] != "conn-a" || conns[0].Peers[1] != "conn-b" {
		t.Fatalf("expected the sorted pair [conn-a conn-b], got %v", conns[0].Peers)
	}
}

func TestConnectionsReportsPeerIDsContainingSeparator(t *testing.T) {
	t.Parallel()

	// Production ids are uuids, which contain the key separator.
	a := domain.ConnID("550e8400-e29b-41d4-a716-446655440000")
	b := domain.ConnID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	s := NewRoomStore()
	s.Join("r1", a, nil)
	s.Join("r1", b, nil)
	s.ReportStatus(a, b, "connected")

	conns := s.Connections("r1")
	if len(conns) != 1 {
		t.Fatalf("expected a single pair entry, got %d", len(conns))
	}
	if conns[0].Peers[0] != string(a) || conns[0].Peers[1] != string(b) {
		t.Fatalf("expected peers [%s %s], got %v", a, b, conns[0].Peers)
	}
	if conns[0].ConnectionKey != domain.StatusKey(a, b) {
		t.Fatalf("unexpected key %q", conns[0].ConnectionKey)
	}
}

func TestReportStatusReachesEveryRoomOfReporter(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)
	s.Join("r2", "conn-a", nil)
	s.Join("r3", "conn-x", nil)

	s.ReportStatus("conn-a", "conn-b", "failed")

	if got := len(s.Connections("r1")); got != 1 {
		t.Fatalf("r1: expected 1 entry, got %d", got)
	}
	if got := len(s.Connections("r2")); got != 1 {
		t.Fatalf("r2: expected 1 entry, got %d", got)
	}
	if got := len(s.Connections("r3")); got != 0 {
		t.Fatalf("r3: reporter is not a member, expected 0 entries, got %d", got)
	}
}

func TestLeavePurgesStatusEntriesBySubstring(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)
	s.Join("r1", "conn-b", nil)
	s.Join("r1", "conn-c", nil)

	s.ReportStatus("conn-a", "conn-b", "connected")
	s.ReportStatus("conn-b", "conn-c", "connected")

	s.Leave("r1", "conn-a")

	conns := s.Connections("r1")
	if len(conns) != 1 {
		t.Fatalf("expected only the b/c entry to remain, got %v", conns)
	}
	if conns[0].ConnectionKey != domain.StatusKey("conn-b", "conn-c") {
		t.Fatalf("unexpected surviving key %q", conns[0].ConnectionKey)
	}
}

func TestCreateConflictsOnExistingRoom(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	if !s.Create("r1") {
		t.Fatal("first create must succeed")
	}
	if s.Create("r1") {
		t.Fatal("second create must report conflict")
	}
	s.Ensure("r1") // idempotent, must not panic or reset
	if got := s.RoomCount(); got != 1 {
		t.Fatalf("expected 1 room, got %d", got)
	}
}

func TestListReportsParticipantCounts(t *testing.T) {
	t.Parallel()

	s := NewRoomStore()
	s.Join("r1", "conn-a", nil)
	s.Join("r1", "conn-b", nil)

	list := s.List()
	if len(list) != 1 {
		t.Fatalf("expected one room, got %d", len(list))
	}
	if list[0].RoomID != "r1" || list[0].Participants != 2 {
		t.Fatalf("unexpected listing %+v", list[0])
	}
	if list[0].CreatedAt.IsZero() {
		t.Fatal("createdAt must be stamped")
	}
}
