package signal

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/beacon/internal/core"
	"github.com/dkeye/beacon/internal/domain"
)

func newTestConn(buf int) *WsSignalConn {
	return &WsSignalConn{send: make(chan core.Frame, buf)}
}

func recvFrame(t *testing.T, c *WsSignalConn) map[string]any {
	t.Helper()
	select {
	case frame := <-c.send:
		var out map[string]any
		if err := json.Unmarshal(frame, &out); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return out
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func TestSendToConnWrapsEnvelope(t *testing.T) {
	t.Parallel()

	h := NewHub()
	conn := newTestConn(1)
	h.Register("a", conn)

	h.SendToConn("a", "connected", map[string]string{"socketId": "a"})

	frame := recvFrame(t, conn)
	if frame["type"] != "connected" {
		t.Fatalf("expected type connected, got %v", frame["type"])
	}
	data, ok := frame["data"].(map[string]any)
	if !ok || data["socketId"] != "a" {
		t.Fatalf("unexpected data %v", frame["data"])
	}
}

func TestSendToConnUnknownTargetIsNoOp(t *testing.T) {
	t.Parallel()

	h := NewHub()
	h.SendToConn("ghost", "sdp", nil) // must not panic
}

func TestSendToGroupReachesOnlyMembers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	a, b, c := newTestConn(1), newTestConn(1), newTestConn(1)
	h.Register("a", a)
	h.Register("b", b)
	h.Register("c", c)
	h.JoinGroup("a", "r1")
	h.JoinGroup("b", "r1")
	h.JoinGroup("c", "r2")

	h.SendToGroup("r1", "chat-message", map[string]string{"text": "hi"})

	if frame := recvFrame(t, a); frame["type"] != "chat-message" {
		t.Fatalf("a: unexpected frame %v", frame)
	}
	if frame := recvFrame(t, b); frame["type"] != "chat-message" {
		t.Fatalf("b: unexpected frame %v", frame)
	}
	select {
	case f := <-c.send:
		t.Fatalf("c is not in r1 and must not receive %s", f)
	default:
	}
}

func TestUnregisterDropsGroupMemberships(t *testing.T) {
	t.Parallel()

	h := NewHub()
	h.Register("a", newTestConn(1))
	h.JoinGroup("a", "r1")
	h.JoinGroup("a", "r2")

	h.Unregister("a")

	if got := h.ConnCount(); got != 0 {
		t.Fatalf("expected no connections, got %d", got)
	}
	if got := h.GroupMembers("r1"); len(got) != 0 {
		t.Fatalf("expected empty group, got %v", got)
	}
	if got := h.GroupsOf("a"); len(got) != 0 {
		t.Fatalf("expected no groups, got %v", got)
	}
}

func TestTrySendDropsOnBackpressure(t *testing.T) {
	t.Parallel()

	conn := newTestConn(1)
	if err := conn.TrySend(core.Frame(`{}`)); err != nil {
		t.Fatalf("first send must fit the buffer: %v", err)
	}
	if err := conn.TrySend(core.Frame(`{}`)); err != ErrBackpressure {
		t.Fatalf("expected ErrBackpressure, got %v", err)
	}
}

func TestTrySendAfterClose(t *testing.T) {
	t.Parallel()

	h := NewHub()
	conn := newTestConn(1)
	h.Register("a", conn)

	conn.mu.Lock()
	conn.closed = true
	conn.mu.Unlock()

	if err := conn.TrySend(core.Frame(`{}`)); err == nil {
		t.Fatal("send on a closed connection must fail")
	}
}

func TestGroupsOfSnapshot(t *testing.T) {
	t.Parallel()

	h := NewHub()
	h.Register("a", newTestConn(1))
	h.JoinGroup("a", "r1")
	h.LeaveGroup("a", "r1")
	h.JoinGroup("a", "r2")

	got := h.GroupsOf("a")
	if len(got) != 1 || got[0] != domain.RoomID("r2") {
		t.Fatalf("expected [r2], got %v", got)
	}
}
