package app

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/core"
	"github.com/dkeye/beacon/internal/domain"
)

// Relay forwards signaling payloads between peers of a room and keeps
// the room stores in step. It never blocks on delivery: every send is
// fire-and-forget into the transport.
type Relay struct {
	Rooms     *RoomStore
	Health    *HealthStore
	Transport core.Transport
	// DefaultICEServers is served when no health record qualifies.
	DefaultICEServers []webrtc.ICEServer
}

type iceServersEvent struct {
	IceServers []webrtc.ICEServer `json:"iceServers"`
}

type newPeerEvent struct {
	SocketID domain.ConnID   `json:"socketId"`
	UserData domain.UserData `json:"userData,omitempty"`
}

type peerLeftEvent struct {
	SocketID  domain.ConnID `json:"socketId"`
	Graceful  bool          `json:"graceful"`
	Timestamp int64         `json:"timestamp"`
}

type sdpEvent struct {
	SenderID  domain.ConnID   `json:"senderId"`
	SDP       json.RawMessage `json:"sdp"`
	Timestamp int64           `json:"timestamp"`
}

type iceCandidateEvent struct {
	SenderID         domain.ConnID   `json:"senderId"`
	Candidate        json.RawMessage `json:"candidate,omitempty"`
	IsFinalCandidate bool            `json:"isFinalCandidate"`
}

type connectionStatusEvent struct {
	SocketID domain.ConnID `json:"socketId"`
	Status   string        `json:"status"`
}

// guard is the failure boundary around every signaling handler: a
// panic is logged and swallowed, the connection stays up.
func (r *Relay) guard(op string, sid domain.ConnID, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.relay").Str("op", op).Str("sid", string(sid)).Interface("panic", rec).Msg("handler recovered")
		}
	}()
	fn()
}

// Join subscribes the connection to the room, replays history, hands
// the joiner an ICE recommendation and the current member list, and
// announces the joiner to each existing member individually.
func (r *Relay) Join(sid domain.ConnID, roomID domain.RoomID, userData domain.UserData) {
	r.guard("join", sid, func() {
		if roomID == "" {
			log.Warn().Str("module", "app.relay").Str("sid", string(sid)).Msg("join without room id")
			return
		}
		r.Transport.JoinGroup(sid, roomID)
		r.Rooms.Join(roomID, sid, userData)

		if history := r.Rooms.Messages(roomID); len(history) > 0 {
			r.Transport.SendToConn(sid, "chat-history", history)
			log.Info().Str("module", "app.relay").Str("sid", string(sid)).Int("messages", len(history)).Msg("history replayed")
		}

		r.Transport.SendToConn(sid, "ice-servers", iceServersEvent{
			IceServers: r.Health.Recommend(r.DefaultICEServers),
		})

		existing := r.Rooms.Participants(roomID, sid)
		if len(existing) > 0 {
			r.Transport.SendToConn(sid, "existing-participants", existing)
		}
		for _, p := range existing {
			r.Transport.SendToConn(p.SocketID, "new-peer", newPeerEvent{
				SocketID: sid,
				UserData: userData,
			})
		}
		log.Info().Str("module", "app.relay").Str("sid", string(sid)).Str("room", string(roomID)).Int("peers", len(existing)).Msg("joined")
	})
}

// Chat validates, broadcasts and stores a room chat message. Blank
// messages are dropped without a word to the sender.
func (r *Relay) Chat(sid domain.ConnID, roomID domain.RoomID, text string, userData domain.UserData) {
	r.guard("chat-message", sid, func() {
		if roomID == "" {
			log.Warn().Str("module", "app.relay").Str("sid", string(sid)).Msg("chat without room id")
			return
		}
		if len(userData) == 0 {
			// Sender omitted a profile: use the one from join.
			userData = r.Rooms.Profile(roomID, sid)
		}
		msg, err := domain.NewChatMessage(userData, sid, text)
		if err != nil {
			log.Warn().Str("module", "app.relay").Str("sid", string(sid)).Msg("invalid chat message dropped")
			return
		}
		r.Transport.SendToGroup(roomID, "chat-message", msg)
		r.Rooms.AppendMessage(roomID, msg)
	})
}

// ConnectionStatus records the reported link state for the pair in
// every room the reporter belongs to and forwards it to the target.
func (r *Relay) ConnectionStatus(sid, targetID domain.ConnID, status string) {
	r.guard("connection-status", sid, func() {
		if targetID == "" {
			return
		}
		r.Rooms.ReportStatus(sid, targetID, status)
		r.Transport.SendToConn(targetID, "connection-status", connectionStatusEvent{
			SocketID: sid,
			Status:   status,
		})
	})
}

// SDP forwards a session description verbatim to the target, stamped
// with the sender id and a millisecond timestamp for receiver-side
// ordering.
func (r *Relay) SDP(sid, targetID domain.ConnID, sdp json.RawMessage) {
	r.guard("sdp", sid, func() {
		if targetID == "" {
			log.Warn().Str("module", "app.relay").Str("sid", string(sid)).Msg("sdp without target")
			return
		}
		r.Transport.SendToConn(targetID, "sdp", sdpEvent{
			SenderID:  sid,
			SDP:       sdp,
			Timestamp: time.Now().UnixMilli(),
		})
	})
}

// ICECandidate forwards a candidate verbatim. An empty or absent
// candidate marks end-of-candidates per the trickle convention.
func (r *Relay) ICECandidate(sid, targetID domain.ConnID, candidate json.RawMessage) {
	r.guard("ice-candidate", sid, func() {
		if targetID == "" {
			log.Warn().Str("module", "app.relay").Str("sid", string(sid)).Msg("ice candidate without target")
			return
		}
		r.Transport.SendToConn(targetID, "ice-candidate", iceCandidateEvent{
			SenderID:         sid,
			Candidate:        candidate,
			IsFinalCandidate: isFinalCandidate(candidate),
		})
	})
}

// Leave is the graceful departure: teardown plus a peer-left with
// graceful=true to whoever remains.
func (r *Relay) Leave(sid domain.ConnID, roomID domain.RoomID) {
	r.guard("leave", sid, func() {
		if roomID == "" {
			return
		}
		r.Transport.LeaveGroup(sid, roomID)
		r.Rooms.Leave(roomID, sid)
		r.Transport.SendToGroup(roomID, "peer-left", peerLeftEvent{
			SocketID:  sid,
			Graceful:  true,
			Timestamp: time.Now().UnixMilli(),
		})
		log.Info().Str("module", "app.relay").Str("sid", string(sid)).Str("room", string(roomID)).Msg("left room")
	})
}

// Disconnect runs the leave teardown for every room the connection
// belonged to, tagged graceful=false. Driven by the transport's
// connection-loss notification, not a client message.
func (r *Relay) Disconnect(sid domain.ConnID) {
	r.guard("disconnect", sid, func() {
		affected := r.Rooms.LeaveAll(sid)
		for _, roomID := range affected {
			r.Transport.LeaveGroup(sid, roomID)
			r.Transport.SendToGroup(roomID, "peer-left", peerLeftEvent{
				SocketID:  sid,
				Graceful:  false,
				Timestamp: time.Now().UnixMilli(),
			})
		}
		if len(affected) > 0 {
			log.Info().Str("module", "app.relay").Str("sid", string(sid)).Int("rooms", len(affected)).Msg("disconnected from rooms")
		}
	})
}

// isFinalCandidate reports end-of-candidates: a missing payload, or a
// payload whose "candidate" field is absent or empty.
func isFinalCandidate(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	var c struct {
		Candidate string `json:"candidate"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return true
	}
	return c.Candidate == ""
}
