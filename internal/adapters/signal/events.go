package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/domain"
)

// Inbound payloads mirror the client protocol field for field. Parsing
// failures are logged and dropped; nothing surfaces to the peer.

func (ctl *Controller) handleJoin(sid domain.ConnID, data []byte) {
	var p struct {
		RoomID   string          `json:"roomId"`
		UserData domain.UserData `json:"userData"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join payload")
		return
	}
	ctl.Relay.Join(sid, domain.RoomID(p.RoomID), p.UserData)
}

func (ctl *Controller) handleChatMessage(sid domain.ConnID, data []byte) {
	var p struct {
		RoomID   string          `json:"roomId"`
		Message  string          `json:"message"`
		UserData domain.UserData `json:"userData"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad chat payload")
		return
	}
	ctl.Relay.Chat(sid, domain.RoomID(p.RoomID), p.Message, p.UserData)
}

func (ctl *Controller) handleConnectionStatus(sid domain.ConnID, data []byte) {
	var p struct {
		TargetID string `json:"targetId"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad connection-status payload")
		return
	}
	ctl.Relay.ConnectionStatus(sid, domain.ConnID(p.TargetID), p.Status)
}

func (ctl *Controller) handleSDP(sid domain.ConnID, data []byte) {
	var p struct {
		TargetID string          `json:"targetId"`
		SDP      json.RawMessage `json:"sdp"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad sdp payload")
		return
	}
	ctl.Relay.SDP(sid, domain.ConnID(p.TargetID), p.SDP)
}

func (ctl *Controller) handleICECandidate(sid domain.ConnID, data []byte) {
	var p struct {
		TargetID  string          `json:"targetId"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad candidate payload")
		return
	}
	ctl.Relay.ICECandidate(sid, domain.ConnID(p.TargetID), p.Candidate)
}

func (ctl *Controller) handleLeave(sid domain.ConnID, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad leave payload")
		return
	}
	ctl.Relay.Leave(sid, domain.RoomID(p.RoomID))
}
