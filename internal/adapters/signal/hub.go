package signal

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/core"
	"github.com/dkeye/beacon/internal/domain"
)

// envelope is the wire frame: an event name plus its payload.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func marshalEnvelope(event string, payload any) (core.Frame, error) {
	b, err := json.Marshal(envelope{Type: event, Data: payload})
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

// Hub is the in-process pub/sub substrate: it owns the live websocket
// connections and their group subscriptions, and implements
// core.Transport for the relay. Sends are best-effort; a slow consumer
// gets its frame dropped by TrySend, never a stalled hub.
type Hub struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]core.SignalConnection
	groups map[domain.RoomID]map[domain.ConnID]struct{}
	byConn map[domain.ConnID]map[domain.RoomID]struct{}
}

var _ core.Transport = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[domain.ConnID]core.SignalConnection),
		groups: make(map[domain.RoomID]map[domain.ConnID]struct{}),
		byConn: make(map[domain.ConnID]map[domain.RoomID]struct{}),
	}
}

func (h *Hub) Register(id domain.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = conn
	log.Info().Str("module", "signal.hub").Str("sid", string(id)).Msg("connection registered")
}

// Unregister drops the connection and all its group subscriptions.
func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	for group := range h.byConn[id] {
		delete(h.groups[group], id)
		if len(h.groups[group]) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.byConn, id)
	log.Info().Str("module", "signal.hub").Str("sid", string(id)).Msg("connection unregistered")
}

func (h *Hub) JoinGroup(id domain.ConnID, group domain.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[domain.ConnID]struct{})
	}
	h.groups[group][id] = struct{}{}
	if _, ok := h.byConn[id]; !ok {
		h.byConn[id] = make(map[domain.RoomID]struct{})
	}
	h.byConn[id][group] = struct{}{}
}

func (h *Hub) LeaveGroup(id domain.ConnID, group domain.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	if groups, ok := h.byConn[id]; ok {
		delete(groups, group)
	}
}

func (h *Hub) SendToConn(id domain.ConnID, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", event).Msg("marshal")
		return
	}
	h.mu.RLock()
	conn, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		// Unknown target is a harmless no-op.
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal.hub").Str("sid", string(id)).Str("event", event).Msg("send dropped")
	}
}

func (h *Hub) SendToGroup(group domain.RoomID, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", event).Msg("marshal")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[group] {
		conn, ok := h.conns[id]
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "signal.hub").Str("sid", string(id)).Str("event", event).Msg("send dropped")
		}
	}
}

func (h *Hub) GroupMembers(group domain.RoomID) []domain.ConnID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		out = append(out, id)
	}
	return out
}

func (h *Hub) GroupsOf(id domain.ConnID) []domain.RoomID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(h.byConn[id]))
	for group := range h.byConn[id] {
		out = append(out, group)
	}
	return out
}

func (h *Hub) Conns() []domain.ConnID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(h.conns))
	for id := range h.conns {
		out = append(out, id)
	}
	return out
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
