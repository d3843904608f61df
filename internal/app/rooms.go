package app

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/domain"
)

// RoomInfo is a read-only listing view for APIs.
type RoomInfo struct {
	RoomID       domain.RoomID `json:"roomId"`
	Participants int           `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// ParticipantInfo is the wire view of a room member (no timestamps).
type ParticipantInfo struct {
	SocketID domain.ConnID   `json:"socketId"`
	UserData domain.UserData `json:"userData,omitempty"`
}

// ConnectionInfo is the wire view of a tracked peer-pair link state.
type ConnectionInfo struct {
	ConnectionKey string    `json:"connectionKey"`
	Peers         []string  `json:"peers"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type roomState struct {
	room         *domain.Room
	participants map[domain.ConnID]*domain.Participant
	messages     []domain.ChatMessage
	status       map[string]domain.ConnectionStatus
}

func newRoomState(id domain.RoomID) *roomState {
	return &roomState{
		room:         &domain.Room{ID: id, CreatedAt: time.Now()},
		participants: make(map[domain.ConnID]*domain.Participant),
		status:       make(map[string]domain.ConnectionStatus),
	}
}

// RoomStore owns every room of the process: existence, membership,
// message history and peer-pair connection status. One instance per
// server, injected into handlers. A room with zero participants is
// deleted the moment it empties; operations on rooms that do not exist
// are silent no-ops.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[domain.RoomID]*roomState)}
}

// Ensure creates the room if absent. Idempotent.
func (s *RoomStore) Ensure(id domain.RoomID) {
	s.mu.RLock()
	_, ok := s.rooms[id]
	s.mu.RUnlock()
	if ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok = s.rooms[id]; ok {
		return
	}
	s.rooms[id] = newRoomState(id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
}

// Create makes a new empty room; false when the id is already taken.
func (s *RoomStore) Create(id domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		return false
	}
	s.rooms[id] = newRoomState(id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return true
}

func (s *RoomStore) Exists(id domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok
}

// Delete drops the room with everything it holds; false if absent.
func (s *RoomStore) Delete(id domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return false
	}
	delete(s.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted")
	return true
}

func (s *RoomStore) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, st := range s.rooms {
		out = append(out, RoomInfo{
			RoomID:       id,
			Participants: len(st.participants),
			CreatedAt:    st.room.CreatedAt,
		})
	}
	return out
}

func (s *RoomStore) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Join adds (or overwrites) a participant, auto-creating the room.
func (s *RoomStore) Join(roomID domain.RoomID, id domain.ConnID, userData domain.UserData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	if !ok {
		st = newRoomState(roomID)
		s.rooms[roomID] = st
	}
	st.participants[id] = domain.NewParticipant(id, userData)
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("sid", string(id)).Msg("participant joined")
}

// Leave removes the participant and its status entries, deleting the
// room when it empties. False when room or participant was absent.
func (s *RoomStore) Leave(roomID domain.RoomID, id domain.ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := st.participants[id]; !ok {
		return false
	}
	delete(st.participants, id)
	forgetStatus(st, id)
	if len(st.participants) == 0 {
		delete(s.rooms, roomID)
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("empty room deleted")
	}
	return true
}

// LeaveAll removes the connection from every room it belongs to and
// returns the affected room ids. Used on transport disconnect.
func (s *RoomStore) LeaveAll(id domain.ConnID) []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected []domain.RoomID
	for roomID, st := range s.rooms {
		if _, ok := st.participants[id]; !ok {
			continue
		}
		delete(st.participants, id)
		forgetStatus(st, id)
		affected = append(affected, roomID)
		if len(st.participants) == 0 {
			delete(s.rooms, roomID)
			log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("empty room deleted")
		}
	}
	return affected
}

// Participants snapshots the room's members, excluding the caller.
func (s *RoomStore) Participants(roomID domain.RoomID, except domain.ConnID) []ParticipantInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]ParticipantInfo, 0, len(st.participants))
	for id, p := range st.participants {
		if id == except {
			continue
		}
		out = append(out, ParticipantInfo{SocketID: id, UserData: p.UserData})
	}
	return out
}

// Profile returns the member's join-time userData, nil when the room
// or the member is unknown.
func (s *RoomStore) Profile(roomID domain.RoomID, id domain.ConnID) domain.UserData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.rooms[roomID]; ok {
		if p, ok := st.participants[id]; ok {
			return p.UserData
		}
	}
	return nil
}

func (s *RoomStore) ParticipantCount(roomID domain.RoomID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.rooms[roomID]; ok {
		return len(st.participants)
	}
	return 0
}

// AppendMessage pushes onto the room's log, evicting the oldest entry
// past HistoryLimit. No-op when the room does not exist.
func (s *RoomStore) AppendMessage(roomID domain.RoomID, msg domain.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	st.messages = append(st.messages, msg)
	if len(st.messages) > domain.HistoryLimit {
		st.messages = st.messages[1:]
	}
	return true
}

// Messages returns a copy of the room's log, oldest first.
func (s *RoomStore) Messages(roomID domain.RoomID) []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.rooms[roomID]
	if !ok || len(st.messages) == 0 {
		return nil
	}
	out := make([]domain.ChatMessage, len(st.messages))
	copy(out, st.messages)
	return out
}

// ReportStatus upserts the pair's entry in every room the reporter is
// currently a member of. A connection id is unique and typically lives
// in one active call room, so the fan-out is harmless.
func (s *RoomStore) ReportStatus(from, target domain.ConnID, status string) {
	a, b := domain.SortedPair(from, target)
	key := domain.StatusKey(from, target)
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, st := range s.rooms {
		if _, ok := st.participants[from]; !ok {
			continue
		}
		st.status[key] = domain.ConnectionStatus{Peers: [2]domain.ConnID{a, b}, Status: status, UpdatedAt: now}
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("key", key).Str("status", status).Msg("connection status updated")
	}
}

// Connections lists the room's tracked peer-pair states.
func (s *RoomStore) Connections(roomID domain.RoomID) []ConnectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]ConnectionInfo, 0, len(st.status))
	for key, cs := range st.status {
		out = append(out, ConnectionInfo{
			ConnectionKey: key,
			Peers:         []string{string(cs.Peers[0]), string(cs.Peers[1])},
			Status:        cs.Status,
			UpdatedAt:     cs.UpdatedAt,
		})
	}
	return out
}

// RoomDiag is the per-room block of the diagnostics endpoint.
type RoomDiag struct {
	RoomID            domain.RoomID `json:"roomId"`
	CreatedAt         time.Time     `json:"createdAt"`
	MessageCount      int           `json:"messageCount"`
	ParticipantsCount int           `json:"participantsCount"`
	ConnectionsCount  int           `json:"connectionsCount"`
}

func (s *RoomStore) Diagnostics() []RoomDiag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomDiag, 0, len(s.rooms))
	for id, st := range s.rooms {
		out = append(out, RoomDiag{
			RoomID:            id,
			CreatedAt:         st.room.CreatedAt,
			MessageCount:      len(st.messages),
			ParticipantsCount: len(st.participants),
			ConnectionsCount:  len(st.status),
		})
	}
	return out
}

// forgetStatus purges every entry whose key contains the id.
// Substring match on the composite key: an id that is a substring of
// another id can purge an unrelated entry. See DESIGN.md.
func forgetStatus(st *roomState, id domain.ConnID) {
	for key := range st.status {
		if strings.Contains(key, string(id)) {
			delete(st.status, key)
		}
	}
}
