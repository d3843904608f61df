package domain

import "time"

// ConnID is the transport-assigned id of a live connection, opaque here.
type ConnID string

// UserData is the client-supplied profile blob (name plus arbitrary
// fields). It is relayed verbatim, never interpreted.
type UserData map[string]any

type Participant struct {
	ID       ConnID   `json:"id"`
	UserData UserData `json:"userData,omitempty"`
	JoinedAt time.Time
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(id ConnID, userData UserData) *Participant {
	return &Participant{ID: id, UserData: userData, JoinedAt: time.Now()}
}
