package domain

import (
	"errors"
	"strings"
	"time"
)

// HistoryLimit caps a room's message log; the oldest entry is dropped
// on overflow, strict FIFO.
const HistoryLimit = 50

var ErrMessageEmpty = errors.New("message empty")

// ChatMessage is immutable once created. Timestamp is ISO-8601 so the
// payload round-trips unchanged through clients of any runtime.
type ChatMessage struct {
	Sender    UserData `json:"sender"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp"`
}

// NewChatMessage trims the text and rejects blank messages. When the
// sender profile is absent it falls back to {id: <connection id>}.
func NewChatMessage(sender UserData, from ConnID, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrMessageEmpty
	}
	if sender == nil {
		sender = UserData{"id": string(from)}
	}
	return ChatMessage{
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
