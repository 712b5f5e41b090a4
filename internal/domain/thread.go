package domain

import (
	"fmt"
	"time"
)

// Message single chat message inside a thread
type Message struct {
	ID        int64
	ThreadID  int64
	SenderID  int64
	Body      string
	CreatedAt time.Time
	IsRead    bool
}

// ChatThreadRecord raw persisted thread between exactly two participants
type ChatThreadRecord struct {
	ID              int64
	ConversationKey string // может быть пустым у старых записей
	ParticipantA    int64
	ParticipantB    int64
	BookingID       *int64
	LastActivityAt  time.Time
	Messages        []Message
}

// ConversationKeyFor order-independent key of a participant pair
func ConversationKeyFor(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// Key returns the explicit conversation key or derives it from participants
func (t *ChatThreadRecord) Key() string {
	if t.ConversationKey != "" {
		return t.ConversationKey
	}
	return ConversationKeyFor(t.ParticipantA, t.ParticipantB)
}

// Counterpart returns the participant that is not the given user
func (t *ChatThreadRecord) Counterpart(userID int64) int64 {
	if t.ParticipantA == userID {
		return t.ParticipantB
	}
	return t.ParticipantA
}

// HasParticipant returns true if the user is one of the two participants
func (t *ChatThreadRecord) HasParticipant(userID int64) bool {
	return t.ParticipantA == userID || t.ParticipantB == userID
}

// Clone deep copy of the record
func (t ChatThreadRecord) Clone() ChatThreadRecord {
	out := t
	if t.BookingID != nil {
		id := *t.BookingID
		out.BookingID = &id
	}
	out.Messages = make([]Message, len(t.Messages))
	copy(out.Messages, t.Messages)
	return out
}
