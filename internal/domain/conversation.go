package domain

import "time"

// Profile counterpart snapshot from the user directory
type Profile struct {
	UserID    int64
	Name      string
	AvatarURL string
	Role      string
}

// UnknownProfile placeholder used when the directory has no data
func UnknownProfile(userID int64) Profile {
	return Profile{UserID: userID, Name: "Unknown user"}
}

// Conversation deduplicated UI-facing aggregate, one per conversation key
type Conversation struct {
	Key               string // conversationId in the API
	CanonicalThreadID int64
	CounterpartID     int64
	Counterpart       Profile
	BookingID         *int64 // booking reference of the canonical thread

	LastMessage    *Message
	LastMessageAt  *time.Time
	LastActivityAt time.Time
	UnreadCount    int

	LinkedActiveBookingID *int64
	HasActiveJob          bool

	IsFavorite bool
}

// ChatRoute booking context a chat should open in
type ChatRoute struct {
	ConversationKey string
	ThreadID        int64
	BookingID       *int64
	IsActiveJob     bool
}
