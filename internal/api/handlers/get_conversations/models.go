package get_conversations

import (
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// CounterpartResponse профиль собеседника
type CounterpartResponse struct {
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role,omitempty"`
}

// MessageResponse последнее сообщение разговора
type MessageResponse struct {
	ID        int64  `json:"id"`
	SenderID  int64  `json:"senderId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
	IsRead    bool   `json:"isRead"`
}

// ConversationResponse один разговор списка
type ConversationResponse struct {
	ConversationID        string              `json:"conversationId"`
	ThreadID              int64               `json:"threadId"`
	Counterpart           CounterpartResponse `json:"counterpart"`
	BookingID             *int64              `json:"bookingId,omitempty"`
	LastMessage           *MessageResponse    `json:"lastMessage,omitempty"`
	LastActivityAt        string              `json:"lastActivityAt"`
	UnreadCount           int                 `json:"unreadCount"`
	LinkedActiveBookingID *int64              `json:"linkedActiveBookingId,omitempty"`
	HasActiveJob          bool                `json:"hasActiveJob"`
	IsFavorite            bool                `json:"isFavorite"`
}

// ConversationsResponse список разговоров и суммарный счётчик непрочитанных
type ConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	TotalUnread   int                    `json:"totalUnread"`
}

func fromConversation(c domain.Conversation) ConversationResponse {
	out := ConversationResponse{
		ConversationID: c.Key,
		ThreadID:       c.CanonicalThreadID,
		Counterpart: CounterpartResponse{
			UserID:    c.Counterpart.UserID,
			Name:      c.Counterpart.Name,
			AvatarURL: c.Counterpart.AvatarURL,
			Role:      c.Counterpart.Role,
		},
		BookingID:             c.BookingID,
		LastActivityAt:        c.LastActivityAt.Format(time.RFC3339),
		UnreadCount:           c.UnreadCount,
		LinkedActiveBookingID: c.LinkedActiveBookingID,
		HasActiveJob:          c.HasActiveJob,
		IsFavorite:            c.IsFavorite,
	}
	if m := c.LastMessage; m != nil {
		out.LastMessage = &MessageResponse{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
			IsRead:    m.IsRead,
		}
	}
	return out
}

