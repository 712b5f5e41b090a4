package open_conversation

import "github.com/m04kA/SMC-BookingSync/internal/domain"

// ChatRouteResponse контекст, в котором открывается чат
type ChatRouteResponse struct {
	ConversationID string `json:"conversationId"`
	ThreadID       int64  `json:"threadId"`
	BookingID      *int64 `json:"bookingId,omitempty"`
	IsActiveJob    bool   `json:"isActiveJob"`
}

func fromRoute(r domain.ChatRoute) ChatRouteResponse {
	return ChatRouteResponse{
		ConversationID: r.ConversationKey,
		ThreadID:       r.ThreadID,
		BookingID:      r.BookingID,
		IsActiveJob:    r.IsActiveJob,
	}
}
