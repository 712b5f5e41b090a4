package conversations

import "github.com/m04kA/SMC-BookingSync/internal/domain"

// UnreadCount число непрочитанных сообщений от собеседника в треде
func UnreadCount(rec domain.ChatThreadRecord, currentUserID int64) int {
	n := 0
	for _, m := range rec.Messages {
		if m.SenderID != currentUserID && !m.IsRead {
			n++
		}
	}
	return n
}

// UnreadMessageIDs ID непрочитанных сообщений от собеседника
func UnreadMessageIDs(rec domain.ChatThreadRecord, currentUserID int64) []int64 {
	ids := make([]int64, 0)
	for _, m := range rec.Messages {
		if m.SenderID != currentUserID && !m.IsRead {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// TotalUnread сумма непрочитанных по всем разговорам
func TotalUnread(convs []domain.Conversation) int {
	total := 0
	for _, c := range convs {
		total += c.UnreadCount
	}
	return total
}
