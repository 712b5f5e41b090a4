package conversations

import "github.com/m04kA/SMC-BookingSync/internal/domain"

// Link помечает разговоры, у собеседника которых есть бронирование в работе.
// Если таких бронирований несколько, берётся самое раннее по времени начала.
// Входной срез не изменяется.
func Link(convs []domain.Conversation, bookings []domain.Booking) []domain.Conversation {
	active := make(map[int64]domain.Booking)
	for _, b := range bookings {
		if !b.IsInFlight() {
			continue
		}
		for _, party := range []int64{b.ProviderID, b.CustomerID} {
			cur, ok := active[party]
			if !ok || b.ScheduledAt.Before(cur.ScheduledAt) ||
				(b.ScheduledAt.Equal(cur.ScheduledAt) && b.ID < cur.ID) {
				active[party] = b
			}
		}
	}

	out := make([]domain.Conversation, len(convs))
	copy(out, convs)
	for i := range out {
		out[i].LinkedActiveBookingID = nil
		out[i].HasActiveJob = false
		if b, ok := active[out[i].CounterpartID]; ok {
			id := b.ID
			out[i].LinkedActiveBookingID = &id
			out[i].HasActiveJob = true
		}
	}
	return out
}

// Route куда открывать чат: активное бронирование важнее исходной ссылки треда
func Route(conv domain.Conversation) domain.ChatRoute {
	route := domain.ChatRoute{
		ConversationKey: conv.Key,
		ThreadID:        conv.CanonicalThreadID,
	}
	switch {
	case conv.LinkedActiveBookingID != nil:
		id := *conv.LinkedActiveBookingID
		route.BookingID = &id
		route.IsActiveJob = true
	case conv.BookingID != nil:
		id := *conv.BookingID
		route.BookingID = &id
	}
	return route
}
