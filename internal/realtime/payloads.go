package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// BookingPayload тело события бронирования
type BookingPayload struct {
	ID              int64            `json:"id"`
	CustomerID      int64            `json:"customer_id"`
	ProviderID      int64            `json:"provider_id"`
	AddressID       int64            `json:"address_id"`
	Status          string           `json:"status"`
	ScheduledAt     time.Time        `json:"scheduled_at"`
	DurationMinutes int              `json:"duration_minutes"`
	Total           decimal.Decimal  `json:"total"`
	ServiceName     string           `json:"service_name"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	RefundAmount    *decimal.Decimal `json:"refund_amount,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ThreadPayload тело события треда
type ThreadPayload struct {
	ID              int64            `json:"id"`
	ConversationKey string           `json:"conversation_key,omitempty"`
	ParticipantA    int64            `json:"participant_a"`
	ParticipantB    int64            `json:"participant_b"`
	BookingID       *int64           `json:"booking_id,omitempty"`
	LastActivityAt  time.Time        `json:"last_activity_at"`
	Messages        []MessagePayload `json:"messages,omitempty"`
}

// MessagePayload тело события сообщения
type MessagePayload struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"thread_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

func decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: decode payload: %v", ErrMalformedEvent, err)
	}
	return t, nil
}

// DecodeBooking разбирает и проверяет событие бронирования
func DecodeBooking(b []byte) (*domain.Booking, error) {
	p, err := decode[BookingPayload](b)
	if err != nil {
		return nil, err
	}
	if p.ID <= 0 || p.Status == "" {
		return nil, fmt.Errorf("%w: booking payload without id or status", ErrMalformedEvent)
	}
	return &domain.Booking{
		ID:              p.ID,
		CustomerID:      p.CustomerID,
		ProviderID:      p.ProviderID,
		AddressID:       p.AddressID,
		Status:          domain.BookingStatus(p.Status),
		ScheduledAt:     p.ScheduledAt,
		DurationMinutes: p.DurationMinutes,
		Total:           p.Total,
		ServiceName:     p.ServiceName,
		CancelledAt:     p.CancelledAt,
		RefundAmount:    p.RefundAmount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

// EncodeBooking сериализует бронирование для публикации
func EncodeBooking(b *domain.Booking) ([]byte, error) {
	return json.Marshal(BookingPayload{
		ID:              b.ID,
		CustomerID:      b.CustomerID,
		ProviderID:      b.ProviderID,
		AddressID:       b.AddressID,
		Status:          string(b.Status),
		ScheduledAt:     b.ScheduledAt,
		DurationMinutes: b.DurationMinutes,
		Total:           b.Total,
		ServiceName:     b.ServiceName,
		CancelledAt:     b.CancelledAt,
		RefundAmount:    b.RefundAmount,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	})
}

// DecodeThread разбирает и проверяет событие треда
func DecodeThread(b []byte) (*domain.ChatThreadRecord, error) {
	p, err := decode[ThreadPayload](b)
	if err != nil {
		return nil, err
	}
	if p.ID <= 0 || p.ParticipantA <= 0 || p.ParticipantB <= 0 || p.ParticipantA == p.ParticipantB {
		return nil, fmt.Errorf("%w: thread payload needs id and two distinct participants", ErrMalformedEvent)
	}

	rec := &domain.ChatThreadRecord{
		ID:              p.ID,
		ConversationKey: p.ConversationKey,
		ParticipantA:    p.ParticipantA,
		ParticipantB:    p.ParticipantB,
		BookingID:       p.BookingID,
		LastActivityAt:  p.LastActivityAt,
		Messages:        make([]domain.Message, 0, len(p.Messages)),
	}
	for _, m := range p.Messages {
		msg := m.toDomain()
		msg.ThreadID = p.ID
		rec.Messages = append(rec.Messages, msg)
	}
	return rec, nil
}

// DecodeMessage разбирает и проверяет событие сообщения
func DecodeMessage(b []byte) (*domain.Message, error) {
	p, err := decode[MessagePayload](b)
	if err != nil {
		return nil, err
	}
	if p.ID <= 0 || p.ThreadID <= 0 || p.SenderID <= 0 {
		return nil, fmt.Errorf("%w: message payload without id, thread or sender", ErrMalformedEvent)
	}
	msg := p.toDomain()
	return &msg, nil
}

func (p MessagePayload) toDomain() domain.Message {
	return domain.Message{
		ID:        p.ID,
		ThreadID:  p.ThreadID,
		SenderID:  p.SenderID,
		Body:      p.Body,
		CreatedAt: p.CreatedAt,
		IsRead:    p.IsRead,
	}
}
