package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// MilestoneResponse шаг прогресса бронирования
type MilestoneResponse struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	At          *string `json:"at,omitempty"`
}

// BookingViewResponse производное представление бронирования
type BookingViewResponse struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	CoarseStatus       string              `json:"coarseStatus"`
	Progress           int                 `json:"progress"`
	Milestones         []MilestoneResponse `json:"milestones"`
	ETALabel           string              `json:"etaLabel,omitempty"`
	Countdown          *string             `json:"countdown,omitempty"`
	CustomerID         int64               `json:"customerId"`
	ProviderID         int64               `json:"providerId"`
	AddressID          int64               `json:"addressId"`
	ServiceName        string              `json:"serviceName"`
	ScheduledAt        string              `json:"scheduledAt"`
	DurationMinutes    int                 `json:"durationMinutes"`
	Total              decimal.Decimal     `json:"total"`
	CancellationReason *string             `json:"cancellationReason,omitempty"`
	RefundAmount       *decimal.Decimal    `json:"refundAmount,omitempty"`
}

// FromBookingView конвертирует представление в HTTP модель
func FromBookingView(v domain.BookingView) BookingViewResponse {
	ms := make([]MilestoneResponse, 0, len(v.Milestones))
	for _, m := range v.Milestones {
		ms = append(ms, MilestoneResponse{
			Title:       m.Title,
			Description: m.Description,
			Completed:   m.Completed,
			At:          FormatTimePtr(m.At),
		})
	}

	return BookingViewResponse{
		ID:                 v.BookingID,
		Status:             string(v.RawStatus),
		CoarseStatus:       string(v.CoarseStatus),
		Progress:           v.Progress,
		Milestones:         ms,
		ETALabel:           v.ETALabel,
		Countdown:          v.Countdown,
		CustomerID:         v.Booking.CustomerID,
		ProviderID:         v.Booking.ProviderID,
		AddressID:          v.Booking.AddressID,
		ServiceName:        v.Booking.ServiceName,
		ScheduledAt:        v.Booking.ScheduledAt.Format(time.RFC3339),
		DurationMinutes:    v.Booking.DurationMinutes,
		Total:              v.Booking.Total,
		CancellationReason: v.Booking.CancellationReason,
		RefundAmount:       v.Booking.RefundAmount,
	}
}

// FormatTimePtr RFC3339 или nil
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
