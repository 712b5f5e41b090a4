package cancel_booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/internal/service/status"
)

// ComputeQuote считает право на возврат: полный возврат, если до начала
// осталось не меньше окна возврата, иначе ноль
func ComputeQuote(b *domain.Booking, now time.Time, refundWindow time.Duration) Quote {
	until := b.ScheduledAt.Sub(now)
	eligible := until >= refundWindow

	refund := decimal.Zero
	if eligible {
		refund = b.Total
	}

	return Quote{
		BookingID:      b.ID,
		Cancellable:    status.Classify(b.Status).Coarse == domain.CoarseUpcoming,
		Eligible:       eligible,
		RefundAmount:   refund,
		Total:          b.Total,
		TimeUntilStart: until,
	}
}

// roleOf роль пользователя в бронировании
func roleOf(b *domain.Booking, userID int64) (domain.ActorRole, bool) {
	switch userID {
	case b.CustomerID:
		return domain.RoleCustomer, true
	case b.ProviderID:
		return domain.RoleProvider, true
	default:
		return "", false
	}
}
