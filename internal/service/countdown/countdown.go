package countdown

import (
	"fmt"
	"math"
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

const scheduledFormat = "Mon, Jan 2 at 15:04"

// Label возвращает "starts in N minutes", если до начала осталось не больше
// lookAhead. Для прошедшего или слишком далёкого времени возвращает nil.
// Чистая функция: безопасно вызывать на каждом тике.
func Label(scheduledAt, now time.Time, lookAhead time.Duration) *string {
	diff := scheduledAt.Sub(now)
	if diff < 0 || diff > lookAhead {
		return nil
	}
	minutes := int(math.Ceil(diff.Minutes()))
	label := fmt.Sprintf("starts in %d minutes", minutes)
	return &label
}

// ETA человекочитаемая подпись для карточки бронирования.
// Отсчёт показывается только для upcoming.
func ETA(b *domain.Booking, coarse domain.CoarseStatus, now time.Time, lookAhead time.Duration) (string, *string) {
	switch coarse {
	case domain.CoarseUpcoming:
		if c := Label(b.ScheduledAt, now, lookAhead); c != nil {
			return *c, c
		}
		return b.ScheduledAt.Format(scheduledFormat), nil
	case domain.CoarseActive:
		remaining := b.EndsAt().Sub(now)
		if remaining <= 0 {
			return "finishing up", nil
		}
		return fmt.Sprintf("about %d minutes remaining", int(math.Ceil(remaining.Minutes()))), nil
	default:
		return "", nil
	}
}
