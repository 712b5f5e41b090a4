package status

import (
	"time"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
)

// Classification результат классификации сырого статуса
type Classification struct {
	Coarse     domain.CoarseStatus
	Progress   int
	Milestones []domain.Milestone
}

// milestoneStep шаг таймлайна и статус, начиная с которого он считается пройденным
type milestoneStep struct {
	title       string
	description string
	reachedAt   domain.BookingStatus
}

var steps = []milestoneStep{
	{"Booking confirmed", "The provider accepted your booking", domain.StatusConfirmed},
	{"Provider en route", "Your provider is on the way", domain.StatusEnRoute},
	{"Service started", "Your provider has arrived and started", domain.StatusArrived},
	{"Service complete", "The job is done", domain.StatusCompleted},
}

const (
	unknownTitle       = "Status unknown"
	unknownDescription = "We could not determine the booking status"
	cancelledTitle     = "Booking cancelled"
	cancelledDesc      = "This booking was cancelled"
)

// Classify сопоставляет сырой статус с coarse-статусом, прогрессом и таймлайном.
// Никогда не возвращает ошибку: неизвестный статус даёт upcoming/0 и один
// milestone "Status unknown".
func Classify(s domain.BookingStatus) Classification {
	switch s {
	case domain.StatusPending, domain.StatusConfirmed:
		return Classification{Coarse: domain.CoarseUpcoming, Progress: 0, Milestones: milestonesFor(s)}
	case domain.StatusEnRoute:
		return Classification{Coarse: domain.CoarseActive, Progress: 25, Milestones: milestonesFor(s)}
	case domain.StatusArrived:
		return Classification{Coarse: domain.CoarseActive, Progress: 50, Milestones: milestonesFor(s)}
	case domain.StatusInProgress:
		return Classification{Coarse: domain.CoarseActive, Progress: 75, Milestones: milestonesFor(s)}
	case domain.StatusCompleted:
		return Classification{Coarse: domain.CoarseCompleted, Progress: 100, Milestones: milestonesFor(s)}
	case domain.StatusCancelled:
		ms := milestonesFor(s)
		ms = append(ms, domain.Milestone{Title: cancelledTitle, Description: cancelledDesc, Completed: true})
		return Classification{Coarse: domain.CoarseCompleted, Progress: 100, Milestones: ms}
	default:
		return Classification{
			Coarse:   domain.CoarseUpcoming,
			Progress: 0,
			Milestones: []domain.Milestone{
				{Title: unknownTitle, Description: unknownDescription},
			},
		}
	}
}

// milestonesFor фиксированная последовательность шагов с отметкой пройденных.
// Для cancelled ни один шаг не отмечается: пройденные ранее сохраняет Merge.
func milestonesFor(s domain.BookingStatus) []domain.Milestone {
	rank, _ := s.Rank()
	out := make([]domain.Milestone, len(steps))
	for i, st := range steps {
		stepRank, _ := st.reachedAt.Rank()
		out[i] = domain.Milestone{
			Title:       st.title,
			Description: st.description,
			Completed:   s != domain.StatusCancelled && rank >= stepRank,
		}
	}
	return out
}

// Stamp проставляет время пройденным шагам.
// Первый шаг получает время создания записи, шаг текущего статуса - время
// последнего обновления. Остальным время не известно.
func Stamp(ms []domain.Milestone, s domain.BookingStatus, createdAt, updatedAt time.Time) []domain.Milestone {
	out := make([]domain.Milestone, len(ms))
	copy(out, ms)

	current := -1
	for i, st := range steps {
		if st.reachedAt == s {
			current = i
		}
	}

	for i := range out {
		if !out[i].Completed || out[i].At != nil {
			continue
		}
		switch {
		case i == current && !updatedAt.IsZero():
			t := updatedAt
			out[i].At = &t
		case i == 0 && !createdAt.IsZero():
			t := createdAt
			out[i].At = &t
		}
	}
	return out
}

// Merge накладывает новый таймлайн на предыдущий так, чтобы пройденные шаги
// не откатывались: completed и время сохраняются из prev.
func Merge(prev, next []domain.Milestone) []domain.Milestone {
	out := make([]domain.Milestone, len(next))
	copy(out, next)

	byTitle := make(map[string]domain.Milestone, len(prev))
	for _, m := range prev {
		byTitle[m.Title] = m
	}

	for i := range out {
		old, ok := byTitle[out[i].Title]
		if !ok {
			continue
		}
		if old.Completed {
			out[i].Completed = true
		}
		if out[i].At == nil && old.At != nil {
			t := *old.At
			out[i].At = &t
		}
	}
	return out
}
