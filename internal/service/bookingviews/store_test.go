package bookingviews

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	"github.com/m04kA/SMC-BookingSync/pkg/logger"
)

var now = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

func booking(id int64, st domain.BookingStatus, updated time.Time) *domain.Booking {
	return &domain.Booking{
		ID:              id,
		CustomerID:      1,
		ProviderID:      2,
		Status:          st,
		ScheduledAt:     now.Add(30 * time.Minute),
		DurationMinutes: 120,
		Total:           decimal.NewFromInt(80),
		CreatedAt:       now.Add(-48 * time.Hour),
		UpdatedAt:       updated,
	}
}

func TestStore_ApplyDropsStatusRegression(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())

	require.True(t, s.Apply(booking(1, domain.StatusInProgress, now), now))
	assert.False(t, s.Apply(booking(1, domain.StatusEnRoute, now.Add(time.Minute)), now))

	v, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StatusInProgress, v.RawStatus)
	assert.Equal(t, 75, v.Progress)
}

func TestStore_LoadKeepsNewerLiveStatus(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	s.Apply(booking(1, domain.StatusArrived, now), now)

	// выборка из БД пришла позже, но с устаревшим статусом
	s.Load([]*domain.Booking{booking(1, domain.StatusConfirmed, now.Add(-time.Hour))}, now, s.BeginLoad())

	v, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StatusArrived, v.RawStatus)
	assert.Equal(t, 50, v.Progress)
}

func TestStore_LoadDropsMissingBookings(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	s.Apply(booking(1, domain.StatusConfirmed, now), now)
	s.Apply(booking(2, domain.StatusConfirmed, now), now)

	s.Load([]*domain.Booking{booking(2, domain.StatusConfirmed, now)}, now, s.BeginLoad())

	_, ok := s.Get(1)
	assert.False(t, ok)
	assert.Equal(t, []int64{2}, s.IDs())
}

func TestStore_LoadKeepsBookingsAppliedDuringFetch(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	s.Apply(booking(1, domain.StatusConfirmed, now), now)
	s.Apply(booking(3, domain.StatusConfirmed, now), now)

	since := s.BeginLoad()
	// события между началом выборки и её применением
	require.True(t, s.Apply(booking(2, domain.StatusPending, now), now))
	_, ok := s.ApplyCancelled(3, "changed plans", domain.RoleCustomer, decimal.Zero, now)
	require.True(t, ok)

	s.Load([]*domain.Booking{booking(1, domain.StatusConfirmed, now)}, now, since)

	assert.Equal(t, []int64{1, 2, 3}, s.IDs())
	v, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCancelled, v.RawStatus)

	// следующая выборка без них удаляет их
	s.Load([]*domain.Booking{booking(1, domain.StatusConfirmed, now)}, now, s.BeginLoad())
	assert.Equal(t, []int64{1}, s.IDs())
}

func TestStore_UnknownStatusOverKnownIsDropped(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	s.Apply(booking(1, domain.StatusConfirmed, now), now)

	assert.False(t, s.Apply(booking(1, domain.BookingStatus("weird"), now.Add(time.Minute)), now))
}

func TestStore_UnknownStatusForNewBooking(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	require.True(t, s.Apply(booking(1, domain.BookingStatus("weird"), now), now))

	v, _ := s.Get(1)
	assert.Equal(t, domain.CoarseUpcoming, v.CoarseStatus)
	require.Len(t, v.Milestones, 1)
	assert.Equal(t, "Status unknown", v.Milestones[0].Title)
}

func TestStore_ApplyCancelled(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	s.Apply(booking(1, domain.StatusConfirmed, now), now)

	v, ok := s.ApplyCancelled(1, "changed plans", domain.RoleCustomer, decimal.NewFromInt(80), now)
	require.True(t, ok)

	assert.Equal(t, domain.CoarseCompleted, v.CoarseStatus)
	assert.Equal(t, domain.StatusCancelled, v.RawStatus)
	assert.True(t, v.Milestones[0].Completed, "confirmed milestone must survive cancellation")
	last := v.Milestones[len(v.Milestones)-1]
	assert.Equal(t, "Booking cancelled", last.Title)
	require.NotNil(t, last.At)
	assert.True(t, v.Booking.RefundAmount.Equal(decimal.NewFromInt(80)))

	_, ok = s.ApplyCancelled(99, "x", domain.RoleCustomer, decimal.Zero, now)
	assert.False(t, ok)
}

func TestStore_TickRecomputesCountdown(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	b := booking(1, domain.StatusConfirmed, now)
	b.ScheduledAt = now.Add(90 * time.Minute)
	s.Apply(b, now)

	v, _ := s.Get(1)
	assert.Nil(t, v.Countdown)

	s.Tick(now.Add(45 * time.Minute))
	v, _ = s.Get(1)
	require.NotNil(t, v.Countdown)
	assert.Equal(t, "starts in 45 minutes", *v.Countdown)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(time.Hour, logger.NewNop())
	s.Apply(booking(1, domain.StatusEnRoute, now), now)

	snap := s.Snapshot()
	snap[0].Milestones[0].Completed = false

	v, _ := s.Get(1)
	assert.True(t, v.Milestones[0].Completed)
}
