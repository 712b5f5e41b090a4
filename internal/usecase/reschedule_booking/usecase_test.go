package reschedule_booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/internal/domain"
	bookingRepo "github.com/m04kA/SMC-BookingSync/internal/infra/storage/booking"
	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/session"
	"github.com/m04kA/SMC-BookingSync/internal/usecase/cancel_booking"
	"github.com/m04kA/SMC-BookingSync/pkg/logger"
)

var now = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type fakeRepo struct {
	original  *domain.Booking
	createErr error
	created   []*domain.Booking
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	if r.original == nil || r.original.ID != id {
		return nil, bookingRepo.ErrBookingNotFound
	}
	c := *r.original
	return &c, nil
}

func (r *fakeRepo) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	b.ID = 500 + int64(len(r.created))
	b.CreatedAt = now
	b.UpdatedAt = now
	r.created = append(r.created, b)
	return b, nil
}

type fakeCanceller struct {
	err  error
	reqs []cancel_booking.Request
}

func (c *fakeCanceller) Execute(_ context.Context, req *cancel_booking.Request) (*cancel_booking.Response, error) {
	c.reqs = append(c.reqs, *req)
	if c.err != nil {
		return nil, c.err
	}
	return &cancel_booking.Response{BookingID: req.BookingID, Status: domain.StatusCancelled, RefundAmount: decimal.NewFromInt(90)}, nil
}

type noSessions struct{}

func (noSessions) Get(int64) (*session.Session, bool) { return nil, false }

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, ev.RoutingKey())
	return nil
}

func original() *domain.Booking {
	return &domain.Booking{
		ID:              7,
		CustomerID:      1,
		ProviderID:      2,
		AddressID:       3,
		Status:          domain.StatusConfirmed,
		ScheduledAt:     now.Add(48 * time.Hour),
		DurationMinutes: 120,
		Total:           decimal.NewFromInt(90),
		ServiceName:     "Deep clean",
	}
}

func newUseCase(repo *fakeRepo, c *fakeCanceller, pub *recordingPublisher) *UseCase {
	uc := NewUseCase(repo, c, noSessions{}, pub, logger.NewNop())
	uc.timeProvider = fixedTime{t: now}
	return uc
}

func TestExecute_CancelsAndRecreates(t *testing.T) {
	repo := &fakeRepo{original: original()}
	c := &fakeCanceller{}
	pub := &recordingPublisher{}
	uc := newUseCase(repo, c, pub)

	newTime := now.Add(72 * time.Hour)
	resp, err := uc.Execute(context.Background(), &Request{UserID: 1, BookingID: 7, NewScheduledAt: newTime})
	require.NoError(t, err)

	require.Len(t, c.reqs, 1)
	assert.Equal(t, domain.RescheduleReason, c.reqs[0].Reason)

	require.NotNil(t, resp.Booking)
	assert.Equal(t, domain.StatusPending, resp.Booking.Status)
	assert.Equal(t, newTime, resp.Booking.ScheduledAt)
	assert.Equal(t, "Deep clean", resp.Booking.ServiceName)
	assert.Equal(t, int64(2), resp.Booking.ProviderID)
	assert.True(t, resp.Cancelled.RefundAmount.Equal(decimal.NewFromInt(90)))

	assert.Equal(t, []string{"user.1.booking.insert", "user.2.booking.insert"}, pub.keys)
}

func TestExecute_CancelErrorPassesThrough(t *testing.T) {
	repo := &fakeRepo{original: original()}
	c := &fakeCanceller{err: cancel_booking.ErrInvalidStateTransition}
	uc := newUseCase(repo, c, &recordingPublisher{})

	_, err := uc.Execute(context.Background(), &Request{UserID: 1, BookingID: 7, NewScheduledAt: now.Add(time.Hour)})
	assert.True(t, errors.Is(err, cancel_booking.ErrInvalidStateTransition))
	assert.Empty(t, repo.created)
}

func TestExecute_RecreateFailure(t *testing.T) {
	repo := &fakeRepo{original: original(), createErr: errors.New("insert failed")}
	uc := newUseCase(repo, &fakeCanceller{}, &recordingPublisher{})

	resp, err := uc.Execute(context.Background(), &Request{UserID: 1, BookingID: 7, NewScheduledAt: now.Add(time.Hour)})
	assert.True(t, errors.Is(err, ErrRecreateFailed))
	require.NotNil(t, resp)
	assert.NotNil(t, resp.Cancelled)
	assert.Nil(t, resp.Booking)
}

func TestExecute_NonParticipantDeniedBeforeCancel(t *testing.T) {
	repo := &fakeRepo{original: original()}
	c := &fakeCanceller{}
	uc := newUseCase(repo, c, &recordingPublisher{})

	// то же время, что у бронирования: отказ не должен зависеть от его данных
	for _, at := range []time.Time{now.Add(time.Hour), now.Add(48 * time.Hour)} {
		_, err := uc.Execute(context.Background(), &Request{UserID: 99, BookingID: 7, NewScheduledAt: at})
		assert.True(t, errors.Is(err, ErrAccessDenied))
	}

	assert.Empty(t, c.reqs)
	assert.Empty(t, repo.created)
}

func TestExecute_ProviderMayReschedule(t *testing.T) {
	repo := &fakeRepo{original: original()}
	c := &fakeCanceller{}
	uc := newUseCase(repo, c, &recordingPublisher{})

	_, err := uc.Execute(context.Background(), &Request{UserID: 2, BookingID: 7, NewScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, c.reqs, 1)
	assert.Equal(t, int64(2), c.reqs[0].UserID)
}

func TestExecute_Validation(t *testing.T) {
	repo := &fakeRepo{original: original()}
	c := &fakeCanceller{}
	uc := newUseCase(repo, c, &recordingPublisher{})

	_, err := uc.Execute(context.Background(), &Request{UserID: 1, BookingID: 7, NewScheduledAt: now.Add(-time.Minute)})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = uc.Execute(context.Background(), &Request{UserID: 1, BookingID: 7, NewScheduledAt: now.Add(48 * time.Hour)})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = uc.Execute(context.Background(), &Request{UserID: 1, BookingID: 8, NewScheduledAt: now.Add(time.Hour)})
	assert.True(t, errors.Is(err, ErrBookingNotFound))

	assert.Empty(t, c.reqs)
}
