package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-BookingSync/internal/realtime"
	"github.com/m04kA/SMC-BookingSync/internal/service/conversations"
)

// Dispatch применяет событие канала к компонентам сессии.
// Используются только инкрементальные точки входа, полная перестройка
// здесь не выполняется.
func (s *Session) Dispatch(ctx context.Context, ev realtime.Event) error {
	switch ev.Entity {
	case realtime.EntityBooking:
		return s.dispatchBooking(ev)
	case realtime.EntityThread:
		return s.dispatchThread(ctx, ev)
	case realtime.EntityMessage:
		return s.dispatchMessage(ev)
	default:
		return fmt.Errorf("%w: unknown entity %q", realtime.ErrMalformedEvent, ev.Entity)
	}
}

func (s *Session) dispatchBooking(ev realtime.Event) error {
	b, err := realtime.DecodeBooking(ev.Payload)
	if err != nil {
		return err
	}
	if b.CustomerID != s.userID && b.ProviderID != s.userID {
		return fmt.Errorf("%w: booking id=%d does not belong to user=%d", realtime.ErrMalformedEvent, b.ID, s.userID)
	}
	if ev.Target.Kind == realtime.KindBooking && ev.Target.ID != b.ID {
		return fmt.Errorf("%w: booking id=%d on channel %s", realtime.ErrMalformedEvent, b.ID, ev.Target)
	}

	s.ApplyBooking(b)
	return nil
}

func (s *Session) dispatchThread(ctx context.Context, ev realtime.Event) error {
	rec, err := realtime.DecodeThread(ev.Payload)
	if err != nil {
		return err
	}
	if ev.Target.Kind == realtime.KindThread && ev.Target.ID != rec.ID {
		return fmt.Errorf("%w: thread id=%d on channel %s", realtime.ErrMalformedEvent, rec.ID, ev.Target)
	}

	known := containsID(s.inbox.ThreadIDs(), rec.ID)
	if !s.inbox.ApplyThread(ctx, *rec) {
		return nil
	}
	if !known {
		s.syncChannelsAsync()
	}
	return nil
}

func (s *Session) dispatchMessage(ev realtime.Event) error {
	msg, err := realtime.DecodeMessage(ev.Payload)
	if err != nil {
		return err
	}
	if ev.Target.Kind == realtime.KindThread && ev.Target.ID != msg.ThreadID {
		return fmt.Errorf("%w: message for thread id=%d on channel %s", realtime.ErrMalformedEvent, msg.ThreadID, ev.Target)
	}

	if _, err := s.inbox.ApplyMessage(*msg); err != nil {
		if errors.Is(err, conversations.ErrUnknownThread) {
			// тред придёт отдельным событием или при следующей загрузке
			return fmt.Errorf("message id=%d: %w", msg.ID, err)
		}
		return err
	}
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
