package countdown

import (
	"context"
	"time"
)

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// RealClock системные часы
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Run вызывает onTick с фиксированным интервалом до отмены ctx.
// Первый тик выполняется сразу.
func Run(ctx context.Context, interval time.Duration, clock Clock, onTick func(now time.Time)) {
	onTick(clock.Now())

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			onTick(clock.Now())
		}
	}
}
