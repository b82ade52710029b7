package probe

import (
	"context"
	"time"
)

// Timer performs the fixed-duration waits of the probe loop.
//
// Wait returns nil when d elapses or the wait is cut short by an interrupt,
// and ctx.Err() when ctx is cancelled.
type Timer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepTimer is the wall-clock Timer. Interrupt ends the current wait early,
// or the next one if none is in progress.
type SleepTimer struct {
	interrupt chan struct{}
}

func NewSleepTimer() *SleepTimer {
	return &SleepTimer{interrupt: make(chan struct{}, 1)}
}

func (t *SleepTimer) Interrupt() {
	select {
	case t.interrupt <- struct{}{}:
	default:
	}
}

func (t *SleepTimer) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	tm := time.NewTimer(d)
	defer tm.Stop()

	select {
	case <-tm.C:
		return nil
	case <-t.interrupt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
