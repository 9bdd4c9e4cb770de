package batch

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned by WaitUntil when maxAttempts checks
// all came back false.
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// Waiter polls a condition with a fixed sleep between checks. Sleep is
// injectable so tests can drive time without waiting.
type Waiter struct {
	Sleep func(ctx context.Context, d time.Duration) error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitUntil checks cond, sleeping interval between checks, until it returns
// true or an error. maxAttempts <= 0 means no limit.
func (w Waiter) WaitUntil(ctx context.Context, interval time.Duration, maxAttempts int, cond func() (bool, error)) error {
	sleep := w.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	for attempt := 1; ; attempt++ {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if maxAttempts > 0 && attempt >= maxAttempts {
			return ErrAttemptsExhausted
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}
