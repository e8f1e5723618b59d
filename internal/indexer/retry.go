package indexer

import (
	"context"
	"math/rand"
	"time"
)

// withRetry runs fn until it succeeds, the attempts run out, or the context
// ends. The delay doubles after each failure, with up to half the delay added
// as jitter so parallel chain loops back off out of lockstep.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		sleep := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
