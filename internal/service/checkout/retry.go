package checkout

import (
	"context"
	"math/rand"
	"time"
)

type backoffPolicy struct {
	base time.Duration
	max  time.Duration
}

// delay returns the exponential backoff for attempt (0-based) with up to 50%
// jitter so concurrent retries against the same product spread out.
func (p backoffPolicy) delay(attempt int) time.Duration {
	d := p.base
	for i := 0; i < attempt && d < p.max; i++ {
		d *= 2
	}
	if d > p.max {
		d = p.max
	}
	return d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
