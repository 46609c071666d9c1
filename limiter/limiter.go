// Package limiter paces outbound calls to the lookup services.
//
// The recording-lookup provider tolerates on the order of 10 requests per 10
// seconds, counted regardless of outcome, so every call is preceded by a wait
// that keeps the overall rate below one request per interval.
package limiter

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

func New(interval time.Duration) *Limiter {
	lim := rate.NewLimiter(rate.Every(interval), 1)

	// spend the initial token so the very first Wait paces too; quota
	// usage stays deterministic from the first request on.
	lim.Allow()

	return &Limiter{
		interval: interval,
		lim:      lim,
	}
}

type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter

	mu        sync.Mutex
	notBefore time.Time
}

// Wait blocks until the next request is allowed, or until ctx is canceled.
func (lim *Limiter) Wait(ctx context.Context) error {
	lim.mu.Lock()
	dur := time.Until(lim.notBefore)
	lim.mu.Unlock()

	if dur > 0 {
		if dur > time.Second {
			log.Printf("waiting %s until %s",
				dur.Truncate(time.Second),
				lim.notBefore.Format(time.StampMilli))
		}
		timer := time.NewTimer(dur)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lim.lim.Wait(ctx)
}

// Backoff pushes the next allowed request out by at least d. The lookup
// services ask for this via a Retry-After header when they are overloaded.
func (lim *Limiter) Backoff(d time.Duration) {
	lim.mu.Lock()
	defer lim.mu.Unlock()

	notBefore := time.Now().Add(d)
	if notBefore.After(lim.notBefore) {
		lim.notBefore = notBefore
	}
}

// Interval reports the minimum spacing between requests.
func (lim *Limiter) Interval() time.Duration {
	return lim.interval
}
