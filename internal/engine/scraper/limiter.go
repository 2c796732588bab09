package scraper

import (
	"context"
	"math/rand/v2"
	"time"
)

// Limiter paces outgoing requests. It is an explicit value owned by the
// Client rather than ambient state, so it can be exercised in isolation.
// Single writer: only the Client mutates it, and the sweep is sequential.
type Limiter struct {
	minDelay time.Duration
	maxDelay time.Duration

	requestCount int
	lastRequest  time.Time

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewLimiter builds a limiter drawing pre-request delays uniformly from
// [minDelay, maxDelay].
func NewLimiter(minDelay, maxDelay time.Duration) *Limiter {
	return &Limiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Wait blocks until at least the drawn delay has elapsed since the
// previous request. The delay grows once the session has issued more
// than 10 requests, and again past 20, to ease off under sustained load.
func (l *Limiter) Wait(ctx context.Context) error {
	delay := l.minDelay + time.Duration(rand.Float64()*float64(l.maxDelay-l.minDelay))

	switch {
	case l.requestCount > 20:
		delay = time.Duration(float64(delay) * 2.0)
	case l.requestCount > 10:
		delay = time.Duration(float64(delay) * 1.5)
	}

	if elapsed := l.now().Sub(l.lastRequest); elapsed < delay {
		if err := l.sleep(ctx, delay-elapsed); err != nil {
			return err
		}
	}

	l.lastRequest = l.now()
	l.requestCount++
	return nil
}

// RequestCount reports how many requests the limiter has paced.
func (l *Limiter) RequestCount() int {
	return l.requestCount
}

// sleepCtx blocks for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
