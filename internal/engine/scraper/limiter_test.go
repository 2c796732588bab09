package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedLimiter returns a limiter with a deterministic delay (min == max
// collapses the random draw), a frozen clock, and a recording sleep.
func fixedLimiter(delay time.Duration) (*Limiter, *[]time.Duration) {
	var slept []time.Duration
	l := NewLimiter(delay, delay)
	l.now = func() time.Time { return time.Unix(1000, 0) }
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return l, &slept
}

func TestLimiterFirstRequestDoesNotSleep(t *testing.T) {
	l, slept := fixedLimiter(100 * time.Millisecond)

	require.NoError(t, l.Wait(context.Background()))

	assert.Empty(t, *slept, "no prior request, nothing to wait for")
	assert.Equal(t, 1, l.RequestCount())
}

func TestLimiterSleepsRemainderSinceLastRequest(t *testing.T) {
	l, slept := fixedLimiter(100 * time.Millisecond)

	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))

	// Clock is frozen, so the full delay remains outstanding
	require.Len(t, *slept, 1)
	assert.Equal(t, 100*time.Millisecond, (*slept)[0])
}

func TestLimiterEscalation(t *testing.T) {
	tests := []struct {
		name         string
		requestCount int
		want         time.Duration
	}{
		{"base delay through 10 requests", 10, 100 * time.Millisecond},
		{"1.5x past 10 requests", 11, 150 * time.Millisecond},
		{"still 1.5x at 20", 20, 150 * time.Millisecond},
		{"2x past 20 requests", 21, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, slept := fixedLimiter(100 * time.Millisecond)
			l.requestCount = tt.requestCount
			l.lastRequest = time.Unix(1000, 0) // same as frozen now

			require.NoError(t, l.Wait(context.Background()))

			require.Len(t, *slept, 1)
			assert.Equal(t, tt.want, (*slept)[0])
		})
	}
}

func TestLimiterCancelledContext(t *testing.T) {
	l := NewLimiter(time.Hour, time.Hour)
	l.lastRequest = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, l.RequestCount(), "cancelled wait must not count")
}
