package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_DelayGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second}

	require.Equal(t, 500*time.Millisecond, p.Delay(1))
	require.Equal(t, time.Second, p.Delay(2))
	require.Equal(t, 2*time.Second, p.Delay(3))
	require.Equal(t, 30*time.Second, p.Delay(8))
	require.Equal(t, 30*time.Second, p.Delay(50))
}

func TestRetryPolicy_JitterBounds(t *testing.T) {
	t.Parallel()

	low := RetryPolicy{
		BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 0.2,
		rnd: func() float64 { return 0 },
	}
	require.Equal(t, 800*time.Millisecond, low.Delay(1))

	high := RetryPolicy{
		BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 0.2,
		rnd: func() float64 { return 1 },
	}
	require.Equal(t, 1200*time.Millisecond, high.Delay(1))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 3}
	require.False(t, p.Exhausted(3))
	require.True(t, p.Exhausted(4))

	unbounded := RetryPolicy{}
	require.False(t, unbounded.Exhausted(1000))
}

func TestRetryPolicy_ZeroAttemptClamped(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute}
	require.Equal(t, time.Second, p.Delay(0))
}
