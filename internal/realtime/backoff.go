package realtime

import (
	"math/rand"
	"time"
)

// RetryPolicy describes the reconnect backoff: capped exponential delays
// with jitter and a bounded attempt count.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	// Jitter is the relative spread applied to each delay, e.g. 0.2
	// yields delays in [0.8d, 1.2d].
	Jitter float64

	rnd func() float64
}

// Delay returns the backoff delay for the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.MaxDelay
	// shifting past ~20 would overflow long before any realistic cap
	if attempt <= 20 {
		if v := p.BaseDelay << (attempt - 1); v > 0 && v < p.MaxDelay {
			d = v
		}
	}

	if p.Jitter > 0 {
		rnd := p.rnd
		if rnd == nil {
			rnd = rand.Float64
		}
		d = time.Duration(float64(d) * (1 + p.Jitter*(2*rnd()-1)))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Exhausted reports whether the attempt count passed the cap.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
