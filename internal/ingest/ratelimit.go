package ingest

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter. Tokens refill continuously at
// the configured rate up to the burst size; Wait blocks until a token
// is available or the context ends.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time

	// injectable clock for tests
	now func() time.Time
}

// NewLimiter creates a limiter allowing ratePerSecond sustained
// requests with the given burst. Non-positive values fall back to one
// request per second with no burst.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:   ratePerSecond,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// Wait blocks until one token is available. It returns the context's
// error if the context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.refund()
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// reserve takes one token, going negative if none are available, and
// returns how long the caller must wait for the balance to recover.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// refund returns the token taken by an abandoned reservation.
func (l *Limiter) refund() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens++
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}

func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
