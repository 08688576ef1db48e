package providers

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	mu sync.Mutex

	rate  float64 // tokens per second
	burst float64

	tokens      float64
	lastUpdate  time.Time
	blockedTill time.Time

	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	RatePerSecond   float64       `json:"rate_per_second"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing requestsPerSecond on average,
// with bursts of up to max(1, requestsPerSecond).
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	burst := math.Max(1, requestsPerSecond)
	return &RateLimiter{
		rate:       requestsPerSecond,
		burst:      burst,
		tokens:     burst,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}
		waitTime := r.timeUntilToken()
		r.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.totalWaited += waitTime
			r.mu.Unlock()
		}
	}
}

// TryConsume attempts to consume a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1.0 {
		r.tokens--
		r.totalConsumed++
		return true
	}
	return false
}

// Record429 drains the bucket and, when retryAfter is known, holds new
// tokens back until it has passed.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429Time = now
	r.tokens = 0
	if retryAfter > 0 {
		r.blockedTill = now.Add(retryAfter)
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	var wait time.Duration
	if r.tokens < 1.0 {
		wait = r.timeUntilToken()
	}
	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		RatePerSecond:   r.rate,
		TimeUntilToken:  wait,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// timeUntilToken must be called with lock held.
func (r *RateLimiter) timeUntilToken() time.Duration {
	now := time.Now()
	if now.Before(r.blockedTill) {
		return r.blockedTill.Sub(now)
	}
	needed := 1.0 - r.tokens
	d := time.Duration(needed / r.rate * float64(time.Second))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	if now.Before(r.blockedTill) {
		r.lastUpdate = now
		return
	}
	from := r.lastUpdate
	if from.Before(r.blockedTill) {
		from = r.blockedTill
	}
	r.lastUpdate = now

	r.tokens += now.Sub(from).Seconds() * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}

// Limited wraps a Recognizer so every call first takes a token from its
// limiter. 429 responses feed back into the limiter.
type Limited struct {
	Recognizer
	limiter *RateLimiter
}

// WithRateLimit wraps rec. Recognizers reporting zero requests per second
// are returned unwrapped.
func WithRateLimit(rec Recognizer) Recognizer {
	rps := rec.RequestsPerSecond()
	if rps <= 0 {
		return rec
	}
	return &Limited{Recognizer: rec, limiter: NewRateLimiter(rps)}
}

// Recognize waits for a token and delegates.
func (l *Limited) Recognize(ctx context.Context, req *Request) (*Result, error) {
	if err := l.Wait(ctx); err != nil {
		return nil, err
	}
	return l.RecognizeNow(ctx, req)
}

// Wait takes a token, blocking until one is available or ctx ends.
func (l *Limited) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// RecognizeNow delegates without taking a token. Pair it with Wait.
func (l *Limited) RecognizeNow(ctx context.Context, req *Request) (*Result, error) {
	res, err := l.Recognizer.Recognize(ctx, req)
	if err != nil {
		if te, ok := asTransportError(err); ok && te.RateLimited() {
			l.limiter.Record429(te.RetryAfter)
		}
		return nil, err
	}
	return res, nil
}

// Limiter exposes the underlying limiter for status reporting.
func (l *Limited) Limiter() *RateLimiter {
	return l.limiter
}

// Unwrap returns the wrapped recognizer.
func (l *Limited) Unwrap() Recognizer {
	return l.Recognizer
}
