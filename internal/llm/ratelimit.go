package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blockedby/lexscout/internal/logger"
)

// DefaultBackoff is the pause after a 429 that carried no retry hint.
const DefaultBackoff = 30 * time.Second

// RateLimiter spaces out provider calls.
type RateLimiter struct {
	limiter *rate.Limiter

	// extra pause after a 429
	backoffUntil time.Time
	mu           sync.Mutex
}

// NewRateLimiter creates a limiter allowing rps requests per second.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.backoffUntil
	r.mu.Unlock()

	if d := time.Until(waitUntil); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// Backoff pauses all calls for d. A shorter pause never cuts an active one.
func (r *RateLimiter) Backoff(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(d); until.After(r.backoffUntil) {
		r.backoffUntil = until
	}
}

// RateLimited wraps a Provider with a RateLimiter.
type RateLimited struct {
	Provider
	limiter *RateLimiter
	backoff time.Duration
}

// NewRateLimited wraps p. backoff <= 0 uses DefaultBackoff.
func NewRateLimited(p Provider, limiter *RateLimiter, backoff time.Duration) *RateLimited {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &RateLimited{Provider: p, limiter: limiter, backoff: backoff}
}

// Generate waits for a slot, then calls the wrapped provider. A 429 starts
// a back-off window for later calls; the error is still returned.
func (r *RateLimited) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := r.Provider.Generate(ctx, req)
	var rl *RateLimitError
	if errors.As(err, &rl) {
		d := rl.RetryAfter
		if d <= 0 {
			d = r.backoff
		}
		r.limiter.Backoff(d)
		logger.Warn("llm rate limited, backing off", err)
	}
	return resp, err
}
