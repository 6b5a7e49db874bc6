// Package resilience wraps calls to external services with retry and a
// circuit breaker.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker"
)

// RetryConfig controls RetryWithBackoff.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// RetryWithBackoff runs fn until it succeeds, the retries run out, or ctx
// is done. The wait doubles after every failed attempt, plus up to 50%
// jitter.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	var lastErr error
	backoff := cfg.InitialBackoff
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxRetries || backoff <= 0 {
			continue
		}

		wait := backoff + time.Duration(rand.Int64N(int64(backoff/2)+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
	return lastErr
}

// NewCircuitBreaker returns a breaker that opens once at least five calls
// in a 30s window have been made and 60% of them failed. It half-opens
// after a minute.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}
