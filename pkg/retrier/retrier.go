// Package retrier provides bounded retry with a fixed backoff for flaky
// upstream calls.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 2 * time.Second
)

// Retrier runs an operation up to a fixed number of attempts, sleeping a
// constant interval between them.
type Retrier struct {
	attempts int
	backoff  time.Duration
	jitter   float64
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithAttempts sets the total number of attempts, including the first one.
func WithAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithBackoff sets the pause between attempts.
func WithBackoff(d time.Duration) Option {
	return func(r *Retrier) {
		r.backoff = d
	}
}

// WithJitter spreads each pause by up to the given fraction of the backoff,
// in both directions.
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		r.jitter = j
	}
}

// New creates a Retrier with the defaults and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds or the attempts are exhausted. The last error
// is returned. Cancellation interrupts the backoff sleep.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			sleep := r.backoff
			if r.jitter > 0 {
				sleep += time.Duration((rand.Float64()*2 - 1) * r.jitter * float64(r.backoff))
				if sleep < 0 {
					sleep = 0
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}

// DoWithData runs fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
