// Package retry runs an operation under a bounded exponential backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how an operation is retried.
type Policy struct {
	// MaxAttempts counts the first call, so 3 means two retries.
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	// Retryable decides whether a failure is worth another attempt. Nil retries everything.
	Retryable func(error) bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy is three attempts waiting 2s then 4s.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		Multiplier:      2,
		MaxInterval:     time.Minute,
		Retryable:       retryable,
	}
}

// Delays lists the waits a policy produces when every attempt fails.
func (p Policy) Delays() []time.Duration {
	p = p.withDefaults()
	b := p.backOff()
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, b.NextBackOff())
	}
	return out
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = time.Minute
	}
	if p.Retryable == nil {
		p.Retryable = func(error) bool { return true }
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxInterval,
	}
	b.Reset()
	return b
}

// Do calls fn until it succeeds, fails with a non-retryable error, or runs out of attempts.
// The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	b := p.backOff()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.MaxAttempts || !p.Retryable(err) {
			return zero, err
		}

		delay := b.NextBackOff()
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			return zero, err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
