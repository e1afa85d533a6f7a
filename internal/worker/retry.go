package worker

import (
	"context"
	"time"

	"github.com/Ads97/Veritas/internal/model"
)

// retrySleepFunc waits between attempts (injectable for tests)
var retrySleepFunc = sleepWithCtx

// RetryPolicy bounds how often and how slowly a call is retried
type RetryPolicy struct {
	MaxRetries int           // Extra attempts after the first
	BaseDelay  time.Duration // Doubled on every retry
	MaxDelay   time.Duration // Zero means uncapped
	Retryable  func(error) bool
}

// DefaultRetryPolicy retries transport errors twice with 500ms base backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Retryable:  model.IsRetryable,
	}
}

// PolicyFromConfig builds the retry policy for outbound provider calls
func PolicyFromConfig(cfg model.ConcurrencyConfig) RetryPolicy {
	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}
	return policy
}

// Retry calls fn until it succeeds, returns a non-retryable error, or runs out of attempts
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	retryable := policy.Retryable
	if retryable == nil {
		retryable = model.IsRetryable
	}

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}

		if attempt < policy.MaxRetries {
			if sleepErr := retrySleepFunc(ctx, policy.backoff(attempt)); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

// Do is Retry for calls that also return a value
func Do[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, policy, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(1<<uint(attempt))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
