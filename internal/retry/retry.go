// Package retry runs exchange calls a bounded number of times with a fixed
// pause between attempts. Only transient failures are retried.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
)

// Policy bounds the attempts for one call.
type Policy struct {
	MaxAttempts uint
	Delay       time.Duration
	// OnRetry is called before each pause; may be nil.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy is five attempts spaced half a second apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Delay: 500 * time.Millisecond}
}

// Do runs op until it succeeds, fails permanently, the attempts run out or
// ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	operation := func() (T, error) {
		v, err := op(ctx)
		if err != nil && !apperror.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(attempts),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	return backoff.Retry(ctx, operation, opts...)
}
