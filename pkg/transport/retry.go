package transport

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/fablab-network/fabpush/pkg/target"
)

// dialWithRetry runs fn under bounded exponential backoff per the target's
// retry policy. A fn returning backoff.Permanent aborts immediately (used
// for authentication rejections — retrying those is pointless and can lock
// accounts). Returns the result and the number of attempts made.
func dialWithRetry[T any](ctx context.Context, policy target.RetryPolicy, fn func() (T, error)) (T, int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	var result T
	attempts := 0

	op := func() error {
		attempts++
		v, err := fn()
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1)), ctx))
	return result, attempts, err
}
