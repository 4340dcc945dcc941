package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fablab-network/fabpush/pkg/target"
)

func fastPolicy(attempts int) target.RetryPolicy {
	return target.RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestDialWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	v, attempts, err := dialWithRetry(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "client", nil
	})
	if err != nil {
		t.Fatalf("dialWithRetry: %v", err)
	}
	if v != "client" {
		t.Errorf("result = %q", v)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDialWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	_, attempts, err := dialWithRetry(context.Background(), fastPolicy(4), func() (string, error) {
		calls++
		return "", errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("should fail after exhausting attempts")
	}
	if calls != 4 || attempts != 4 {
		t.Errorf("calls = %d, attempts = %d, want 4", calls, attempts)
	}
}

func TestDialWithRetryPermanentAbortsImmediately(t *testing.T) {
	calls := 0
	authErr := errors.New("unable to authenticate")
	_, attempts, err := dialWithRetry(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		return "", backoff.Permanent(authErr)
	})
	if err == nil {
		t.Fatal("should fail")
	}
	if !errors.Is(err, authErr) {
		t.Errorf("err = %v, want the auth error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, permanent errors must not be retried", calls)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDialWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := dialWithRetry(ctx, fastPolicy(100), func() (string, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return "", errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("should fail after cancellation")
	}
	if calls > 3 {
		t.Errorf("calls = %d, cancellation should stop retrying", calls)
	}
}

func TestDialWithRetryElapsedWithinSchedule(t *testing.T) {
	policy := target.RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     40 * time.Millisecond,
	}

	calls := 0
	start := time.Now()
	_, attempts, err := dialWithRetry(context.Background(), policy, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "client", nil
	})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("dialWithRetry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}

	// Two waits sit between the three attempts. With 0.5 randomization each
	// wait is at least half its nominal interval, so the floor is
	// (20+20)/2 = 20ms; the ceiling is generous to absorb scheduler noise.
	if elapsed < 20*time.Millisecond {
		t.Errorf("elapsed = %v, retries fired faster than the backoff schedule allows", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, retries waited far longer than the schedule's ceiling", elapsed)
	}
}

func TestIsAuthError(t *testing.T) {
	if !isAuthError(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]")) {
		t.Error("should classify credential rejection as auth error")
	}
	if isAuthError(errors.New("dial tcp 172.80.80.11:22: connect: connection refused")) {
		t.Error("connectivity problems are not auth errors")
	}
	if isAuthError(nil) {
		t.Error("nil is not an auth error")
	}
}
