package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
)

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 5, Delay: time.Millisecond}

	got, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", apperror.New(apperror.CodeExchangeUnavailable)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	retried := 0
	p := Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		OnRetry:     func(error, time.Duration) { retried++ },
	}

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, apperror.New(apperror.CodeServiceTimeout)
	})
	if apperror.GetCode(err) != apperror.CodeServiceTimeout {
		t.Errorf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if retried != 2 {
		t.Errorf("notify calls = %d, want 2", retried)
	}
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 5, Delay: time.Millisecond}

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, apperror.New(apperror.CodeOrderNotFound)
	})
	if !apperror.HasCode(err, apperror.CodeOrderNotFound) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 5, Delay: time.Second}, func(context.Context) (int, error) {
		return 0, errors.New("network down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
