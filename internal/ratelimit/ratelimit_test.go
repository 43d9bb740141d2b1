package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/graph-arbitrage/internal/apperror"
)

func TestNewSpacesRequests(t *testing.T) {
	l := New(4)

	if !l.Allow() {
		t.Fatal("first request should pass")
	}
	if l.Allow() {
		t.Fatal("second immediate request should be held back")
	}
	if got := l.Interval(); got != 250*time.Millisecond {
		t.Errorf("Interval() = %v, want 250ms", got)
	}
}

func TestWaitReportsCancellation(t *testing.T) {
	l := New(0.001)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if apperror.GetCode(err) != apperror.CodeRateLimitExceeded {
		t.Errorf("err = %v, want RATE_LIMIT_EXCEEDED", err)
	}
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	l := Unlimited()
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("unlimited limiter refused a request")
		}
	}
	if l.Interval() != 0 {
		t.Errorf("Interval() = %v", l.Interval())
	}
}
