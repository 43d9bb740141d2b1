package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewUsesRegisteredMessage(t *testing.T) {
	err := New(CodeOrderNotFound, WithContext("order abc"))

	if err.Message != "Order not found" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Context != "order abc" {
		t.Errorf("Context = %q", err.Context)
	}

	wrapped := New(CodeExchangeUnavailable, WithContext("GET /accounts"), WithCause(errors.New("dial tcp")))
	want := "EXCHANGE_UNAVAILABLE: Exchange is unreachable (GET /accounts): dial tcp"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestWrapKeepsExistingAppError(t *testing.T) {
	orig := New(CodeInvalidTicker)
	wrapped := Wrap(fmt.Errorf("outer: %w", orig), CodeInternalError, "BTC-USD")

	if wrapped.Code != CodeInvalidTicker {
		t.Errorf("Code = %s, want %s", wrapped.Code, CodeInvalidTicker)
	}
	if wrapped.Context != "BTC-USD" {
		t.Errorf("Context = %q", wrapped.Context)
	}
	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("get order: %w", New(CodeOrderNotFound))

	if !HasCode(err, CodeOrderNotFound) {
		t.Error("expected ORDER_NOT_FOUND in chain")
	}
	if HasCode(err, CodeOrderRejected) {
		t.Error("unexpected ORDER_REJECTED match")
	}
	if GetCode(errors.New("plain")) != CodeUnknownError {
		t.Error("plain errors should report UNKNOWN_ERROR")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain network error", errors.New("connection reset"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"exchange unavailable", New(CodeExchangeUnavailable), true},
		{"rate limited", New(CodeRateLimitExceeded), true},
		{"api 503", New(CodeExchangeAPIError, WithHTTPStatus(503)), true},
		{"api 400", New(CodeExchangeAPIError, WithHTTPStatus(400)), false},
		{"not found", New(CodeOrderNotFound), false},
		{"rejected", New(CodeOrderRejected), false},
		{"circuit open", New(CodeCircuitOpen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
