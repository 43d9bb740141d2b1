// Package apperror defines coded errors shared by the exchange adapters and
// the trading loop.
package apperror

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AppError is an error with a stable code. Two AppErrors match under
// errors.Is when their codes are equal.
type AppError struct {
	Code    Code
	Message string
	Context string
	// HTTPStatus is the upstream status that produced the error, if any.
	HTTPStatus int
	cause      error
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// New creates an AppError. The message defaults to the code's catalogue
// entry.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{Code: code, Message: messages[code]}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Option configures an AppError.
type Option func(*AppError)

// WithMessage replaces the catalogue message, e.g. with the exchange's
// own rejection text.
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext names what the error is about (an order id, a product).
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

func WithHTTPStatus(status int) Option {
	return func(e *AppError) {
		e.HTTPStatus = status
	}
}

func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Wrap returns err as an AppError. An AppError already in the chain is
// returned as is, gaining context if it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}
	return New(code, WithContext(context), WithCause(err))
}

// IsAppError reports whether err has an AppError in its chain.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns the first code in err's chain, or CodeUnknownError.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// IsTransient reports whether retrying the failed operation may succeed.
// Explicit answers from the exchange (not found, rejected, bad credentials)
// are never transient. Uncoded errors are assumed to be transport failures.
func IsTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return true
	}
	switch appErr.Code {
	case CodeExchangeUnavailable, CodeServiceTimeout, CodeServiceUnavailable,
		CodeRateLimitExceeded, CodeWebSocketConnectionError, CodeExternalServiceError:
		return true
	case CodeExchangeAPIError:
		return appErr.HTTPStatus >= http.StatusInternalServerError
	}
	return false
}
