package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeExchangeUnavailable: "Exchange is unreachable",
	CodeExchangeAPIError:    "Exchange API error",
	CodeUnauthorized:        "Exchange rejected the credentials",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeInvalidTicker:  "Ticker is missing a valid bid or ask",
	CodeInvalidProduct: "Invalid product id",
	CodeStaleTicker:    "Ticker data is stale",

	CodeOrderNotFound:       "Order not found",
	CodeOrderRejected:       "Order rejected by exchange",
	CodeInsufficientBalance: "Insufficient balance",

	CodeGraphUnavailable: "Currency graph unavailable",

	CodeJournalWriteFailed: "Failed to write journal entry",
	CodeJournalReadFailed:  "Failed to read journal",

	CodeCircuitOpen: "Circuit breaker is open",
}
