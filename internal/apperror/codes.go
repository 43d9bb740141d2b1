package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Trading error codes
const (
	// Exchange transport
	CodeExchangeUnavailable Code = "EXCHANGE_UNAVAILABLE"
	CodeExchangeAPIError    Code = "EXCHANGE_API_ERROR"
	CodeUnauthorized        Code = "EXCHANGE_UNAUTHORIZED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Market data
	CodeInvalidTicker  Code = "INVALID_TICKER"
	CodeInvalidProduct Code = "INVALID_PRODUCT"
	CodeStaleTicker    Code = "STALE_TICKER"

	// Orders
	CodeOrderNotFound       Code = "ORDER_NOT_FOUND"
	CodeOrderRejected       Code = "ORDER_REJECTED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// Decision engine
	CodeGraphUnavailable Code = "GRAPH_UNAVAILABLE"

	// Journal
	CodeJournalWriteFailed Code = "JOURNAL_WRITE_FAILED"
	CodeJournalReadFailed  Code = "JOURNAL_READ_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
