// Error types and handling
package llm

import "fmt"

// ErrorCode is the machine-checkable classification of an Error
type ErrorCode string

const (
	ErrCodeInvalidRequest       ErrorCode = "invalid_request"
	ErrCodeAuthenticationFailed ErrorCode = "authentication_failed"
	ErrCodeRateLimitExceeded    ErrorCode = "rate_limit_exceeded"
	ErrCodeInternalError        ErrorCode = "internal_error"
	ErrCodeUnsupported          ErrorCode = "unsupported"
	ErrCodeUnknown              ErrorCode = "unknown"
)

// Error represents a standardized LLM error. Every fatal streaming
// condition ultimately reaches the caller wrapped in a StreamEvent, carrying
// the raw provider payload for diagnostics when one is available.
type Error struct {
	Code              ErrorCode `json:"code"`
	Message           string    `json:"message"`
	ProviderErrorJSON *string   `json:"provider_error_json,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorCodeFromStatus classifies an HTTP status code
func ErrorCodeFromStatus(status int) ErrorCode {
	switch {
	case status == 401 || status == 403:
		return ErrCodeAuthenticationFailed
	case status == 429:
		return ErrCodeRateLimitExceeded
	case status >= 400 && status < 500:
		return ErrCodeInvalidRequest
	case status >= 500:
		return ErrCodeInternalError
	default:
		return ErrCodeUnknown
	}
}

// NewError creates an Error with a formatted message
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
