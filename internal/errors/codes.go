package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	ErrTimeout        ErrorCode = "TIMEOUT"

	// Composer-specific codes, surfaced as latched alert state client-side.
	ErrLimitExceeded   ErrorCode = "LIMIT_EXCEEDED"
	ErrSizeExceeded    ErrorCode = "SIZE_EXCEEDED"
	ErrSendFailed      ErrorCode = "SEND_FAILED"
	ErrRecordingFailed ErrorCode = "RECORDING_FAILED"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:        http.StatusNotFound,
	ErrUnauthorized:    http.StatusUnauthorized,
	ErrForbidden:       http.StatusForbidden,
	ErrValidation:      http.StatusUnprocessableEntity,
	ErrBadRequest:      http.StatusBadRequest,
	ErrConflict:        http.StatusConflict,
	ErrInternalError:   http.StatusInternalServerError,
	ErrServiceUnavail:  http.StatusServiceUnavailable,
	ErrTimeout:         http.StatusGatewayTimeout,
	ErrLimitExceeded:   http.StatusUnprocessableEntity,
	ErrSizeExceeded:    http.StatusUnprocessableEntity,
	ErrSendFailed:      http.StatusBadGateway,
	ErrRecordingFailed: http.StatusConflict,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
