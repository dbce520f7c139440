package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-stable classification of a failed operation.
type ErrorCode string

// Error codes carried by failed responses.
const (
	CodeNoToken           ErrorCode = "NO_TOKEN"
	CodeTokenExpired      ErrorCode = "TOKEN_EXPIRED"
	CodeAPIError          ErrorCode = "API_ERROR"
	CodeNetworkError      ErrorCode = "NETWORK_ERROR"
	CodeAuthError         ErrorCode = "AUTH_ERROR"
	CodeCallbackError     ErrorCode = "CALLBACK_ERROR"
	CodeStateMismatch     ErrorCode = "STATE_MISMATCH"
	CodeRefreshFailed     ErrorCode = "REFRESH_FAILED"
	CodeDisconnectError   ErrorCode = "DISCONNECT_ERROR"
	CodePartialSyncFailed ErrorCode = "PARTIAL_SYNC_FAILED"
	CodeSyncFailed        ErrorCode = "SYNC_FAILED"
	CodeNotImplemented    ErrorCode = "NOT_IMPLEMENTED"
	CodeNotConnected      ErrorCode = "NOT_CONNECTED"
)

// APIError describes why an operation failed.
// Message is always human-readable; Code is always machine-stable.
type APIError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"status,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// NewAPIError creates an APIError with a formatted message.
func NewAPIError(code ErrorCode, format string, args ...any) *APIError {
	return &APIError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithStatus records the HTTP status that produced the error.
func (e *APIError) WithStatus(status int) *APIError {
	e.Status = status
	return e
}

// WithDetail attaches a key to Details.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// RequiresReauth reports whether the failure means the stored credential
// is no longer accepted and the user must authenticate again.
func (e *APIError) RequiresReauth() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case CodeTokenExpired, CodeNoToken:
		return true
	}
	return e.Status == http.StatusUnauthorized
}

// AsAPIError extracts an APIError from err, or wraps err with the fallback code.
func AsAPIError(err error, fallback ErrorCode) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Code: fallback, Message: err.Error()}
}

// Pagination carries vendor cursors for list responses.
type Pagination struct {
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Total    int    `json:"total,omitempty"`
}

// Response is the uniform envelope returned by every platform operation.
// Exactly one of Success or Error is meaningful: a failed response always
// carries a non-nil Error.
type Response[T any] struct {
	Success    bool        `json:"success"`
	Data       T           `json:"data,omitempty"`
	Error      *APIError   `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// OK returns a successful response.
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// OKPage returns a successful response with pagination.
func OKPage[T any](data T, page *Pagination) Response[T] {
	return Response[T]{Success: true, Data: data, Pagination: page}
}

// Fail returns a failed response carrying err.
func Fail[T any](err *APIError) Response[T] {
	if err == nil {
		err = &APIError{Code: CodeAPIError, Message: "unknown error"}
	}
	return Response[T]{Error: err}
}

// Failf returns a failed response with a formatted message.
func Failf[T any](code ErrorCode, format string, args ...any) Response[T] {
	return Fail[T](NewAPIError(code, format, args...))
}

// FailFrom carries the error of a failed response into a response of another type.
func FailFrom[U, T any](r Response[T]) Response[U] {
	return Fail[U](r.Error)
}

// Err returns the failure as an error, or nil on success.
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == nil {
		return &APIError{Code: CodeAPIError, Message: "unknown error"}
	}
	return r.Error
}
