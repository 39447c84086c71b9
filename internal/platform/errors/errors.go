// Package errors provides structured errors for the HTTP control surface,
// each carrying a type that maps to a status code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is both the metrics label and the "type" field of the response.
type ErrorType string

const (
	TypeValidation ErrorType = "validation"
	TypeNotFound   ErrorType = "not_found"
	TypeConflict   ErrorType = "conflict"
	TypeInternal   ErrorType = "internal"
	TypeExternal   ErrorType = "external" // stream provider or Redis
)

var statusByType = map[ErrorType]int{
	TypeValidation: http.StatusBadRequest,
	TypeNotFound:   http.StatusNotFound,
	TypeConflict:   http.StatusConflict,
	TypeInternal:   http.StatusInternalServerError,
	TypeExternal:   http.StatusBadGateway,
}

type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func ValidationError(message string) *Error { return build(TypeValidation, message, nil) }
func NotFoundError(message string) *Error   { return build(TypeNotFound, message, nil) }
func ConflictError(message string) *Error   { return build(TypeConflict, message, nil) }

func InternalError(message string, cause error) *Error {
	return build(TypeInternal, message, cause)
}

func ExternalError(message string, cause error) *Error {
	return build(TypeExternal, message, cause)
}

func build(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause, Context: map[string]any{}}
}

func (e *Error) Error() string {
	msg := string(e.Type) + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps the error type to a status code; unknown types are 500.
func (e *Error) HTTPStatus() int {
	if code, ok := statusByType[e.Type]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField adds a field that is both logged and returned to the client.
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Type: e.Type, Context: e.Context}
}

// AsStructuredError finds the *Error in err's chain, or wraps err as an
// internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return InternalError("internal server error", err)
}
