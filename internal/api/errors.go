package api

import (
	"errors"
	"fmt"

	"github.com/jalasoft/jalanews/internal/api/rpc"
	"github.com/jalasoft/jalanews/internal/content"
	"github.com/jalasoft/jalanews/internal/graph"
	"github.com/jalasoft/jalanews/internal/models"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
)

// Application error codes
const (
	ErrServerError = -32000
	ErrForbidden   = -32001
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// classify maps a handler error to its JSON-RPC code and message.
func classify(err error) (int, string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, rpc.ErrInvalidParams),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, graph.ErrInvalidAccount),
		errors.Is(err, content.ErrNotFound):
		return ErrInvalidParams, "Invalid params"
	case errors.Is(err, rpc.ErrUnauthenticated),
		errors.Is(err, content.ErrForbidden):
		return ErrForbidden, "Forbidden"
	default:
		return ErrServerError, "Server error"
	}
}
