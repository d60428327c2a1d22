// internal/apperr/apperr.go
//
// Structured application errors.
//
// Context
// -------
// Repositories and services return plain wrapped errors; anything that
// should reach an API client as a specific status is an *Error.  The REST
// component renders every error through `Write`, so unknown errors become
// a generic 500 and never leak internals.
//
// Notes
// -----
//   - ErrNotFound is the sentinel repositories map `sql.ErrNoRows` to.
//     `Write` turns it into a 404 without callers wrapping it again.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Error codes.
const (
	CodeInternal     = "INTERNAL_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeTooLarge     = "PAYLOAD_TOO_LARGE"
)

// ErrNotFound marks a missing row.
var ErrNotFound = errors.New("not found")

// Error is the API-facing error type.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Status  int            `json:"-"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail adds a key to Details and returns e.
func (e *Error) WithDetail(key string, val any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = val
	return e
}

/*──────────────────────────── factories ───────────────────────────────────*/

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusBadRequest}
}

// FieldErrors is a validation error whose details map field → message.
func FieldErrors(fields map[string]string) *Error {
	e := Validation("Invalid input.")
	for k, v := range fields {
		e.WithDetail(k, v)
	}
	return e
}

func NotFound(entity string) *Error {
	return &Error{Code: CodeNotFound, Message: entity + " not found", Status: http.StatusNotFound, Err: ErrNotFound}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg, Status: http.StatusUnauthorized}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, Status: http.StatusForbidden}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Status: http.StatusConflict}
}

func TooLarge(msg string) *Error {
	return &Error{Code: CodeTooLarge, Message: msg, Status: http.StatusRequestEntityTooLarge}
}

func RateLimited() *Error {
	return &Error{Code: CodeRateLimited, Message: "Too many requests.", Status: http.StatusTooManyRequests}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal server error", Status: http.StatusInternalServerError, Err: err}
}

/*──────────────────────────── rendering ───────────────────────────────────*/

// fieldMapper is implemented by validation error maps (model.FieldErrors).
type fieldMapper interface{ FieldMap() map[string]string }

// From converts any error into an *Error.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var fe fieldMapper
	if errors.As(err, &fe) {
		return FieldErrors(fe.FieldMap())
	}
	if errors.Is(err, ErrNotFound) {
		return NotFound("Resource")
	}
	return Internal(err)
}

// Write renders err as `{"error": {...}}` with the matching status.
func Write(w http.ResponseWriter, err error) {
	ae := From(err)
	if ae.Status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(map[string]*Error{"error": ae})
}
