// Package apperr defines the error taxonomy surfaced to callers of the
// application service: validation, storage and generation failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation Kind = "VALIDATION_FAILED"
	KindStorage    Kind = "STORAGE_ERROR"
	KindGeneration Kind = "GENERATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
)

// ErrGenerationInFlight is returned when a generation request arrives while
// another one for the same target has not finished yet.
var ErrGenerationInFlight = &Error{
	Kind:    KindConflict,
	Message: "a generation request is already in progress",
}

// Error is an application error with a kind and optional field messages.
type Error struct {
	Kind    Kind              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s: %s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports malformed user input with per-field messages.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "please check the form for errors", Fields: fields}
}

// Storage wraps a persistence failure.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// Generation wraps an AI generation failure.
func Generation(message string, err error) *Error {
	return &Error{Kind: KindGeneration, Message: message, Err: err}
}

// NotFound reports a missing entity.
func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", what, id)}
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
