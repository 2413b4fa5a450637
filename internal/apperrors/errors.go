package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure the boundary layer knows how to surface.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindWhoisLookup Kind = "whois_lookup_error"
	KindNetwork     Kind = "network_error"
	KindTimeout     Kind = "timeout_error"
	KindRateLimit   Kind = "rate_limit_error"
	KindInternal    Kind = "internal_error"
)

// Error is a typed application error carrying an HTTP-style status code for
// the API layer. Collector-internal failures never become Errors; only
// failures that must propagate to the caller do.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same Kind, so callers can test with errors.Is
// against a sentinel constructed by the same helper.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func NewValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

func NewWhoisLookup(msg string, err error) *Error {
	return &Error{Kind: KindWhoisLookup, Status: http.StatusBadGateway, Message: msg, Err: err}
}

func NewNetwork(msg string, err error) *Error {
	return &Error{Kind: KindNetwork, Status: http.StatusBadGateway, Message: msg, Err: err}
}

func NewTimeout(msg string, err error) *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: msg, Err: err}
}

func NewRateLimit(msg string) *Error {
	return &Error{Kind: KindRateLimit, Status: http.StatusTooManyRequests, Message: msg}
}

func NewInternal(err error) *Error {
	// Internal detail is withheld from the message; the wrapped error stays
	// available for logs.
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

// StatusOf returns the HTTP status for err, defaulting to 500 for anything
// that is not a typed application error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// KindOf returns the Kind for err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
