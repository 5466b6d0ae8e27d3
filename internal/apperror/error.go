// Package apperror defines the error kinds surfaced by the mesh services and their mapping to
// HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation   Kind = "ValidationError"
	KindConflict     Kind = "ConflictError"
	KindNotFound     Kind = "NotFoundError"
	KindForbidden    Kind = "ForbiddenError"
	KindInvalidToken Kind = "InvalidTokenError"
	KindMissingToken Kind = "MissingTokenError"
	KindRateLimited  Kind = "RateLimitedError"
	KindUpstream     Kind = "UpstreamError"
	KindInternal     Kind = "InternalError"
)

// Error is a domain failure raised at the point of detection and rendered unchanged by the
// HTTP boundary.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindConflict}) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus returns the status code for the error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidToken, KindMissingToken:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RetryAfterSeconds rounds the retry hint up to whole seconds, never below one.
func (e *Error) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func NewValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewInvalidToken(err error) *Error {
	return &Error{Kind: KindInvalidToken, Message: "invalid access token", Err: err}
}

func NewMissingToken() *Error {
	return &Error{Kind: KindMissingToken, Message: "authentication required"}
}

func NewRateLimited(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: "too many requests", RetryAfter: retryAfter}
}

func NewInternal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// NewUpstream reports that a proxied service could not be reached.
func NewUpstream(err error) *Error {
	return &Error{Kind: KindUpstream, Message: "upstream service unavailable", Err: err}
}
