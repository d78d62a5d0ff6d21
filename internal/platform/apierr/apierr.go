package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error at its source so callers never inspect message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindPlanLimit
	KindNotFound
	KindConflict
	KindRateLimited
	KindQuotaExceeded
	KindProviderAuth
	KindProviderUnavailable
	KindParse
	KindTimeout
	KindNotConfigured
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindPlanLimit:
		return "plan_limit"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindProviderAuth:
		return "provider_auth"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindParse:
		return "provider_parse"
	case KindTimeout:
		return "timeout"
	case KindNotConfigured:
		return "not_configured"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Status maps a kind to the HTTP status surfaced to callers.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindPlanLimit:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited, KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindProviderAuth, KindNotConfigured:
		return http.StatusServiceUnavailable
	case KindProviderUnavailable, KindParse:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Upstream reports whether the kind describes a third-party provider failure.
// Messages of upstream errors are not shown to clients.
func (k Kind) Upstream() bool {
	switch k {
	case KindQuotaExceeded, KindProviderAuth, KindProviderUnavailable, KindParse, KindTimeout:
		return true
	}
	return false
}

type Error struct {
	Status int
	Code   string
	Kind   Kind
	Err    error

	// RetryAfter is set for rate limited errors.
	RetryAfter time.Duration
	// Provider names the upstream that produced the error, if any.
	Provider string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Wrap attaches a kind to err. Status and code derive from the kind.
func Wrap(kind Kind, err error) *Error {
	return &Error{Status: kind.Status(), Code: kind.String(), Kind: kind, Err: err}
}

// Newf is Wrap over a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return Wrap(kind, fmt.Errorf(format, args...))
}

// RateLimited builds a rate limit error that carries the remaining wait.
func RateLimited(wait time.Duration, format string, args ...any) *Error {
	e := Newf(KindRateLimited, format, args...)
	e.RetryAfter = wait
	return e
}

// Upstream builds a provider error tagged with the provider name.
func Upstream(kind Kind, provider string, err error) *Error {
	e := Wrap(kind, err)
	e.Provider = provider
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
// Context deadline errors are reported as KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindUnknown {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if ae != nil && ae.Status != 0 {
		return kindForStatus(ae.Status)
	}
	return KindUnknown
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindInternal
	}
}

// StatusFor is the HTTP status for err's kind, or its explicit status.
func StatusFor(err error) int {
	if ae, ok := As(err); ok && ae.Kind == KindUnknown && ae.Status != 0 {
		return ae.Status
	}
	return KindOf(err).Status()
}

// PublicMessage is the message safe to show a client. Upstream provider
// failures get a stable text per kind; other errors keep their own message.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindQuotaExceeded:
		return "the AI provider is over capacity; try again later"
	case KindProviderAuth:
		return "the AI provider is not available right now"
	case KindProviderUnavailable:
		return "the upstream provider failed; try again"
	case KindParse:
		return "the AI provider returned an unusable response; try again"
	case KindTimeout:
		return "the request timed out; try again"
	case KindInternal, KindUnknown:
		return "internal server error"
	}
	return err.Error()
}
