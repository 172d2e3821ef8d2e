// Package apperr is the typed error taxonomy every component returns
// instead of raising exceptions. httpapi maps these kinds to
// the HTTP status codes and error envelope.
package apperr

import "errors"

// Kind is one of the enumerated error kinds.
type Kind string

const (
	InvalidArgument   Kind = "INVALID_ARGUMENT"
	Unauthorized      Kind = "UNAUTHORIZED"
	Forbidden         Kind = "FORBIDDEN"
	NotFound          Kind = "NOT_FOUND"
	Conflict          Kind = "CONFLICT"
	QuotaDenied       Kind = "QUOTA_DENIED"
	RateLimited       Kind = "RATE_LIMITED"
	UpstreamTimeout   Kind = "UPSTREAM_TIMEOUT"
	PaymentVerifyFail Kind = "PAYMENT_VERIFY_FAILED"
	Internal          Kind = "INTERNAL"

	// Codes for the error envelope, mapped onto the kinds above by
	// httpapi's error writer.
	CodeAuthInvalid  = "AUTH_INVALID"
	CodeCodeInvalid  = "CODE_INVALID"
	CodeRateLimit    = "RATE_LIMIT"
	CodeQuotaDenied  = "QUOTA_DENIED"
	CodeStateInvalid = "STATE_INVALID"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUpstream     = "UPSTREAM_TIMEOUT"
)

// Error is the typed failure value every component-level operation returns.
type Error struct {
	Kind       Kind
	Code       string // the error envelope code; defaults are derived from Kind if empty
	Message    string
	RetryAfter int // seconds, only meaningful for RateLimited/QuotaDenied
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// As unwraps err into an *Error if possible.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Sentinel constructors used pervasively across components; named after
// the operation-level failures each one represents.
func AuthConflict(msg string) *Error    { return Newf(Conflict, CodeAuthInvalid, msg) }
func CodeInvalid(msg string) *Error     { return Newf(InvalidArgument, CodeCodeInvalid, msg) }
func PolicyViolation(msg string) *Error { return New(InvalidArgument, msg) }
func TokenInvalid(msg string) *Error    { return Newf(Unauthorized, CodeAuthInvalid, msg) }
func StateInvalid(msg string) *Error    { return Newf(Conflict, CodeStateInvalid, msg) }
func Duplicate(msg string) *Error       { return Newf(Conflict, CodeConflict, msg) }
func DeniedQuota(msg string) *Error     { return Newf(QuotaDenied, CodeQuotaDenied, msg) }
func RateLimitedf(retryAfter int) *Error {
	return &Error{Kind: RateLimited, Code: CodeRateLimit, Message: "rate limit exceeded", RetryAfter: retryAfter}
}
