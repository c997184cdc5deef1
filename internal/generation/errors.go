package generation

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the user-facing category of a generation failure.
type Kind int

const (
	// KindUnknown is any failure that does not fit another category.
	KindUnknown Kind = iota
	// KindRateLimited is a local, pre-flight rejection by the request gate.
	KindRateLimited
	// KindNotConfigured means no credential is available for the AI service.
	KindNotConfigured
	// KindQuotaExhausted is a backend-reported 429 or resource exhaustion.
	KindQuotaExhausted
	// KindNetworkFailure is a transport-level failure.
	KindNetworkFailure
	// KindMalformedResponse means an expected-structured response did not parse.
	KindMalformedResponse
)

// String returns the category name used in logs and events.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNotConfigured:
		return "not_configured"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindNetworkFailure:
		return "network_failure"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind. An *Error matches the sentinel of its Kind
// with errors.Is.
var (
	// ErrRateLimited is returned when a call arrives inside the cooldown window.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotConfigured is returned when the AI service has no credential.
	ErrNotConfigured = errors.New("AI service not configured")

	// ErrQuotaExhausted is returned when the backend reports quota exhaustion.
	ErrQuotaExhausted = errors.New("AI service quota exhausted")

	// ErrNetworkFailure is returned when the backend could not be reached.
	ErrNetworkFailure = errors.New("network failure")

	// ErrMalformedResponse is returned when the LLM response cannot be parsed or is malformed
	ErrMalformedResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the backend configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// User-facing messages for each category.
const (
	MsgNotConfigured     = "The AI service is not configured. Please contact the administrator."
	MsgQuotaExhausted    = "The AI service is busy right now. Please try again in a moment."
	MsgNetworkFailure    = "Network error. Please check your internet connection and try again."
	MsgMalformedResponse = "The AI returned an invalid format. Please try again."
	MsgContentBlocked    = "The AI declined to answer this request. Please rephrase it and try again."
)

// Error is a classified generation failure. Message is always safe to show
// to a learner; Err keeps the underlying cause for logging.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration

	Err error
}

// NewError wraps err with the given kind and no user-facing message.
// Classify fills the message in later.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// RateLimitedError builds the gate's rejection for the given remaining wait.
// The wait is rounded up to whole seconds and never reported below one.
func RateLimitedError(wait time.Duration) *Error {
	secs := int64((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Please wait %d more %s before making another request.", secs, unit),
		RetryAfter: time.Duration(secs) * time.Second,
		Err:        ErrRateLimited,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func (k Kind) sentinel() error {
	switch k {
	case KindRateLimited:
		return ErrRateLimited
	case KindNotConfigured:
		return ErrNotConfigured
	case KindQuotaExhausted:
		return ErrQuotaExhausted
	case KindNetworkFailure:
		return ErrNetworkFailure
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return nil
	}
}
