package generation

import (
	"encoding/json"
	"errors"
	"net"
	"strings"
)

var (
	rateLimitMarkers     = []string{"please wait", "before making another request"}
	notConfiguredMarkers = []string{"api_key", "api key", "apikey", "not configured"}
	quotaMarkers         = []string{"429", "resource_exhausted", "resource exhausted", "quota", "too many requests"}
	networkMarkers       = []string{
		"failed to fetch", "network error", "networkerror", "fetch failed",
		"connection refused", "connection reset", "no such host",
	}
)

// Classify converts any failure into a user-facing *Error. The checks run in
// a fixed order:
//
//  1. rate-limit wait text is passed through unchanged
//  2. missing credential
//  3. HTTP 429, resource exhaustion or quota wording
//  4. network-level failure
//  5. JSON syntax errors from decoding a structured response
//  6. anything else gets fallback
//
// An *Error that already carries a known Kind or a message keeps it; message
// sniffing is only needed for untyped errors thrown by the concrete backend
// library.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) && (typed.Kind != KindUnknown || typed.Message != "") {
		return withMessage(typed, err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case containsAll(lower, rateLimitMarkers):
		return &Error{Kind: KindRateLimited, Message: msg, Err: err}
	case containsAny(lower, notConfiguredMarkers):
		return &Error{Kind: KindNotConfigured, Message: MsgNotConfigured, Err: err}
	case containsAny(lower, quotaMarkers):
		return &Error{Kind: KindQuotaExhausted, Message: MsgQuotaExhausted, Err: err}
	case isNetworkError(err) || containsAny(lower, networkMarkers):
		return &Error{Kind: KindNetworkFailure, Message: MsgNetworkFailure, Err: err}
	case isJSONError(err):
		return &Error{Kind: KindMalformedResponse, Message: MsgMalformedResponse, Err: err}
	default:
		return &Error{Kind: KindUnknown, Message: fallback, Err: err}
	}
}

// Message is Classify reduced to the string a UI displays.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	return Classify(err, fallback).Message
}

func withMessage(typed *Error, cause error) *Error {
	out := *typed
	if out.Err == nil {
		out.Err = cause
	}
	if out.Message != "" {
		return &out
	}
	switch out.Kind {
	case KindNotConfigured:
		out.Message = MsgNotConfigured
	case KindQuotaExhausted:
		out.Message = MsgQuotaExhausted
	case KindNetworkFailure:
		out.Message = MsgNetworkFailure
	case KindMalformedResponse:
		out.Message = MsgMalformedResponse
	case KindRateLimited:
		return RateLimitedError(out.RetryAfter)
	}
	return &out
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isJSONError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func containsAll(s string, markers []string) bool {
	for _, m := range markers {
		if !strings.Contains(s, m) {
			return false
		}
	}
	return true
}
