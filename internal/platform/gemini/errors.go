package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/generation"
	"google.golang.org/genai"
)

// mapError translates a genai client failure into a *generation.Error.
// Cancellation by the caller is returned unchanged so the orchestration
// layer can tell it apart from a failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if apiErr, ok := asAPIError(err); ok {
		return mapAPIError(apiErr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return generation.NewError(generation.KindNetworkFailure,
			fmt.Errorf("%w: %w", generation.ErrNetworkFailure, err))
	}

	// Leave sniffing of anything else to generation.Classify.
	return err
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func mapAPIError(apiErr genai.APIError, cause error) error {
	status := strings.ToUpper(apiErr.Status)
	msg := strings.ToLower(apiErr.Message)

	switch {
	case apiErr.Code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return generation.NewError(generation.KindQuotaExhausted,
			fmt.Errorf("%w: %w", generation.ErrQuotaExhausted, cause))
	case apiErr.Code == http.StatusUnauthorized ||
		apiErr.Code == http.StatusForbidden ||
		status == "UNAUTHENTICATED" ||
		status == "PERMISSION_DENIED" ||
		strings.Contains(msg, "api key"):
		return generation.NewError(generation.KindNotConfigured,
			fmt.Errorf("%w: %w", generation.ErrNotConfigured, cause))
	case apiErr.Code == http.StatusServiceUnavailable || status == "UNAVAILABLE":
		return generation.NewError(generation.KindQuotaExhausted,
			fmt.Errorf("%w: %w", generation.ErrQuotaExhausted, cause))
	default:
		return cause
	}
}
