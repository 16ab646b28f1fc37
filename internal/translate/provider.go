// Package translate implements the translation provider chain.
//
// Providers are tried in a fixed order: the public web endpoint under the
// canonical target code, the same endpoint under alternate language-code
// conventions, an optional chat-model provider, and an optional
// self-hosted endpoint. A result is accepted only when it is non-empty
// after trimming and differs from the trimmed input, which guards against
// providers that echo the input on quota or soft failure instead of
// returning an error.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pdf-translator/internal/types"
)

const (
	// DefaultTimeout is the HTTP client timeout for provider calls
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the number of primary-path attempts per text
	DefaultMaxRetries = 4
	// DefaultBackoffBase is the delay before the first retry.
	// Subsequent delays double: base * 2^(attempt-1).
	DefaultBackoffBase = 1500 * time.Millisecond
	// maxBackoffDelay caps the exponential backoff
	maxBackoffDelay = 30 * time.Second
)

// Provider translates a single piece of text. Implementations return
// *types.AppError so failures can be classified for retry.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Translate returns the translation of text.
	Translate(ctx context.Context, text string) (string, error)
}

// acceptable reports whether a provider result is usable: non-empty after
// trimming and different from the trimmed input.
func acceptable(input, output string) bool {
	out := strings.TrimSpace(output)
	return out != "" && out != strings.TrimSpace(input)
}

// isRetryableError determines if an error should trigger a retry on the
// same provider.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if appErr, ok := err.(*types.AppError); ok {
		switch appErr.Code {
		case types.ErrNetwork:
			return true
		case types.ErrAPIRateLimit:
			return true
		case types.ErrAPICall:
			// Retry on server errors, but not on client errors
			if strings.Contains(appErr.Details, "status 5") {
				return true
			}
			return false
		default:
			return false
		}
	}

	return false
}

// handleHTTPError creates an appropriate AppError based on the HTTP status
// code and response body.
func handleHTTPError(statusCode int, body []byte) error {
	// Try to parse an error message from the response body
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	errorDetails := ""
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		errorDetails = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API authentication failed",
			"invalid API key or unauthorized access",
			nil,
		)
	case http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(
			types.ErrAPIRateLimit,
			"API rate limit exceeded",
			errorDetails,
			nil,
		)
	case http.StatusBadRequest:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"invalid API request",
			errorDetails,
			nil,
		)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API server error",
			fmt.Sprintf("status %d: %s", statusCode, errorDetails),
			nil,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrAPICall,
			"API request failed",
			fmt.Sprintf("status %d: %s", statusCode, errorDetails),
			nil,
		)
	}
}
