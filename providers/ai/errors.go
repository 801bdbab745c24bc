package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minechat/llmbridge/internal/utils"
)

// ErrorKind classifies a provider failure. The kind, not the provider, decides
// retryability: auth and validation errors are terminal, everything else may
// be retried by the orchestrator.
type ErrorKind string

const (
	// ErrorKindAuth is an invalid or expired credential. Never retried.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindRateLimit is a provider-side throttle (429). Retryable with backoff.
	ErrorKindRateLimit ErrorKind = "rate_limit"
	// ErrorKindUnavailable is a 5xx or connection-level failure. Retryable.
	ErrorKindUnavailable ErrorKind = "unavailable"
	// ErrorKindTimeout is a per-call deadline expiry. Retryable, bounded by max attempts.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindValidation is malformed caller input detected before any network
	// call. Never retried.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindUnknown is any failure that could not be classified. Retried,
	// since transient transport errors often surface unclassified.
	ErrorKindUnknown ErrorKind = "unknown"
)

// ProviderError is the typed error raised by provider clients and normalizers.
// The orchestrator is the only layer that acts on Retryable; everything below
// it just classifies and propagates.
type ProviderError struct {
	Provider   ProviderID
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(string(e.Provider))
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator may retry this failure.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrorKindAuth, ErrorKindValidation:
		return false
	default:
		return true
	}
}

// UserMessage returns a caller-facing description. Auth errors get the
// "check your key" phrasing the chat client expects.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case ErrorKindAuth:
		return fmt.Sprintf("%s API key is invalid or expired, please check your key", e.Provider)
	case ErrorKindRateLimit:
		return fmt.Sprintf("%s is rate limiting requests, please retry later", e.Provider)
	case ErrorKindTimeout:
		return fmt.Sprintf("%s call timed out, please retry later", e.Provider)
	case ErrorKindUnavailable:
		return fmt.Sprintf("%s is temporarily unavailable, please retry later", e.Provider)
	case ErrorKindValidation:
		return e.Message
	default:
		return e.Error()
	}
}

// NewValidationError builds a validation ProviderError with no provider
// attribution (validation happens before dispatch).
func NewValidationError(message string) *ProviderError {
	return &ProviderError{Kind: ErrorKindValidation, Message: message}
}

// authTextMarkers are error-body substrings that indicate a credential problem
// even when the status code alone is ambiguous. Providers phrase this
// differently; all phrasings must short-circuit the retry loop.
var authTextMarkers = []string{
	"invalid api key",
	"invalid x-api-key",
	"incorrect api key",
	"authentication",
	"unauthorized",
	"permission denied",
	"api key not valid",
}

// ClassifyError converts any error from the transport layer into a
// *ProviderError with a kind. Existing ProviderErrors pass through with the
// provider filled in; HTTP status errors map via their status code plus a text
// scan for auth phrasing; context deadline errors become timeouts.
func ClassifyError(provider ProviderID, err error) *ProviderError {
	if err == nil {
		return nil
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.Provider == "" {
			providerErr.Provider = provider
		}
		return providerErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Kind: ErrorKindTimeout, Message: "request deadline exceeded", Err: err}
	}

	var httpErr *utils.HTTPError
	if errors.As(err, &httpErr) {
		return classifyHTTP(provider, httpErr, err)
	}

	return &ProviderError{Provider: provider, Kind: ErrorKindUnknown, Message: err.Error(), Err: err}
}

func classifyHTTP(provider ProviderID, httpErr *utils.HTTPError, cause error) *ProviderError {
	kind := ErrorKindUnknown

	switch {
	case httpErr.StatusCode == 401 || httpErr.StatusCode == 403:
		kind = ErrorKindAuth
	case httpErr.StatusCode == 429:
		kind = ErrorKindRateLimit
	case httpErr.StatusCode >= 500:
		kind = ErrorKindUnavailable
	case httpErr.StatusCode == 400:
		kind = ErrorKindValidation
	}

	// Some providers return auth failures under generic status codes with an
	// explanatory body; the text scan catches those.
	if kind != ErrorKindAuth {
		lowered := strings.ToLower(httpErr.Body)
		for _, marker := range authTextMarkers {
			if strings.Contains(lowered, marker) {
				kind = ErrorKindAuth
				break
			}
		}
	}

	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: httpErr.StatusCode,
		Message:    utils.TruncateString(httpErr.Body, 300),
		Err:        cause,
	}
}
