package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/minechat/llmbridge/internal/utils"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      ErrorKind
		wantRetryable bool
	}{
		{
			name:          "unauthorized status",
			err:           &utils.HTTPError{StatusCode: 401, Body: "bad key"},
			wantKind:      ErrorKindAuth,
			wantRetryable: false,
		},
		{
			name:          "forbidden status",
			err:           &utils.HTTPError{StatusCode: 403, Body: "nope"},
			wantKind:      ErrorKindAuth,
			wantRetryable: false,
		},
		{
			name:          "rate limited",
			err:           &utils.HTTPError{StatusCode: 429, Body: "slow down"},
			wantKind:      ErrorKindRateLimit,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           &utils.HTTPError{StatusCode: 503, Body: "overloaded"},
			wantKind:      ErrorKindUnavailable,
			wantRetryable: true,
		},
		{
			name:          "bad request",
			err:           &utils.HTTPError{StatusCode: 400, Body: "missing field"},
			wantKind:      ErrorKindValidation,
			wantRetryable: false,
		},
		{
			name:          "auth phrasing under generic status",
			err:           &utils.HTTPError{StatusCode: 400, Body: `{"error": "API key not valid. Please pass a valid API key."}`},
			wantKind:      ErrorKindAuth,
			wantRetryable: false,
		},
		{
			name:          "deadline exceeded",
			err:           fmt.Errorf("call failed: %w", context.DeadlineExceeded),
			wantKind:      ErrorKindTimeout,
			wantRetryable: true,
		},
		{
			name:          "unclassified transport error",
			err:           errors.New("connection reset by peer"),
			wantKind:      ErrorKindUnknown,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(ProviderOpenAI, tt.err)
			if classified.Kind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, classified.Kind)
			}
			if classified.Retryable() != tt.wantRetryable {
				t.Errorf("expected retryable=%v for kind %q", tt.wantRetryable, classified.Kind)
			}
			if classified.Provider != ProviderOpenAI {
				t.Errorf("expected provider attribution, got %q", classified.Provider)
			}
		})
	}
}

func TestClassifyError_PassesThroughProviderError(t *testing.T) {
	original := &ProviderError{Kind: ErrorKindAuth, Message: "key expired"}

	classified := ClassifyError(ProviderAnthropic, fmt.Errorf("wrapped: %w", original))
	if classified.Kind != ErrorKindAuth {
		t.Errorf("expected auth kind preserved, got %q", classified.Kind)
	}
	if classified.Provider != ProviderAnthropic {
		t.Errorf("expected provider filled in, got %q", classified.Provider)
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if ClassifyError(ProviderOpenAI, nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestProviderErrorUserMessage(t *testing.T) {
	auth := &ProviderError{Provider: ProviderOpenAI, Kind: ErrorKindAuth}
	if !strings.Contains(auth.UserMessage(), "check your key") {
		t.Errorf("unexpected auth message: %q", auth.UserMessage())
	}

	validation := NewValidationError("model is required")
	if validation.UserMessage() != "model is required" {
		t.Errorf("unexpected validation message: %q", validation.UserMessage())
	}
}

func TestProviderErrorError(t *testing.T) {
	err := &ProviderError{Provider: ProviderGoogle, Kind: ErrorKindRateLimit, StatusCode: 429, Message: "quota"}

	got := err.Error()
	for _, want := range []string{"google", "rate_limit", "429", "quota"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}
