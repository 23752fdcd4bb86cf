package normalize

import (
	"errors"
	"net/http"
	"testing"

	"toolhub/internal/gateway"
)

func TestNormalizePatternRules(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "auth text",
			err:        errors.New("invalid API key provided"),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Authentication failed. Please check your API key.",
		},
		{
			name:       "rate limit text",
			err:        errors.New("upstream said: rate limit reached for model"),
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "Rate limit exceeded. Please try again later.",
		},
		{
			name:       "quota text",
			err:        errors.New("monthly quota exhausted"),
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "Rate limit exceeded. Please try again later.",
		},
		{
			name:       "timeout text",
			err:        errors.New("context deadline exceeded"),
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    "Request timed out. Please try again.",
		},
		{
			name:       "model text",
			err:        errors.New("model gpt-99 not found"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Model not available. Please try again later.",
		},
		{
			name:       "no rule matches",
			err:        errors.New("something odd happened"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "something odd happened",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.err)
			if got.Status != tc.wantStatus {
				t.Fatalf("status: got %d, want %d", got.Status, tc.wantStatus)
			}
			if got.Message != tc.wantMsg {
				t.Fatalf("message: got %q, want %q", got.Message, tc.wantMsg)
			}
		})
	}
}

func TestNormalizeFirstMatchWins(t *testing.T) {
	// Text matching both the auth and rate-limit rules takes the auth
	// mapping because rule order is significant.
	got := Normalize(errors.New("API key over rate limit"))
	if got.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for first matching rule, got %d", got.Status)
	}
}

func TestNormalizeTaggedErrors(t *testing.T) {
	got := Normalize(&gateway.ValidationError{Message: "invalid message role at index 0: robot"})
	if got.Status != http.StatusBadRequest || got.Message != "invalid message role at index 0: robot" {
		t.Fatalf("unexpected validation mapping %+v", got)
	}

	got = Normalize(&gateway.ConfigurationError{Message: "API key not configured"})
	if got.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected configuration mapping %+v", got)
	}

	// Structured status beats pattern rules: a 429 with unhelpful text
	// still maps to the fixed rate-limit message.
	got = Normalize(&gateway.UpstreamError{StatusCode: http.StatusTooManyRequests, Message: "nope"})
	if got.Status != http.StatusTooManyRequests || got.Message != RateLimitMessage {
		t.Fatalf("unexpected upstream 429 mapping %+v", got)
	}

	// Unstructured upstream errors fall back to the rules.
	got = Normalize(&gateway.UpstreamError{StatusCode: http.StatusBadGateway, Message: "provider timeout while connecting"})
	if got.Status != http.StatusGatewayTimeout {
		t.Fatalf("unexpected fallback mapping %+v", got)
	}
}
