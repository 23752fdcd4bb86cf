// Package normalize maps heterogeneous upstream failures onto a stable,
// finite set of client-facing statuses and messages.
package normalize

import (
	"errors"
	"net/http"
	"regexp"

	"toolhub/internal/gateway"
)

type rule struct {
	pattern *regexp.Regexp
	message string
	status  int
}

// Ordered: the first matching pattern wins.
var rules = []rule{
	{regexp.MustCompile(`(?i)API key|authentication`), "Authentication failed. Please check your API key.", http.StatusUnauthorized},
	{regexp.MustCompile(`(?i)rate limit|quota`), "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests},
	{regexp.MustCompile(`(?i)timeout|deadline`), "Request timed out. Please try again.", http.StatusGatewayTimeout},
	{regexp.MustCompile(`(?i)model.*not found|unsupported.*model`), "Model not available. Please try again later.", http.StatusBadRequest},
}

// RateLimitMessage is the fixed text for the 429 mapping, shared with
// the relay's own rate limiter.
const RateLimitMessage = "Rate limit exceeded. Please try again later."

// Result is a stable client-facing rendering of an error.
type Result struct {
	Status  int
	Message string
}

// Normalize is pure and deterministic. Tagged errors from the gateway
// boundary map directly; unstructured upstream text falls back to the
// ordered pattern rules, then to a generic 500 carrying the raw text.
func Normalize(err error) Result {
	if err == nil {
		return Result{Status: http.StatusOK}
	}

	var ve *gateway.ValidationError
	if errors.As(err, &ve) {
		return Result{Status: http.StatusBadRequest, Message: ve.Message}
	}
	var ce *gateway.ConfigurationError
	if errors.As(err, &ce) {
		return Result{Status: http.StatusUnauthorized, Message: "API key not configured. Please set AIHUBMIX_API_KEY in environment variables."}
	}

	var ue *gateway.UpstreamError
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return Result{Status: http.StatusUnauthorized, Message: rules[0].message}
		case http.StatusTooManyRequests:
			return Result{Status: http.StatusTooManyRequests, Message: RateLimitMessage}
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return Result{Status: http.StatusGatewayTimeout, Message: rules[2].message}
		}
		return matchText(ue.Message)
	}

	return matchText(err.Error())
}

func matchText(text string) Result {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return Result{Status: r.status, Message: r.message}
		}
	}
	if text == "" {
		text = "Internal server error"
	}
	return Result{Status: http.StatusInternalServerError, Message: text}
}
