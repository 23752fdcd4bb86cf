package gateway

import "fmt"

// ValidationError marks a malformed inbound request. It is terminal at
// the relay boundary and never reaches the upstream gateway.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigurationError marks a missing or unusable API key. Surfaced as a
// 401 on first use rather than a startup crash.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// UpstreamError carries the status and message of a failed gateway call.
// StatusCode is 0 for pure network failures.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}
