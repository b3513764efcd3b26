package llm

import (
	"fmt"
	"net/http"
)

// APIError represents an error returned by the generation backend.
type APIError struct {
	// Provider is the name of the generation backend (e.g., "ollama").
	Provider string
	// StatusCode is the HTTP status code returned by the backend.
	// Zero means no HTTP response was received (transport error, timeout).
	StatusCode int
	// Message is the error message from the backend.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient returns true if the error may succeed on retry. This
// includes rate limiting (429), server errors (5xx), and network errors
// (StatusCode 0 indicates no HTTP response was received).
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}
