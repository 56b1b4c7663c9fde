package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CLIError represents an error from a CLI provider.
type CLIError struct {
	Provider string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider error: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// APIError represents a failed call to an HTTP provider.
type APIError struct {
	Provider   string
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s api error: %s: %v", e.Provider, msg, e.Err)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, msg)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetriable reports whether an error is worth retrying.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode >= 500:
			return true
		case apiErr.StatusCode == 0:
			return transientMessage(apiErr.Message) || (apiErr.Err != nil && transientMessage(apiErr.Err.Error()))
		}
		return false
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return transientMessage(cliErr.Message)
	}
	return false
}

func transientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "temporary") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "resource_exhausted")
}
