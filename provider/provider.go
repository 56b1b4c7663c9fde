// Package provider wraps text-generation backends behind one interface.
//
// Backends are either command-line tools (Claude, any generic CLI) executed
// through BaseProvider, or HTTP APIs (OpenAI-compatible chat completions,
// Gemini through google.golang.org/genai). All of them share the retry policy
// in Retry.
package provider

import (
	"context"
	"time"
)

// Provider defines the interface for generation backends.
type Provider interface {
	// Name returns the provider's unique identifier (e.g., "claude", "gemini").
	Name() string

	// Available reports whether the backend can be called (CLI installed,
	// API key configured).
	Available() bool

	// Execute sends a request to the provider and returns a structured response.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// HealthChecker is implemented by providers that can probe themselves.
type HealthChecker interface {
	HealthCheck(ctx context.Context) HealthStatus
}

// Request represents a generation request.
type Request struct {
	// System is the system instruction. CLI backends prepend it to Prompt.
	System string

	// Prompt is the user input.
	Prompt string

	// Model is the specific model to use.
	// If empty, the provider's default model will be used.
	Model string

	// JSON asks the backend for a JSON object response where supported.
	JSON bool

	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float32

	// Args are additional command-line arguments for CLI providers.
	Args []string
}

// FullPrompt joins the system instruction and prompt for backends that take
// a single text input.
func (r *Request) FullPrompt() string {
	if r.System == "" {
		return r.Prompt
	}
	return r.System + "\n\n" + r.Prompt
}

// Response represents a provider's response with metadata.
type Response struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Model is the model that was used for this response.
	Model string `json:"model,omitempty"`

	// Provider is the name of the provider that generated this response.
	Provider string `json:"provider,omitempty"`

	// Metadata contains usage statistics and additional information.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Raw is the unprocessed output (for debugging).
	Raw string `json:"-"`
}

// Metadata contains usage statistics and additional response information.
type Metadata struct {
	InputTokens  int           `json:"input_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	TotalTokens  int           `json:"total_tokens,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	StopReason   string        `json:"stop_reason,omitempty"`
}

// HealthStatus is the result of probing a provider.
type HealthStatus struct {
	Available    bool          `json:"available"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// Config holds configuration for creating a provider.
type Config struct {
	// Name is the unique identifier for this provider.
	Name string

	// DisplayName is a human-friendly name. If empty, Name is used.
	DisplayName string

	// Command is the CLI executable name. Unused by HTTP providers.
	Command string

	// Args are default arguments to pass to the CLI command.
	Args []string

	// DefaultModel is the model to use when Request.Model is empty.
	DefaultModel string

	// APIKey authenticates HTTP providers.
	APIKey string

	// BaseURL overrides the API endpoint of HTTP providers.
	BaseURL string

	// Timeout is the maximum duration for a single attempt.
	// Default: 5 minutes.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// transient failures. Negative means the default of 2.
	MaxRetries int
}
