// Package llm turns prompts into typed turn payloads.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/prompt"
	"github.com/alienxp03/arena/provider"
)

// ErrMalformedOutput is returned when the backend keeps producing output that
// does not decode into the expected payload shape.
var ErrMalformedOutput = errors.New("malformed model output")

// DefaultMaxRetries is the number of extra attempts on malformed output.
const DefaultMaxRetries = 2

// Adapter is the generative capability surface used to produce turns.
type Adapter interface {
	Moderator(ctx context.Context, p prompt.Prompt) (*core.ModeratorPayload, error)
	Participant(ctx context.Context, p prompt.Prompt, side core.Role) (*core.ParticipantPayload, error)
	CrossEx(ctx context.Context, p prompt.Prompt, side core.Role) (*core.CrossExPayload, error)
	Judge(ctx context.Context, p prompt.Prompt) (*core.Decision, error)
	Wrap(ctx context.Context, p prompt.Prompt) (*core.WrapPayload, error)
	Text(ctx context.Context, p prompt.Prompt) (string, error)
}

// ProviderAdapter implements Adapter on top of a provider.Provider.
type ProviderAdapter struct {
	provider    provider.Provider
	model       string
	maxRetries  int
	temperature *float32
}

// Option configures a ProviderAdapter.
type Option func(*ProviderAdapter)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(a *ProviderAdapter) { a.model = model }
}

// WithMaxRetries sets how many times malformed output is retried.
func WithMaxRetries(n int) Option {
	return func(a *ProviderAdapter) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// WithTemperature sets the sampling temperature for structured calls.
func WithTemperature(t float32) Option {
	return func(a *ProviderAdapter) { a.temperature = &t }
}

// NewProviderAdapter wraps p.
func NewProviderAdapter(p provider.Provider, opts ...Option) *ProviderAdapter {
	a := &ProviderAdapter{provider: p, maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ProviderAdapter) Moderator(ctx context.Context, p prompt.Prompt) (*core.ModeratorPayload, error) {
	out, err := a.structured(ctx, "moderator", p, func() core.Payload { return &core.ModeratorPayload{} })
	if err != nil {
		return nil, err
	}
	return out.(*core.ModeratorPayload), nil
}

func (a *ProviderAdapter) Participant(ctx context.Context, p prompt.Prompt, side core.Role) (*core.ParticipantPayload, error) {
	out, err := a.structured(ctx, "participant "+string(side), p, func() core.Payload { return &core.ParticipantPayload{} })
	if err != nil {
		return nil, err
	}
	return out.(*core.ParticipantPayload), nil
}

func (a *ProviderAdapter) CrossEx(ctx context.Context, p prompt.Prompt, side core.Role) (*core.CrossExPayload, error) {
	out, err := a.structured(ctx, "crossex "+string(side), p, func() core.Payload { return &core.CrossExPayload{} })
	if err != nil {
		return nil, err
	}
	return out.(*core.CrossExPayload), nil
}

func (a *ProviderAdapter) Judge(ctx context.Context, p prompt.Prompt) (*core.Decision, error) {
	out, err := a.structured(ctx, "judge", p, func() core.Payload { return &core.Decision{} })
	if err != nil {
		return nil, err
	}
	return out.(*core.Decision), nil
}

func (a *ProviderAdapter) Wrap(ctx context.Context, p prompt.Prompt) (*core.WrapPayload, error) {
	out, err := a.structured(ctx, "discussion wrap", p, func() core.Payload { return &core.WrapPayload{} })
	if err != nil {
		return nil, err
	}
	return out.(*core.WrapPayload), nil
}

// Text returns the raw completion.
func (a *ProviderAdapter) Text(ctx context.Context, p prompt.Prompt) (string, error) {
	resp, err := a.provider.Execute(ctx, &provider.Request{System: p.System, Prompt: p.User, Model: a.model})
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// structured requests JSON output and decodes it into a fresh payload,
// retrying when the output does not decode or validate. Provider errors are
// returned immediately; the provider applies its own transient retry.
func (a *ProviderAdapter) structured(ctx context.Context, label string, p prompt.Prompt, newPayload func() core.Payload) (core.Payload, error) {
	req := &provider.Request{
		System:      p.System,
		Prompt:      p.User,
		Model:       a.model,
		JSON:        true,
		Temperature: a.temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		resp, err := a.provider.Execute(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s turn: %w", label, err)
		}

		out := newPayload()
		if err := Decode(resp.Content, out); err != nil {
			lastErr = err
			slog.Warn("Malformed model output",
				"label", label,
				"attempt", attempt+1,
				"max_attempts", a.maxRetries+1,
				"error", err,
			)
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrMalformedOutput, label, a.maxRetries+1, lastErr)
}

// Decode strips markdown code fences, unmarshals content into out and
// validates its shape.
func Decode(content string, out core.Payload) error {
	cleaned := StripFences(content)
	if cleaned == "" {
		return errors.New("empty output")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// StripFences removes a surrounding ```json ... ``` block, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
