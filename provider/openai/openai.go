// Package openai calls any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, local gateways).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alienxp03/arena/provider"
)

// DefaultBaseURL is used when the config does not set one.
const DefaultBaseURL = "https://api.openai.com/v1"

const maxResponseSize = 10 * 1024 * 1024

// Provider implements provider.Provider over HTTP.
type Provider struct {
	provider.BaseProvider
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates an OpenAI-compatible provider.
func New(cfg provider.Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		BaseProvider: provider.NewBaseProvider(cfg),
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		client:       &http.Client{},
	}
}

// Available reports whether an API key is configured.
func (p *Provider) Available() bool {
	return p.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Execute sends one chat completion request, retrying transient failures.
func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := p.ModelFor(req)
	body := chatRequest{Model: model, Temperature: req.Temperature}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	start := time.Now()
	raw, err := p.Retry(ctx, func(ctx context.Context) (string, error) {
		return p.post(ctx, payload)
	})
	if err != nil {
		return nil, err
	}

	resp, err := ParseJSON(raw, time.Since(start))
	if err != nil {
		return nil, &provider.APIError{Provider: p.Name(), Message: "invalid response body", Err: err}
	}
	resp.Provider = p.Name()
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

func (p *Provider) post(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &provider.APIError{Provider: p.Name(), Message: "request failed", Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", &provider.APIError{Provider: p.Name(), StatusCode: httpResp.StatusCode, Message: "failed to read body", Err: err}
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", &provider.APIError{Provider: p.Name(), StatusCode: httpResp.StatusCode, Message: errorMessage(data)}
	}
	return string(data), nil
}

// HealthCheck performs a quick health check using the provider execution path.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}
