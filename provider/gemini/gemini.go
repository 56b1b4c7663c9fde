// Package gemini calls the Gemini API through google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/alienxp03/arena/provider"
)

// DefaultModel is used when neither the config nor the request names one.
const DefaultModel = "gemini-2.5-flash"

// Provider implements provider.Provider for the Gemini API.
type Provider struct {
	provider.BaseProvider
	apiKey  string
	baseURL string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// New creates a Gemini provider. The client is created on first use.
func New(cfg provider.Config) *Provider {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	return &Provider{
		BaseProvider: provider.NewBaseProvider(cfg),
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
	}
}

// Available reports whether an API key is configured.
func (p *Provider) Available() bool {
	return p.apiKey != ""
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		if p.apiKey == "" {
			p.initErr = &provider.APIError{Provider: p.Name(), Message: "API key is required"}
			return
		}
		cc := &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if p.baseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
		}
		client, err := genai.NewClient(ctx, cc)
		if err != nil {
			p.initErr = fmt.Errorf("failed to create GenAI client: %w", err)
			return
		}
		p.client = client
	})
	return p.client, p.initErr
}

// Execute sends one generate-content request, retrying transient failures.
func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := p.ModelFor(req)
	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	var result *genai.GenerateContentResponse
	start := time.Now()
	text, err := p.Retry(ctx, func(ctx context.Context) (string, error) {
		r, err := client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
		if err != nil {
			return "", &provider.APIError{Provider: p.Name(), Message: "generate content failed", Err: err}
		}
		result = r
		return r.Text(), nil
	})
	if err != nil {
		return nil, err
	}

	resp := &provider.Response{
		Content:  text,
		Model:    model,
		Provider: p.Name(),
		Metadata: &provider.Metadata{Duration: time.Since(start)},
		Raw:      text,
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if u := result.UsageMetadata; u != nil {
		resp.Metadata.InputTokens = int(u.PromptTokenCount)
		resp.Metadata.OutputTokens = int(u.CandidatesTokenCount)
		resp.Metadata.TotalTokens = int(u.TotalTokenCount)
	}
	if len(result.Candidates) > 0 {
		resp.Metadata.StopReason = string(result.Candidates[0].FinishReason)
	}
	return resp, nil
}

// HealthCheck performs a quick health check using the provider execution path.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}
