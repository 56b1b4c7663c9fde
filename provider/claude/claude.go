// Package claude runs the Claude Code CLI in print mode as a provider.
package claude

import (
	"context"
	"time"

	"github.com/alienxp03/arena/provider"
)

// Provider implements provider.Provider for the claude CLI.
type Provider struct {
	provider.BaseProvider
}

// New creates a Claude provider. The command defaults to "claude".
func New(cfg provider.Config) *Provider {
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	if cfg.Name == "" {
		cfg.Name = "claude"
	}
	return &Provider{BaseProvider: provider.NewBaseProvider(cfg)}
}

// Execute runs one non-interactive prompt and parses the JSON result.
func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	args := []string{"-p", "--output-format", "json"}
	model := p.ModelFor(req)
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, req.Args...)
	args = append(args, req.FullPrompt())

	start := time.Now()
	out, err := p.ExecuteCommand(ctx, args)
	if err != nil {
		return nil, err
	}

	resp := ParseJSON(out, time.Since(start))
	resp.Provider = p.Name()
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

// HealthCheck performs a quick health check using the provider execution path.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}
