// Package generic runs any CLI that takes a prompt as its last argument and
// prints the completion to stdout.
package generic

import (
	"context"
	"time"

	"github.com/alienxp03/arena/provider"
)

// Provider is a configurable provider for custom CLI tools.
type Provider struct {
	provider.BaseProvider
}

// New creates a generic provider. A configured model is passed with --model.
func New(cfg provider.Config) *Provider {
	return &Provider{BaseProvider: provider.NewBaseProvider(cfg)}
}

// Execute runs the command and returns its stdout verbatim.
func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	var args []string
	model := p.ModelFor(req)
	if model != "" {
		args = append(args, "--model", model)
	}
	args = append(args, req.Args...)
	args = append(args, req.FullPrompt())

	start := time.Now()
	content, err := p.ExecuteCommand(ctx, args)
	if err != nil {
		return nil, err
	}

	return &provider.Response{
		Content:  content,
		Model:    model,
		Provider: p.Name(),
		Metadata: &provider.Metadata{Duration: time.Since(start)},
		Raw:      content,
	}, nil
}

// HealthCheck performs a quick health check using the provider execution path.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthCheckWithExecute(ctx, p.DefaultModel(), p.Execute)
}
