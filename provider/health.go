package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// HealthCheckPrompt is the prompt sent to providers for health checks.
	HealthCheckPrompt = "1+1? One digit answer only"

	healthCheckTimeout = 30 * time.Second
)

// HealthCheckWithExecute probes a provider through its own execute function.
// A healthy provider answers the health prompt with "2".
func HealthCheckWithExecute(ctx context.Context, model string, exec func(context.Context, *Request) (*Response, error)) HealthStatus {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := HealthStatus{CheckedAt: start}
	resp, err := exec(ctx, &Request{Prompt: HealthCheckPrompt, Model: model})
	status.ResponseTime = time.Since(start)

	switch {
	case err != nil:
		status.Error = err.Error()
	case resp == nil:
		status.Error = "empty response"
	default:
		if err := validateHealthResponse(resp.Content); err != nil {
			status.Error = err.Error()
		} else {
			status.Available = true
		}
	}
	return status
}

func validateHealthResponse(content string) error {
	trimmed := strings.Trim(strings.TrimSpace(content), ".")
	if trimmed == "2" {
		return nil
	}
	if trimmed == "" {
		return fmt.Errorf("unexpected response: empty")
	}
	if len(trimmed) > 120 {
		trimmed = trimmed[:120] + "..."
	}
	return fmt.Errorf("unexpected response: %q", trimmed)
}
