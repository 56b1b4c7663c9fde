package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strings"
	"time"
)

const (
	// MaxOutputSize is the maximum size of CLI output (10MB).
	MaxOutputSize = 10 * 1024 * 1024

	// DefaultTimeout is the default timeout for a single attempt.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2
)

// BaseProvider provides the functionality shared by every backend: naming,
// default model, per-attempt timeout and the retry loop. CLI providers also
// use ExecuteCommand.
type BaseProvider struct {
	name         string
	displayName  string
	command      string
	args         []string
	defaultModel string
	timeout      time.Duration
	maxRetries   int
	backoff      func(attempt int) time.Duration
}

// NewBaseProvider creates a new base provider from configuration.
func NewBaseProvider(cfg Config) BaseProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = cfg.Name
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	return BaseProvider{
		name:         cfg.Name,
		displayName:  displayName,
		command:      cfg.Command,
		args:         cfg.Args,
		defaultModel: cfg.DefaultModel,
		timeout:      timeout,
		maxRetries:   maxRetries,
		backoff:      exponentialBackoff,
	}
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// Name returns the provider identifier.
func (p *BaseProvider) Name() string {
	return p.name
}

// DisplayName returns the human-friendly name.
func (p *BaseProvider) DisplayName() string {
	return p.displayName
}

// DefaultModel returns the default model.
func (p *BaseProvider) DefaultModel() string {
	return p.defaultModel
}

// ModelFor returns the request model or the default.
func (p *BaseProvider) ModelFor(req *Request) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

// Timeout returns the configured per-attempt timeout.
func (p *BaseProvider) Timeout() time.Duration {
	return p.timeout
}

// SetBackoff replaces the delay applied before each retry.
func (p *BaseProvider) SetBackoff(fn func(attempt int) time.Duration) {
	p.backoff = fn
}

// Available checks if the CLI tool is installed and accessible.
func (p *BaseProvider) Available() bool {
	if p.command == "" {
		return false
	}
	_, err := exec.LookPath(p.command)
	return err == nil
}

// ValidateExecutable checks if the CLI is available before execution.
func (p *BaseProvider) ValidateExecutable() error {
	if _, err := exec.LookPath(p.command); err != nil {
		return &CLIError{
			Provider: p.name,
			Message:  fmt.Sprintf("executable '%s' not found in PATH", p.command),
			Err:      err,
		}
	}
	return nil
}

// limitedWriter wraps an io.Writer and limits total bytes written.
type limitedWriter struct {
	w       io.Writer
	n       int64
	limit   int64
	limited bool
}

func newLimitedWriter(w io.Writer, limit int64) *limitedWriter {
	return &limitedWriter{w: w, limit: limit}
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n >= l.limit {
		l.limited = true
		return len(p), nil
	}

	written := len(p)
	if remaining := l.limit - l.n; int64(len(p)) > remaining {
		p = p[:remaining]
		l.limited = true
	}

	n, err := l.w.Write(p)
	l.n += int64(n)
	if err != nil {
		return n, err
	}
	return written, nil
}

// Retry runs fn, retrying transient failures with backoff. Each attempt gets
// its own timeout.
func (p *BaseProvider) Retry(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.backoff(attempt)
			slog.Info("Retrying request after backoff",
				"provider", p.name,
				"attempt", attempt+1,
				"max_attempts", p.maxRetries+1,
				"backoff", backoff,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		result, err := fn(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 0 {
				slog.Info("Request succeeded after retry", "provider", p.name, "attempt", attempt+1)
			}
			return result, nil
		}

		if ctx.Err() != nil || !IsRetriable(err) {
			slog.Debug("Error is not retriable, failing immediately", "provider", p.name, "error", err)
			return "", err
		}

		if attempt == p.maxRetries {
			slog.Error("Request failed after all retries", "provider", p.name, "attempts", attempt+1, "error", err)
			return "", fmt.Errorf("failed after %d attempts: %w", attempt+1, err)
		}

		slog.Warn("Request failed, will retry",
			"provider", p.name,
			"attempt", attempt+1,
			"max_attempts", p.maxRetries+1,
			"error", err,
		)
	}

	return "", errors.New("unexpected retry loop exit")
}

// ExecuteCommand runs the CLI with the default args followed by args, with
// retry for transient failures.
func (p *BaseProvider) ExecuteCommand(ctx context.Context, args []string) (string, error) {
	if err := p.ValidateExecutable(); err != nil {
		return "", err
	}
	return p.Retry(ctx, func(ctx context.Context) (string, error) {
		return p.executeOnce(ctx, args)
	})
}

func (p *BaseProvider) executeOnce(ctx context.Context, args []string) (string, error) {
	allArgs := append(append([]string{}, p.args...), args...)

	slog.Debug("Executing CLI command", "provider", p.name, "command", p.command, "args_count", len(allArgs))

	cmd := exec.CommandContext(ctx, p.command, allArgs...)

	var stdout, stderr bytes.Buffer
	stdoutLimited := newLimitedWriter(&stdout, MaxOutputSize)
	stderrLimited := newLimitedWriter(&stderr, MaxOutputSize)
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	if err := cmd.Run(); err != nil {
		slog.Error("CLI command failed", "provider", p.name, "error", err, "stderr", stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &CLIError{Provider: p.name, Message: "command timed out", Err: ctx.Err()}
		}
		if stderr.Len() > 0 {
			msg := stderr.String()
			if stderrLimited.limited {
				msg += "\n... (output truncated)"
			}
			return "", &CLIError{Provider: p.name, Message: msg, Err: err}
		}
		return "", &CLIError{Provider: p.name, Message: "command failed", Err: err}
	}

	if stdoutLimited.limited {
		return "", &CLIError{Provider: p.name, Message: "output exceeded 10MB"}
	}

	result := strings.TrimSpace(stdout.String())
	slog.Debug("CLI command successful", "provider", p.name, "output_len", len(result))
	return result, nil
}
