// Package reply turns a customer's message into the text sent back to them.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/ziadkadry99/wa-relay/internal/llm"
	"github.com/ziadkadry99/wa-relay/internal/metrics"
)

// Config controls reply generation.
type Config struct {
	BusinessName    string
	Persona         string
	Fallback        string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
}

// UpstreamError reports a failed completion call: a network error, timeout,
// non-2xx status, or undecodable body.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion via %s failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Generator asks the completion service for a reply.
type Generator struct {
	provider llm.Provider
	cfg      Config
	system   string
	logger   *slog.Logger
}

// New creates a generator. The system prompt is rendered once.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) (*Generator, error) {
	if provider == nil {
		return nil, errors.New("reply: provider is required")
	}
	system, err := SystemPrompt(cfg.BusinessName, cfg.Persona)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		cfg:      cfg,
		system:   system,
		logger:   logger,
	}, nil
}

// Fallback is the text sent when the service gives no usable reply.
func (g *Generator) Fallback() string {
	if f := strings.TrimSpace(g.cfg.Fallback); f != "" {
		return f
	}
	return DefaultFallback(g.cfg.BusinessName)
}

// DefaultFallback is the apology used when no fallback is configured.
func DefaultFallback(businessName string) string {
	if strings.TrimSpace(businessName) == "" {
		return "Thanks for contacting us 🙂 A team member will reply shortly."
	}
	return fmt.Sprintf("Thanks for contacting %s 🙂 A team member will reply shortly.", strings.TrimSpace(businessName))
}

// Generate returns the reply for text. A successful call that yields no text
// returns the fallback and a nil error. Failures are *UpstreamError.
func (g *Generator) Generate(ctx context.Context, text string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:     g.cfg.Model,
		Messages:  llm.Prompt(g.system, text),
		MaxTokens: g.cfg.MaxOutputTokens,
	})
	elapsed := time.Since(start)
	metrics.CompletionLatency(elapsed)

	if err != nil {
		return "", &UpstreamError{Provider: g.provider.Name(), Err: err}
	}

	g.logUsage(resp, text, elapsed)

	out := strings.TrimSpace(resp.Content)
	if out == "" {
		g.logger.Warn("completion returned no text, using fallback",
			"provider", g.provider.Name(), "finish_reason", resp.FinishReason)
		return g.Fallback(), nil
	}
	return out, nil
}

func (g *Generator) logUsage(resp *llm.CompletionResponse, prompt string, elapsed time.Duration) {
	in, out := resp.InputTokens, resp.OutputTokens
	if in == 0 && out == 0 {
		in = llm.EstimateTokens(g.system) + llm.EstimateTokens(prompt)
		out = llm.EstimateTokens(resp.Content)
	}
	model := resp.Model
	if model == "" {
		model = g.cfg.Model
	}
	g.logger.Debug("completion finished",
		"provider", g.provider.Name(),
		"model", model,
		"input_tokens", in,
		"output_tokens", out,
		"cost_usd", llm.EstimateCost(model, in, out),
		"duration", elapsed,
	)
}
