package reply

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/wa-relay/internal/llm"
	"github.com/ziadkadry99/wa-relay/internal/logging"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   []llm.CompletionRequest
	content string
	err     error
	delay   time.Duration
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "gpt-4.1-mini"}, nil
}

func newGenerator(t *testing.T, p llm.Provider, cfg Config) *Generator {
	t.Helper()
	g, err := New(p, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGeneratePassesTextAndPersona(t *testing.T) {
	p := &fakeProvider{content: "  Vanakkam! How can I help?  "}
	g := newGenerator(t, p, Config{BusinessName: "Karuvadukadai", Model: "gpt-4.1-mini", MaxOutputTokens: 200})

	got, err := g.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Vanakkam! How can I help?" {
		t.Errorf("expected trimmed reply, got %q", got)
	}

	if len(p.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(p.calls))
	}
	req := p.calls[0]
	if req.Model != "gpt-4.1-mini" || req.MaxTokens != 200 {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "Karuvadukadai") {
		t.Errorf("system prompt should name the business: %q", req.Messages[0].Content)
	}
	if req.Messages[1].Role != llm.RoleUser || req.Messages[1].Content != "hi" {
		t.Errorf("expected user message 'hi', got %+v", req.Messages[1])
	}
}

func TestGenerateEmptyContentReturnsFallback(t *testing.T) {
	p := &fakeProvider{content: "   "}
	g := newGenerator(t, p, Config{BusinessName: "Karuvadukadai"})

	got, err := g.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != DefaultFallback("Karuvadukadai") {
		t.Errorf("expected default fallback, got %q", got)
	}
}

func TestGenerateConfiguredFallback(t *testing.T) {
	g := newGenerator(t, &fakeProvider{}, Config{Fallback: "Sorry, try again later."})

	got, err := g.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Sorry, try again later." {
		t.Errorf("expected configured fallback, got %q", got)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	cause := &llm.APIError{StatusCode: 502, Body: "bad gateway"}
	g := newGenerator(t, &fakeProvider{err: cause}, Config{})

	_, err := g.Generate(context.Background(), "hi")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if ue.Provider != "fake" {
		t.Errorf("expected provider fake, got %q", ue.Provider)
	}
	if ue.Timeout() {
		t.Error("a 502 is not a timeout")
	}
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 502 {
		t.Errorf("expected wrapped APIError, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	g := newGenerator(t, &fakeProvider{content: "late", delay: time.Second}, Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := g.Generate(context.Background(), "hi")
	if time.Since(start) > 500*time.Millisecond {
		t.Error("generate did not respect its timeout")
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) || !ue.Timeout() {
		t.Fatalf("expected timeout UpstreamError, got %v", err)
	}
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(nil, Config{}, nil); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestSystemPrompt(t *testing.T) {
	p, err := SystemPrompt("Karuvadukadai", "Mention free delivery above Rs 999.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Karuvadukadai", "briefly", "Tamil", "Never invent", "free delivery"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}

	p, err = SystemPrompt("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(p, "our business") {
		t.Errorf("expected generic name, got:\n%s", p)
	}
	if strings.HasSuffix(p, "\n") {
		t.Error("prompt without persona should not end with a newline")
	}
}
