package llm

import (
	"errors"
	"fmt"
	"time"
)

// Completion transports.
const (
	APIResponses = "responses"
	APIChat      = "chat"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Options selects and configures a transport.
type Options struct {
	API     string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// RateLimitPerMinute wraps the transport in a limiter when positive.
	RateLimitPerMinute int
}

// NewProvider creates the transport named by opts.API. An empty API selects
// the Responses API.
func NewProvider(opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("completion API key is not set")
	}
	if opts.Model == "" {
		return nil, errors.New("completion model is not set")
	}

	var p Provider
	switch opts.API {
	case APIResponses, "":
		p = NewResponsesProvider(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout)
	case APIChat:
		p = NewChatProvider(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout)
	default:
		return nil, fmt.Errorf("unsupported completion api: %s", opts.API)
	}

	if opts.RateLimitPerMinute > 0 {
		p = NewRateLimitedProvider(p, opts.RateLimitPerMinute)
	}
	return p, nil
}
