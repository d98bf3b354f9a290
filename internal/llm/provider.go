// Package llm talks to the text-completion service that writes replies.
package llm

import "context"

// Provider is a completion transport.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the transport in logs.
	Name() string
}
