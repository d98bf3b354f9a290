// Package relay delivers replies to the messaging provider's outbound API.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is Interakt's public send-message endpoint.
const DefaultBaseURL = "https://api.interakt.ai/v1/public/message"

// Authorization schemes for the provider API key.
const (
	AuthBearer = "bearer"
	// AuthBasic sends the key after "Basic " as issued. Interakt hands out
	// keys that are already base64 encoded.
	AuthBasic = "basic"
)

// OutboundReply is one message addressed back to a customer.
type OutboundReply struct {
	Recipient string
	Text      string
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig configures the outbound client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	AuthScheme string
	Timeout    time.Duration
}

// Client posts replies to the provider.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates a client. Empty fields take the package defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = AuthBearer
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type sendRequest struct {
	Receiver string      `json:"receiver"`
	Type     string      `json:"type"`
	Message  sendMessage `json:"message"`
}

type sendMessage struct {
	Text string `json:"text"`
}

// Send posts r once. It does not retry.
func (c *Client) Send(ctx context.Context, r OutboundReply) error {
	if r.Recipient == "" {
		return errors.New("relay: empty recipient")
	}

	payload, err := json.Marshal(sendRequest{
		Receiver: r.Recipient,
		Type:     "text",
		Message:  sendMessage{Text: r.Text},
	})
	if err != nil {
		return fmt.Errorf("marshalling reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

func (c *Client) authorization() string {
	if c.cfg.AuthScheme == AuthBasic {
		return "Basic " + c.cfg.APIKey
	}
	return "Bearer " + c.cfg.APIKey
}
