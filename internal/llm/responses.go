package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a completion response is read.
const maxResponseBytes = 4 << 20

// APIError is returned when the completion service answers with a non-2xx
// status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("completion service returned status %d: %s", e.StatusCode, body)
}

// ResponsesProvider implements Provider using the OpenAI Responses API
// (POST {base}/responses).
type ResponsesProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewResponsesProvider creates a Responses API transport.
func NewResponsesProvider(apiKey, baseURL, model string, timeout time.Duration) *ResponsesProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ResponsesProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *ResponsesProvider) Name() string {
	return APIResponses
}

type responsesRequest struct {
	Model           string   `json:"model"`
	Instructions    string   `json:"instructions,omitempty"`
	Input           any      `json:"input"`
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	Model      string          `json:"model"`
	Status     string          `json:"status"`
	OutputText json.RawMessage `json:"output_text"`
	Output     []outputItem    `json:"output"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// outputItem covers the item and content-part shapes the service has used.
// Some deployments wrap an item one level deeper under "message".
type outputItem struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Content json.RawMessage `json:"content"`
	Message *outputItem     `json:"message"`
}

func (p *ResponsesProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	apiReq := buildResponsesRequest(model, req)
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("responses request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read responses body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var parsed responsesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal responses body: %w", err)
	}

	return &CompletionResponse{
		Content:      parsed.text(),
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		Model:        parsed.Model,
		FinishReason: parsed.Status,
	}, nil
}

// buildResponsesRequest folds system messages into instructions. A lone user
// turn is sent as a flat input string, anything longer as a role list.
func buildResponsesRequest(model string, req CompletionRequest) responsesRequest {
	out := responsesRequest{
		Model:           model,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}

	var instructions []string
	var turns []responsesInput
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			instructions = append(instructions, msg.Content)
			continue
		}
		turns = append(turns, responsesInput{Role: string(msg.Role), Content: msg.Content})
	}
	out.Instructions = strings.Join(instructions, "\n\n")

	switch {
	case len(turns) == 1 && turns[0].Role == string(RoleUser):
		out.Input = turns[0].Content
	case len(turns) == 0:
		out.Input = ""
	default:
		out.Input = turns
	}
	return out
}

// ExtractText pulls the generated text out of a Responses API body. It
// returns "" with a nil error when the body is valid but carries no text.
func ExtractText(body []byte) (string, error) {
	var parsed responsesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	return parsed.text(), nil
}

func (r *responsesResponse) text() string {
	var top string
	if err := json.Unmarshal(r.OutputText, &top); err == nil && strings.TrimSpace(top) != "" {
		return strings.TrimSpace(top)
	}

	var parts []string
	for i := range r.Output {
		parts = r.Output[i].collect(parts, 0)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (it *outputItem) collect(parts []string, depth int) []string {
	if isTextType(it.Type) && it.Text != "" {
		parts = append(parts, it.Text)
	}

	if len(it.Content) > 0 {
		var s string
		if err := json.Unmarshal(it.Content, &s); err == nil {
			if s != "" {
				parts = append(parts, s)
			}
		} else {
			var contents []outputItem
			if err := json.Unmarshal(it.Content, &contents); err == nil {
				for i := range contents {
					c := &contents[i]
					if (isTextType(c.Type) || c.Type == "") && c.Text != "" {
						parts = append(parts, c.Text)
					}
				}
			}
		}
	}

	if it.Message != nil && depth == 0 {
		parts = it.Message.collect(parts, depth+1)
	}
	return parts
}

func isTextType(t string) bool {
	return t == "output_text" || t == "text"
}
