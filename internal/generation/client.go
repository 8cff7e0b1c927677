// Package generation implements the language-generation gateway: a minimal
// client for OpenAI-compatible chat-completions endpoints.
//
// The client performs exactly one HTTP call per Generate invocation. Retry
// and backoff policy belong to the drafting layer, which needs failure
// classification, not retries, from this package: rejected calls surface as
// *APIError whose Temporary method separates throttling and upstream outages
// from permanent rejections such as policy refusals.
package generation

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

// defaultBaseURL targets the public OpenAI API; any compatible gateway works
// through the OPENAI_BASE_URL override.
const defaultBaseURL = "https://api.openai.com/v1"

// Client calls a chat-completions endpoint. Construct with NewClient.
type Client struct {
	// BaseURL is the API origin including the version prefix, without a
	// trailing slash.
	BaseURL string
	// APIKey is sent as the bearer token.
	APIKey string
	// Model is the model identifier for every completion.
	Model string
	// HTTP executes requests; its timeout bounds each generation call.
	HTTP *http.Client
}

// NewClient returns a generation client. An empty baseURL selects the public
// OpenAI endpoint.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Request is one generation call: a system instruction plus the assembled
// user prompt.
type Request struct {
	System string
	User   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// apiErrorResponse mirrors the error envelope of OpenAI-compatible APIs.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate performs one chat completion and returns the trimmed text of the
// first choice.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body := chatCompletionRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("generation: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("generation: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generation: chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("generation: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		var envelope apiErrorResponse
		if json.Unmarshal(raw, &envelope) == nil {
			msg = envelope.Error.Message
		}
		if msg == "" {
			msg = truncateBody(raw)
		}
		return "", &APIError{Status: resp.StatusCode, Body: msg}
	}

	var payload chatCompletionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("generation: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(payload.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
