// Package ai wraps the external generative AI analysis service. The client
// speaks the chat-completions protocol with a JSON response format and makes
// exactly one attempt per analysis: retries are the caller's decision (the
// service layer falls back to deterministic demo content instead).
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 90 * time.Second
)

// Client calls the chat-completions endpoint of the analysis provider.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the analysis client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(c *Client) {
		model = strings.TrimSpace(model)
		if model != "" {
			c.model = model
		}
	}
}

// NewClient constructs an analysis client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Analyze sends the target URL plus optional screenshot chunks to the model
// and returns the raw analysis payload. The response content is expected to
// be a single JSON object (see RawAnalysis); any transport, API, or shape
// error is returned as-is so the caller can fall back.
func (c *Client) Analyze(ctx context.Context, targetURL string, screenshots [][]byte) (RawAnalysis, error) {
	var empty RawAnalysis
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return empty, errors.New("ai analyze: target url required")
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return empty, errors.New("ai analyze: api key required")
	}

	endpoint, err := url.JoinPath(c.baseURL, "/chat/completions")
	if err != nil {
		return empty, fmt.Errorf("ai analyze: build url: %w", err)
	}
	encoded, err := json.Marshal(buildAnalysisRequest(c.model, targetURL, screenshots))
	if err != nil {
		return empty, fmt.Errorf("ai analyze: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("ai analyze: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("ai analyze: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("ai analyze: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("ai analyze: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return empty, fmt.Errorf("ai analyze: decode response: %w", err)
	}
	if completion.Error != nil {
		return empty, fmt.Errorf("ai analyze: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return empty, errors.New("ai analyze: empty choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return empty, errors.New("ai analyze: empty content")
	}

	var parsed RawAnalysis
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return empty, fmt.Errorf("ai analyze: parse payload: %w", err)
	}
	return parsed, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multimodal user message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func buildAnalysisRequest(model, targetURL string, screenshots [][]byte) chatCompletionRequest {
	userText := "Analyze this website: " + targetURL
	var content any = userText
	if len(screenshots) > 0 {
		parts := []contentPart{{Type: "text", Text: userText}}
		for _, shot := range screenshots {
			parts = append(parts, contentPart{
				Type: "image_url",
				ImageURL: &imageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(shot),
				},
			})
		}
		content = parts
	}
	return chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: AnalysisPrompt},
			{Role: "user", Content: content},
		},
		Temperature: 0.2,
		ResponseFormat: map[string]string{
			"type": jsonResponseType,
		},
	}
}
