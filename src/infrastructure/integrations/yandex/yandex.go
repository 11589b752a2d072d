package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

const (
	DefaultBaseURL = "https://llm.api.cloud.yandex.net/foundationModels/v1"

	embeddingModel = "text-search-query"
)

var (
	// ErrUnauthorized is returned when the API rejects the configured key.
	ErrUnauthorized = errors.New("yandex: invalid credentials")
	// ErrUnreachable is returned when the API endpoint cannot be reached at all.
	ErrUnreachable = errors.New("yandex: endpoint unreachable")
)

// EmbeddingRequest represents the request structure for text embeddings
type EmbeddingRequest struct {
	ModelURI string `json:"modelUri"`
	Text     string `json:"text"`
}

// EmbeddingResponse represents the response structure from text embeddings
type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// CompletionOptions controls sampling for a completion request
type CompletionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// Message is a single chat message in a completion request
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// CompletionRequest represents the request structure for completions
type CompletionRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions CompletionOptions `json:"completionOptions"`
	Messages          []Message         `json:"messages"`
}

type alternative struct {
	Message Message `json:"message"`
}

// CompletionResponse represents the response structure from completions.
// Depending on the API version the alternatives list arrives either under
// "result" or at the top level, so both are decoded.
type CompletionResponse struct {
	Result struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"result"`
	Alternatives []alternative `json:"alternatives"`
}

// Client represents a Yandex Foundation Models API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	folderID   string
}

// NewClient creates a new Yandex Foundation Models API client
func NewClient(baseURL, apiKey, folderID string, c *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: c,
		baseURL:    baseURL,
		apiKey:     apiKey,
		folderID:   folderID,
	}
}

// Configured reports whether API credentials are present
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.folderID != ""
}

// Embed generates an embedding vector for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		ModelURI: fmt.Sprintf("emb://%s/%s/latest", c.folderID, embeddingModel),
		Text:     text,
	}

	var result EmbeddingResponse
	if err := c.post(ctx, "/textEmbedding", reqBody, &result); err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	embedding32 := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding32[i] = float32(v)
	}

	return embedding32, nil
}

// Complete performs a single non-streaming completion with the given model
func (c *Client) Complete(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := CompletionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s/latest", c.folderID, model),
		CompletionOptions: CompletionOptions{
			Stream:      false,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		Messages: []Message{{Role: "user", Text: prompt}},
	}

	var result CompletionResponse
	if err := c.post(ctx, "/completion", reqBody, &result); err != nil {
		return "", err
	}

	alternatives := result.Result.Alternatives
	if len(alternatives) == 0 {
		alternatives = result.Alternatives
	}
	if len(alternatives) == 0 {
		return "", fmt.Errorf("no alternatives in completion response")
	}

	return alternatives[0].Message.Text, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}

	return nil
}

// classifyTransportError separates "cannot connect" failures, which callers
// may absorb with a local fallback, from timeouts and cancellations, which
// must surface as request failures.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("request timed out: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%v: %w", urlErr, ErrUnreachable)
	}

	return fmt.Errorf("error making request: %w", err)
}
