// Package llm is a stateless client for an Ollama-compatible text
// generation endpoint. One request per call; retrying is the caller's
// concern so that "model down" and "model produced bad SQL" stay
// distinguishable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable means the inference endpoint could not be reached or the
// call timed out. Infrastructure failure, not a model failure.
var ErrUnavailable = errors.New("inference endpoint unavailable")

// ServiceError is a non-success response from a reachable endpoint.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("inference service error: status=%d body=%s", e.StatusCode, e.Body)
}

// Config tunes the client.
type Config struct {
	Endpoint    string
	Model       string
	Temperature float64
	ContextSize int
	Timeout     time.Duration
}

// Client issues generate requests against one endpoint.
type Client struct {
	endpoint    string
	model       string
	temperature float64
	contextSize int
	httpClient  *http.Client
}

// New builds a Client. The endpoint is the Ollama base URL, e.g.
// http://127.0.0.1:11434.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	contextSize := cfg.ContextSize
	if contextSize <= 0 {
		contextSize = 2048
	}
	return &Client{
		endpoint:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		contextSize: contextSize,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends one prompt and returns the raw generated text.
// Dial and timeout failures wrap ErrUnavailable; a reachable endpoint
// answering with an error status yields a *ServiceError.
func (c *Client) Generate(ctx context.Context, promptText string) (string, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: promptText,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			NumCtx:      c.contextSize,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if parsed.Error != "" {
		return "", &ServiceError{StatusCode: resp.StatusCode, Body: parsed.Error}
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", &ServiceError{StatusCode: resp.StatusCode, Body: "empty model response"}
	}
	return parsed.Response, nil
}
