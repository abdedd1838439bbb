package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// LocalClient talks to the on-box free-tier runtime (an Ollama-style
// generate API). Zero cost, used as the terminal fallback for every chain.
type LocalClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewLocalClient creates a new local runtime client
func NewLocalClient(baseURL string) *LocalClient {
	return &LocalClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// Complete sends a generate request to the local runtime
func (c *LocalClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("local runtime is not bound")
	}

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + req.Prompt
	}

	apiReq := localRequest{
		Model:  req.Model,
		Prompt: prompt,
		Stream: false,
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, readError(resp.StatusCode, body)
	}

	var apiResp localResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Response{
		Content:      apiResp.Response,
		Model:        apiResp.Model,
		InputTokens:  apiResp.PromptCount,
		OutputTokens: apiResp.EvalCount,
	}, nil
}

// localRequest represents a generate API request
type localRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// localResponse represents a generate API response
type localResponse struct {
	Model       string `json:"model"`
	Response    string `json:"response"`
	Done        bool   `json:"done"`
	PromptCount int    `json:"prompt_eval_count"`
	EvalCount   int    `json:"eval_count"`
}
