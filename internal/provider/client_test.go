package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhub/relay-gateway/internal/config"
)

func TestOpenAIClientComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(chatResponse{
			Model:   "gpt-4o-mini",
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "hi there"}}},
			Usage:   chatUsage{PromptTokens: 12, CompletionTokens: 4},
		})
	}))
	defer ts.Close()

	client := NewOpenAIClient(ts.URL, "sk-test")
	resp, err := client.Complete(context.Background(), &Request{
		Model:  "gpt-4o-mini",
		System: "be brief",
		Prompt: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
}

func TestOpenAIClientUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewOpenAIClient(ts.URL, "sk-test")
	_, err := client.Complete(context.Background(), &Request{Model: "gpt-4o", Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClientHonorsContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer ts.Close()

	client := NewOpenAIClient(ts.URL, "sk-test")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, &Request{Model: "gpt-4o", Prompt: "hello"})
	assert.Error(t, err)
}

func TestAnthropicClientComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotZero(t, req.MaxTokens, "messages API requires max_tokens")

		json.NewEncoder(w).Encode(anthropicResponse{
			Model:   "claude-3-5-haiku-latest",
			Content: []anthropicBlock{{Type: "text", Text: "hello back"}},
			Usage:   anthropicUsage{InputTokens: 8, OutputTokens: 3},
		})
	}))
	defer ts.Close()

	client := NewAnthropicClient(ts.URL, "sk-ant")
	resp, err := client.Complete(context.Background(), &Request{
		Model:  "claude-3-5-haiku-latest",
		Prompt: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello back", resp.Content)
	assert.Equal(t, 8, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestLocalClientComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req localRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(localResponse{
			Model:       "llama3.1:8b",
			Response:    "local answer",
			Done:        true,
			PromptCount: 20,
			EvalCount:   9,
		})
	}))
	defer ts.Close()

	client := NewLocalClient(ts.URL)
	resp, err := client.Complete(context.Background(), &Request{Model: "llama3.1:8b", Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "local answer", resp.Content)
	assert.Equal(t, 20, resp.InputTokens)
	assert.Equal(t, 9, resp.OutputTokens)
}

func TestLocalClientUnbound(t *testing.T) {
	client := NewLocalClient("")
	_, err := client.Complete(context.Background(), &Request{Model: "llama3.1:8b", Prompt: "hello"})
	assert.Error(t, err)
}

func TestNewClientsCoversCatalog(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.OpenAI.APIKey = "sk-o"
	cfg.Providers.Local.URL = "http://localhost:11434"

	clients := NewClients(cfg)

	for _, id := range []string{"openai", "anthropic", "google", "local"} {
		assert.Contains(t, clients, id)
	}
}
