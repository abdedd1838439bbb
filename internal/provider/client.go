package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/relayhub/relay-gateway/internal/config"
	"github.com/relayhub/relay-gateway/internal/registry"
)

// Request is a provider-agnostic completion request
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// Response is a provider-agnostic completion response
type Response struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is the interface all provider clients implement. Complete must
// honor ctx cancellation; the dispatcher bounds each attempt with a timeout.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Default provider endpoints. Google is reached through its
// OpenAI-compatible surface.
const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultAnthropicURL  = "https://api.anthropic.com/v1"
)

// httpTimeout is a safety net behind the dispatcher's per-attempt timeout.
const httpTimeout = 120 * time.Second

// NewClients builds one client per catalog provider from the config.
// Clients are constructed even for providers without credentials; the
// availability check keeps them out of dispatch until a key appears.
func NewClients(cfg *config.Config) map[string]Client {
	openaiBase := cfg.Providers.OpenAI.BaseURL
	if openaiBase == "" {
		openaiBase = defaultOpenAIBaseURL
	}
	googleBase := cfg.Providers.Google.BaseURL
	if googleBase == "" {
		googleBase = defaultGoogleBaseURL
	}
	anthropicBase := cfg.Providers.Anthropic.BaseURL
	if anthropicBase == "" {
		anthropicBase = defaultAnthropicURL
	}

	return map[string]Client{
		registry.ProviderOpenAI:    NewOpenAIClient(openaiBase, cfg.Providers.OpenAI.APIKey),
		registry.ProviderGoogle:    NewOpenAIClient(googleBase, cfg.Providers.Google.APIKey),
		registry.ProviderAnthropic: NewAnthropicClient(anthropicBase, cfg.Providers.Anthropic.APIKey),
		registry.ProviderLocal:     NewLocalClient(cfg.Providers.Local.URL),
	}
}

func readError(status int, body []byte) error {
	return fmt.Errorf("provider returned status %d: %s", status, string(body))
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
