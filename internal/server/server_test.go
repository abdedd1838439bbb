package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhub/relay-gateway/internal/auth"
	"github.com/relayhub/relay-gateway/internal/config"
	"github.com/relayhub/relay-gateway/internal/dispatch"
	"github.com/relayhub/relay-gateway/internal/kvstore"
	"github.com/relayhub/relay-gateway/internal/provider"
	"github.com/relayhub/relay-gateway/internal/ratelimit"
	"github.com/relayhub/relay-gateway/internal/registry"
	"github.com/relayhub/relay-gateway/internal/usage"
)

type fakeClient struct {
	fn func(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

func (f *fakeClient) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return f.fn(ctx, req)
}

func succeed(content string) provider.Client {
	return &fakeClient{fn: func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
		return &provider.Response{Content: content, Model: req.Model, InputTokens: 10, OutputTokens: 5}, nil
	}}
}

func fail(msg string) provider.Client {
	return &fakeClient{fn: func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
		return nil, errors.New(msg)
	}}
}

type serverOptions struct {
	secret     string
	production bool
	limit      int
	clients    map[string]provider.Client
}

func testServer(t *testing.T, opts serverOptions) *Server {
	t.Helper()

	if opts.limit == 0 {
		opts.limit = 100
	}
	if opts.clients == nil {
		opts.clients = map[string]provider.Client{registry.ProviderLocal: succeed("ok")}
	}

	cfg := &config.Config{
		Server:      config.ServerConfig{Port: 18800, Host: "localhost"},
		Environment: "development",
	}
	if opts.production {
		cfg.Environment = "production"
	}
	cfg.Auth.SharedSecret = opts.secret
	cfg.Providers.Local.URL = "http://localhost:11434"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.NewMemoryStore()

	reg := registry.New()
	require.NoError(t, reg.Validate())

	checker := registry.NewAvailabilityChecker(cfg.Credentials(), cfg.Providers.Local.URL)
	gate := auth.NewGate(cfg.Auth.SharedSecret, cfg.IsProduction())
	limiter := ratelimit.New(store, opts.limit, logger)
	ledger := usage.New(store, limiter, logger)
	dispatcher := dispatch.New(reg, checker, opts.clients, time.Second, logger)

	return New(cfg, gate, limiter, ledger, dispatcher, reg, checker, logger)
}

func doRequest(s *Server, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, r)
	return w
}

func dispatchBody(t *testing.T, capability, prompt string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(DispatchRequest{Capability: capability, Prompt: prompt})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestHealthHandler(t *testing.T) {
	srv := testServer(t, serverOptions{})

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var hr HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&hr))
	assert.Equal(t, "healthy", hr.Status)
}

func TestDispatchDevMode(t *testing.T) {
	srv := testServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DispatchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, registry.ProviderLocal, resp.Provider)
	assert.Equal(t, 10, resp.Tokens.Input)
}

func TestDispatchRecordsUsage(t *testing.T) {
	srv := testServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "summarize", "hello"))
	require.Equal(t, http.StatusOK, doRequest(srv, req).Code)

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/usage?days=1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var s usage.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	assert.Equal(t, 1, s.Totals.Requests)
	require.Len(t, s.Daily, 1)
	assert.Contains(t, s.Daily[0].ByCapability, "summarize")
}

func TestDispatchUnauthorized(t *testing.T) {
	srv := testServer(t, serverOptions{secret: "hunter2"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	w := doRequest(srv, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var er ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&er))
	assert.Equal(t, "No authentication provided", er.Error)
}

func TestDispatchBearerToken(t *testing.T) {
	srv := testServer(t, serverOptions{secret: "hunter2"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	req.Header.Set("Authorization", "Bearer hunter2")
	assert.Equal(t, http.StatusOK, doRequest(srv, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, doRequest(srv, req).Code)
}

func TestDispatchProductionWithoutSecretRejected(t *testing.T) {
	srv := testServer(t, serverOptions{production: true})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	assert.Equal(t, http.StatusUnauthorized, doRequest(srv, req).Code)
}

func TestDispatchRateLimited(t *testing.T) {
	srv := testServer(t, serverOptions{limit: 1})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	require.Equal(t, http.StatusOK, doRequest(srv, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	w := doRequest(srv, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestDispatchUnknownCapability(t *testing.T) {
	srv := testServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "no-such-capability", "hello"))
	assert.Equal(t, http.StatusBadRequest, doRequest(srv, req).Code)
}

func TestDispatchInvalidTier(t *testing.T) {
	srv := testServer(t, serverOptions{})

	body, _ := json.Marshal(DispatchRequest{Capability: "summarize", Prompt: "hi", Complexity: "extreme"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewReader(body))
	assert.Equal(t, http.StatusBadRequest, doRequest(srv, req).Code)
}

func TestDispatchMissingFields(t *testing.T) {
	srv := testServer(t, serverOptions{})

	body, _ := json.Marshal(DispatchRequest{Capability: "summarize"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewReader(body))
	assert.Equal(t, http.StatusBadRequest, doRequest(srv, req).Code)
}

func TestDispatchChainExhausted(t *testing.T) {
	srv := testServer(t, serverOptions{
		clients: map[string]provider.Client{registry.ProviderLocal: fail("runtime down")},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", dispatchBody(t, "intent-classify", "hello"))
	w := doRequest(srv, req)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var er ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&er))
	require.Len(t, er.Attempts, 1)
	assert.Equal(t, registry.ProviderLocal, er.Attempts[0].Provider)
}

func TestListModels(t *testing.T) {
	srv := testServer(t, serverOptions{})

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var models []registry.Model
	require.NoError(t, json.NewDecoder(w.Body).Decode(&models))
	assert.NotEmpty(t, models)
}

func TestListProvidersAvailability(t *testing.T) {
	srv := testServer(t, serverOptions{})

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []struct {
		ID        string `json:"id"`
		Available bool   `json:"available"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))

	byID := map[string]bool{}
	for _, p := range list {
		byID[p.ID] = p.Available
	}
	assert.True(t, byID[registry.ProviderLocal], "local runtime is bound in test config")
	assert.False(t, byID[registry.ProviderOpenAI], "no openai credential configured")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t, serverOptions{})

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/v1/dispatch", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestShutdown(t *testing.T) {
	srv := testServer(t, serverOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
