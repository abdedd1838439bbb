package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayhub/relay-gateway/internal/auth"
	"github.com/relayhub/relay-gateway/internal/config"
	"github.com/relayhub/relay-gateway/internal/dispatch"
	"github.com/relayhub/relay-gateway/internal/metrics"
	"github.com/relayhub/relay-gateway/internal/ratelimit"
	"github.com/relayhub/relay-gateway/internal/registry"
	"github.com/relayhub/relay-gateway/internal/usage"
)

const version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	gate       *auth.Gate
	limiter    *ratelimit.Limiter
	ledger     *usage.Ledger
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	checker    *registry.AvailabilityChecker
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// DispatchRequest represents an inbound capability request
type DispatchRequest struct {
	Capability string `json:"capability"`
	Complexity string `json:"complexity,omitempty"`
	Prompt     string `json:"prompt"`
	System     string `json:"system,omitempty"`
	MaxTokens  int    `json:"max_tokens,omitempty"`
}

// DispatchResponse represents a successful dispatch result
type DispatchResponse struct {
	Content       string            `json:"content"`
	Provider      string            `json:"provider"`
	ModelKey      string            `json:"model_key"`
	Model         string            `json:"model"`
	Tokens        usage.TokenCounts `json:"tokens"`
	EstimatedCost float64           `json:"estimated_cost"`
	DurationMs    int64             `json:"duration_ms"`
	Attempts      int               `json:"attempts"`
}

// ErrorResponse represents a JSON error body
type ErrorResponse struct {
	Error    string                  `json:"error"`
	Attempts []dispatch.AttemptError `json:"attempts,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// New creates a new HTTP server
func New(cfg *config.Config, gate *auth.Gate, limiter *ratelimit.Limiter, ledger *usage.Ledger, dispatcher *dispatch.Dispatcher, reg *registry.Registry, checker *registry.AvailabilityChecker, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		gate:       gate,
		limiter:    limiter,
		ledger:     ledger,
		dispatcher: dispatcher,
		registry:   reg,
		checker:    checker,
		startTime:  time.Now(),
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/dispatch", s.dispatchHandler)
	mux.HandleFunc("/api/v1/usage", s.usageHandler)
	mux.HandleFunc("/api/v1/models", s.listModelsHandler)
	mux.HandleFunc("/api/v1/providers", s.listProvidersHandler)
	mux.HandleFunc("/ws", s.wsHandler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// authorize verifies the request and returns the decision. On rejection it
// writes the 401 itself and returns ok=false.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (auth.Decision, bool) {
	decision := s.gate.Verify(r)
	if !decision.Authorized {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: decision.Reason})
		return decision, false
	}
	return decision, true
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// dispatchHandler is the primary request path: auth, rate limit, dispatch,
// usage accounting.
func (s *Server) dispatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decision, ok := s.authorize(w, r)
	if !ok {
		metrics.RequestCount.WithLabelValues(r.Method, "/api/v1/dispatch", "401").Inc()
		return
	}

	limit := s.limiter.CheckAndIncrement(r.Context(), decision.CallerID)
	if !limit.Allowed {
		metrics.RateLimitRejections.Inc()
		metrics.RequestCount.WithLabelValues(r.Method, "/api/v1/dispatch", "429").Inc()
		retryAfter := int(time.Until(limit.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit.Remaining))
		w.Header().Set("X-RateLimit-Reset", limit.ResetAt.Format(time.RFC3339))
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "Rate limit exceeded"})
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}
	if req.Capability == "" || req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "capability and prompt required"})
		return
	}

	tier := registry.ComplexityTier(req.Complexity)
	if tier == "" {
		tier = registry.ComplexityStandard
	}
	switch tier {
	case registry.ComplexitySimple, registry.ComplexityStandard, registry.ComplexityComplex:
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown complexity tier: %s", req.Complexity)})
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), req.Capability, tier, &dispatch.Payload{
		Prompt:    req.Prompt,
		System:    req.System,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		var chainErr *dispatch.ChainError
		switch {
		case errors.Is(err, dispatch.ErrNoRoute):
			metrics.RequestCount.WithLabelValues(r.Method, "/api/v1/dispatch", "400").Inc()
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.As(err, &chainErr):
			s.logger.Error("dispatch chain exhausted",
				"capability", req.Capability, "tier", tier, "attempts", len(chainErr.Attempts))
			metrics.RequestCount.WithLabelValues(r.Method, "/api/v1/dispatch", "502").Inc()
			writeJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:    "All providers failed",
				Attempts: chainErr.Attempts,
			})
		default:
			metrics.RequestCount.WithLabelValues(r.Method, "/api/v1/dispatch", "500").Inc()
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	s.ledger.LogRequest(r.Context(), usage.Event{
		Capability: req.Capability,
		Provider:   result.Provider,
		Model:      result.ModelKey,
		Tokens:     result.Tokens,
		Cost:       result.Cost,
		Duration:   result.Duration,
	})

	metrics.RequestCount.WithLabelValues(r.Method, "/api/v1/dispatch", "200").Inc()
	writeJSON(w, http.StatusOK, DispatchResponse{
		Content:       result.Content,
		Provider:      result.Provider,
		ModelKey:      result.ModelKey,
		Model:         result.Model,
		Tokens:        result.Tokens,
		EstimatedCost: result.Cost,
		DurationMs:    result.Duration.Milliseconds(),
		Attempts:      result.Attempts,
	})
}

// usageHandler serves the aggregated usage summary
func (s *Server) usageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decision, ok := s.authorize(w, r)
	if !ok {
		return
	}

	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil {
			days = parsed
		}
	}

	summary := s.ledger.Summary(r.Context(), days, decision.CallerID)
	writeJSON(w, http.StatusOK, summary)
}

// listModelsHandler lists the model catalog
func (s *Server) listModelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Models())
}

// listProvidersHandler lists providers with their current availability
func (s *Server) listProvidersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type providerInfo struct {
		registry.Provider
		Available bool `json:"available"`
	}

	list := []providerInfo{}
	for _, p := range s.registry.Providers() {
		list = append(list, providerInfo{Provider: p, Available: s.checker.IsAvailable(p)})
	}
	writeJSON(w, http.StatusOK, list)
}
