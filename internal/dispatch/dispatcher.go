package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/relayhub/relay-gateway/internal/metrics"
	"github.com/relayhub/relay-gateway/internal/provider"
	"github.com/relayhub/relay-gateway/internal/registry"
	"github.com/relayhub/relay-gateway/internal/usage"
)

// ErrNoRoute means the capability/tier pair has no configured chain.
var ErrNoRoute = errors.New("dispatch: no route available")

// Payload is the validated request body handed over by a capability handler
type Payload struct {
	Prompt    string
	System    string
	MaxTokens int
}

// Result is a successful dispatch outcome
type Result struct {
	Content  string
	Provider string
	ModelKey string
	Model    string
	Tokens   usage.TokenCounts
	Cost     float64
	Duration time.Duration
	Attempts int
}

// AttemptError records one failed provider attempt
type AttemptError struct {
	Provider string `json:"provider"`
	ModelKey string `json:"model"`
	Err      string `json:"error"`
}

// ChainError is returned when the fallback chain is exhausted without a
// success. Attempts holds one entry per attempted provider; skipped
// (unavailable) providers are not listed.
type ChainError struct {
	Capability string
	Tier       registry.ComplexityTier
	Attempts   []AttemptError
}

func (e *ChainError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("dispatch %s/%s: no providers available", e.Capability, e.Tier)
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s/%s: %s", a.Provider, a.ModelKey, a.Err)
	}
	return fmt.Sprintf("dispatch %s/%s: all %d attempts failed: %s",
		e.Capability, e.Tier, len(e.Attempts), strings.Join(parts, "; "))
}

// Dispatcher walks the registry's fallback chains. Chain entries are tried
// strictly in order, one at a time; first success wins.
type Dispatcher struct {
	registry *registry.Registry
	checker  *registry.AvailabilityChecker
	clients  map[string]provider.Client
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a dispatcher. timeout bounds each individual provider attempt.
func New(reg *registry.Registry, checker *registry.AvailabilityChecker, clients map[string]provider.Client, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		checker:  checker,
		clients:  clients,
		timeout:  timeout,
		logger:   logger,
	}
}

// Dispatch routes a capability request down its fallback chain. Unavailable
// providers are skipped without an attempt; a transient failure advances to
// the next entry; exhaustion returns a *ChainError.
func (d *Dispatcher) Dispatch(ctx context.Context, capabilityID string, tier registry.ComplexityTier, payload *Payload) (*Result, error) {
	chain := d.registry.FallbackChain(capabilityID, tier)
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoRoute, capabilityID, tier)
	}

	start := time.Now()
	chainErr := &ChainError{Capability: capabilityID, Tier: tier}

	for _, key := range chain {
		model, ok := d.registry.Model(key)
		if !ok {
			// Validate() rules this out at startup; guard anyway.
			d.logger.Error("chain references unknown model", "capability", capabilityID, "model", key)
			continue
		}
		prov, ok := d.registry.Provider(model.ProviderID)
		if !ok {
			d.logger.Error("model references unknown provider", "model", key, "provider", model.ProviderID)
			continue
		}

		if !d.checker.IsAvailable(prov) {
			d.logger.Debug("provider unavailable, skipping", "provider", prov.ID, "model", key)
			continue
		}

		client, ok := d.clients[prov.ID]
		if !ok {
			d.logger.Debug("no client for provider, skipping", "provider", prov.ID)
			continue
		}

		resp, err := d.attempt(ctx, client, model, payload)
		if err != nil {
			d.logger.Warn("provider attempt failed, advancing chain",
				"capability", capabilityID, "provider", prov.ID, "model", key, "error", err)
			metrics.DispatchAttempts.WithLabelValues(prov.ID, "failure").Inc()
			chainErr.Attempts = append(chainErr.Attempts, AttemptError{
				Provider: prov.ID,
				ModelKey: key,
				Err:      err.Error(),
			})
			continue
		}

		duration := time.Since(start)
		cost := model.EstimateCost(resp.InputTokens, resp.OutputTokens)

		metrics.DispatchAttempts.WithLabelValues(prov.ID, "success").Inc()
		metrics.DispatchDuration.WithLabelValues(capabilityID, string(tier)).Observe(duration.Seconds())
		metrics.EstimatedCost.WithLabelValues(prov.ID).Add(cost)
		metrics.TokensProcessed.WithLabelValues(prov.ID, "input").Add(float64(resp.InputTokens))
		metrics.TokensProcessed.WithLabelValues(prov.ID, "output").Add(float64(resp.OutputTokens))

		return &Result{
			Content:  resp.Content,
			Provider: prov.ID,
			ModelKey: key,
			Model:    resp.Model,
			Tokens:   usage.TokenCounts{Input: resp.InputTokens, Output: resp.OutputTokens},
			Cost:     cost,
			Duration: duration,
			Attempts: len(chainErr.Attempts) + 1,
		}, nil
	}

	return nil, chainErr
}

func (d *Dispatcher) attempt(ctx context.Context, client provider.Client, model registry.Model, payload *Payload) (*provider.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	maxTokens := payload.MaxTokens
	if maxTokens == 0 || maxTokens > model.MaxOutput {
		maxTokens = model.MaxOutput
	}

	return client.Complete(attemptCtx, &provider.Request{
		Model:     model.ID,
		System:    payload.System,
		Prompt:    payload.Prompt,
		MaxTokens: maxTokens,
	})
}
