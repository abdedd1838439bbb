package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhub/relay-gateway/internal/kvstore"
	"github.com/relayhub/relay-gateway/internal/ratelimit"
)

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("store unreachable")
}

func (failingStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("store unreachable")
}

func (failingStore) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLedger() (*Ledger, *ratelimit.Limiter) {
	store := kvstore.NewMemoryStore()
	limiter := ratelimit.New(store, 100, testLogger())
	return New(store, limiter, testLogger()), limiter
}

func TestLogThenSummary(t *testing.T) {
	ledger, _ := testLedger()
	ctx := context.Background()

	ledger.LogRequest(ctx, Event{
		Capability: "intent-classify",
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		Tokens:     TokenCounts{Input: 120, Output: 40},
		Cost:       0.0005,
		Duration:   800 * time.Millisecond,
	})

	s := ledger.Summary(ctx, 1, "caller")
	require.Len(t, s.Daily, 1)
	assert.Equal(t, 1, s.Totals.Requests)
	assert.InDelta(t, 0.0005, s.Totals.Cost, 1e-9)
	assert.Equal(t, 120, s.Totals.InputTokens)
	assert.Equal(t, 40, s.Totals.OutputTokens)
	assert.Equal(t, int64(800), s.Totals.DurationMs)
}

func TestBreakdownsAccumulate(t *testing.T) {
	ledger, _ := testLedger()
	ctx := context.Background()

	ledger.LogRequest(ctx, Event{
		Capability: "summarize",
		Provider:   "openai",
		Tokens:     TokenCounts{Input: 100, Output: 50},
		Cost:       0.001,
	})
	ledger.LogRequest(ctx, Event{
		Capability: "summarize",
		Provider:   "anthropic",
		Tokens:     TokenCounts{Input: 200, Output: 80},
		Cost:       0.002,
	})
	ledger.LogRequest(ctx, Event{
		Capability: "text-generate",
		Provider:   "openai",
		Tokens:     TokenCounts{Input: 10, Output: 10},
		Cost:       0.0001,
	})

	s := ledger.Summary(ctx, 1, "caller")
	require.Len(t, s.Daily, 1)
	day := s.Daily[0]

	require.Contains(t, day.ByProvider, "openai")
	assert.Equal(t, 2, day.ByProvider["openai"].Requests)
	assert.InDelta(t, 0.0011, day.ByProvider["openai"].Cost, 1e-9)
	assert.Equal(t, 110, day.ByProvider["openai"].InputTokens)

	require.Contains(t, day.ByCapability, "summarize")
	assert.Equal(t, 2, day.ByCapability["summarize"].Requests)
	assert.InDelta(t, 0.003, day.ByCapability["summarize"].Cost, 1e-9)
}

func TestSummarySkipsMissingDays(t *testing.T) {
	ledger, _ := testLedger()
	ctx := context.Background()

	ledger.LogRequest(ctx, Event{Provider: "openai", Cost: 0.01})

	s := ledger.Summary(ctx, 7, "caller")
	assert.Len(t, s.Daily, 1, "only today's bucket exists")
	assert.Equal(t, 1, s.Totals.Requests)
}

func TestSummaryIncludesLiveRateCounter(t *testing.T) {
	ledger, limiter := testLedger()
	ctx := context.Background()

	limiter.CheckAndIncrement(ctx, "caller")
	limiter.CheckAndIncrement(ctx, "caller")

	s := ledger.Summary(ctx, 1, "caller")
	assert.Equal(t, 2, s.RateLimit.Current)
	assert.Equal(t, 100, s.RateLimit.Limit)
}

func TestStoreFailureIsSwallowed(t *testing.T) {
	ledger := New(failingStore{}, nil, testLogger())
	ctx := context.Background()

	// Must not panic or propagate.
	ledger.LogRequest(ctx, Event{Provider: "openai", Cost: 0.01})

	s := ledger.Summary(ctx, 3, "caller")
	assert.Empty(t, s.Daily)
	assert.Zero(t, s.Totals.Requests)
}

func TestNilStoreIsNoop(t *testing.T) {
	ledger := New(nil, nil, testLogger())
	ctx := context.Background()

	ledger.LogRequest(ctx, Event{Provider: "openai"})
	s := ledger.Summary(ctx, 1, "caller")
	assert.Zero(t, s.Totals.Requests)
}

func TestDayRecordZeroValueConstruction(t *testing.T) {
	r := newDayRecord("2026-08-30")
	assert.NotNil(t, r.ByProvider)
	assert.NotNil(t, r.ByCapability)
	assert.Zero(t, r.Requests)
}
