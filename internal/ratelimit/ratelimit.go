package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/relayhub/relay-gateway/internal/kvstore"
)

const bucketTTL = time.Hour

// Result is the outcome of a rate-limit check
type Result struct {
	Allowed   bool      `json:"allowed"`
	Current   int       `json:"current"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter is a sliding-hour request counter keyed by caller identity and
// backed by the expiring key/value store. It fails open: rate limiting is
// a cost-protection mechanism, not a security boundary, so store trouble
// degrades to permissive rather than blocking traffic.
type Limiter struct {
	store  kvstore.Store
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// New creates a limiter. A nil store means rate limiting is disabled and
// every check is allowed with a sentinel remaining value.
func New(store kvstore.Store, limit int, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Limiter) bucketKey(callerID string, t time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s", callerID, t.UTC().Format("2006-01-02-15"))
}

func (l *Limiter) resetAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(time.Hour)
}

// CheckAndIncrement counts one request for the caller in the current UTC
// hour. When the caller is at the limit the counter is not mutated.
// Increments are read-then-write; the race under concurrent requests from
// one caller is accepted looseness for an advisory quota.
func (l *Limiter) CheckAndIncrement(ctx context.Context, callerID string) Result {
	now := l.now()
	reset := l.resetAt(now)

	if l.store == nil {
		return Result{Allowed: true, Remaining: -1, Limit: l.limit, ResetAt: reset}
	}

	key := l.bucketKey(callerID, now)
	current, err := l.readCount(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit store read failed, failing open", "caller", callerID, "error", err)
		return Result{Allowed: true, Remaining: -1, Limit: l.limit, ResetAt: reset}
	}

	if current >= l.limit {
		return Result{
			Allowed:   false,
			Current:   current,
			Remaining: 0,
			Limit:     l.limit,
			ResetAt:   reset,
		}
	}

	next := current + 1
	if err := l.store.Put(ctx, key, strconv.Itoa(next), bucketTTL); err != nil {
		l.logger.Warn("rate limit store write failed, failing open", "caller", callerID, "error", err)
		return Result{Allowed: true, Remaining: -1, Limit: l.limit, ResetAt: reset}
	}

	return Result{
		Allowed:   true,
		Current:   next,
		Remaining: l.limit - next,
		Limit:     l.limit,
		ResetAt:   reset,
	}
}

// Peek returns the caller's current-hour counter without mutating it,
// for operational visibility in usage summaries.
func (l *Limiter) Peek(ctx context.Context, callerID string) Result {
	now := l.now()
	reset := l.resetAt(now)

	if l.store == nil {
		return Result{Allowed: true, Remaining: -1, Limit: l.limit, ResetAt: reset}
	}

	current, err := l.readCount(ctx, l.bucketKey(callerID, now))
	if err != nil {
		return Result{Allowed: true, Remaining: -1, Limit: l.limit, ResetAt: reset}
	}

	remaining := l.limit - current
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   current < l.limit,
		Current:   current,
		Remaining: remaining,
		Limit:     l.limit,
		ResetAt:   reset,
	}
}

func (l *Limiter) readCount(ctx context.Context, key string) (int, error) {
	val, err := l.store.Get(ctx, key)
	if err == kvstore.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt rate limit bucket %s: %w", key, err)
	}
	return count, nil
}
