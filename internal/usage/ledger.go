package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/relayhub/relay-gateway/internal/kvstore"
	"github.com/relayhub/relay-gateway/internal/ratelimit"
)

const (
	dayFormat      = "2006-01-02"
	recordTTL      = 7 * 24 * time.Hour
	maxSummaryDays = 7
)

// TokenCounts holds input/output token usage for one request
type TokenCounts struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Event is one completed request to be recorded in the ledger
type Event struct {
	Capability string
	Provider   string
	Model      string
	Tokens     TokenCounts
	Cost       float64
	Duration   time.Duration
}

// ProviderUsage is the per-provider slice of a day record
type ProviderUsage struct {
	Requests     int     `json:"requests"`
	Cost         float64 `json:"cost"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
}

// CapabilityUsage is the per-capability slice of a day record
type CapabilityUsage struct {
	Requests int     `json:"requests"`
	Cost     float64 `json:"cost"`
}

// DayRecord aggregates one UTC calendar day of usage
type DayRecord struct {
	Date         string                      `json:"date"`
	Requests     int                         `json:"requests"`
	Cost         float64                     `json:"cost"`
	InputTokens  int                         `json:"input_tokens"`
	OutputTokens int                         `json:"output_tokens"`
	DurationMs   int64                       `json:"duration_ms"`
	ByProvider   map[string]*ProviderUsage   `json:"by_provider"`
	ByCapability map[string]*CapabilityUsage `json:"by_capability"`
}

// newDayRecord builds a fully zeroed record so every field is defined
// before the first mutation.
func newDayRecord(date string) *DayRecord {
	return &DayRecord{
		Date:         date,
		ByProvider:   make(map[string]*ProviderUsage),
		ByCapability: make(map[string]*CapabilityUsage),
	}
}

func (r *DayRecord) add(e Event) {
	r.Requests++
	r.Cost += e.Cost
	r.InputTokens += e.Tokens.Input
	r.OutputTokens += e.Tokens.Output
	r.DurationMs += e.Duration.Milliseconds()

	if e.Provider != "" {
		p, ok := r.ByProvider[e.Provider]
		if !ok {
			p = &ProviderUsage{}
			r.ByProvider[e.Provider] = p
		}
		p.Requests++
		p.Cost += e.Cost
		p.InputTokens += e.Tokens.Input
		p.OutputTokens += e.Tokens.Output
	}

	if e.Capability != "" {
		c, ok := r.ByCapability[e.Capability]
		if !ok {
			c = &CapabilityUsage{}
			r.ByCapability[e.Capability] = c
		}
		c.Requests++
		c.Cost += e.Cost
	}
}

// Totals is the cross-day aggregation in a summary
type Totals struct {
	Requests     int     `json:"requests"`
	Cost         float64 `json:"cost"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	DurationMs   int64   `json:"duration_ms"`
}

// Summary is the ledger read model for operations
type Summary struct {
	Days      int              `json:"days"`
	Totals    Totals           `json:"totals"`
	Daily     []*DayRecord     `json:"daily"`
	RateLimit ratelimit.Result `json:"rate_limit"`
}

// Ledger accumulates per-day usage in the expiring key/value store.
// Writes are best-effort: accounting must never fail the request path.
type Ledger struct {
	store   kvstore.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a ledger. The limiter is consulted only for the live
// current-hour counter in summaries.
func New(store kvstore.Store, limiter *ratelimit.Limiter, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
}

func dayKey(date string) string {
	return fmt.Sprintf("usage:%s", date)
}

// LogRequest records one completed request into today's bucket.
// Any store failure is logged and swallowed.
func (l *Ledger) LogRequest(ctx context.Context, e Event) {
	if l.store == nil {
		return
	}

	date := l.now().UTC().Format(dayFormat)
	record, err := l.readDay(ctx, date)
	if err != nil {
		l.logger.Warn("usage read failed, dropping event", "date", date, "error", err)
		return
	}
	if record == nil {
		record = newDayRecord(date)
	}

	record.add(e)

	data, err := json.Marshal(record)
	if err != nil {
		l.logger.Warn("usage marshal failed, dropping event", "date", date, "error", err)
		return
	}
	if err := l.store.Put(ctx, dayKey(date), string(data), recordTTL); err != nil {
		l.logger.Warn("usage write failed, dropping event", "date", date, "error", err)
	}
}

// Summary sums the last N day buckets, newest first, silently skipping
// missing days, and attaches the caller's live rate-limit counter.
func (l *Ledger) Summary(ctx context.Context, days int, callerID string) *Summary {
	if days <= 0 || days > maxSummaryDays {
		days = maxSummaryDays
	}

	s := &Summary{
		Days:  days,
		Daily: []*DayRecord{},
	}

	if l.store != nil {
		today := l.now().UTC()
		for i := 0; i < days; i++ {
			date := today.AddDate(0, 0, -i).Format(dayFormat)
			record, err := l.readDay(ctx, date)
			if err != nil {
				l.logger.Warn("usage read failed, skipping day", "date", date, "error", err)
				continue
			}
			if record == nil {
				continue
			}
			s.Daily = append(s.Daily, record)
			s.Totals.Requests += record.Requests
			s.Totals.Cost += record.Cost
			s.Totals.InputTokens += record.InputTokens
			s.Totals.OutputTokens += record.OutputTokens
			s.Totals.DurationMs += record.DurationMs
		}
	}

	if l.limiter != nil {
		s.RateLimit = l.limiter.Peek(ctx, callerID)
	}

	return s
}

func (l *Ledger) readDay(ctx context.Context, date string) (*DayRecord, error) {
	val, err := l.store.Get(ctx, dayKey(date))
	if err == kvstore.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := newDayRecord(date)
	if err := json.Unmarshal([]byte(val), record); err != nil {
		return nil, fmt.Errorf("corrupt usage record %s: %w", date, err)
	}
	return record, nil
}
