package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/relayhub/relay-gateway/internal/usage"
)

// Scheduler runs periodic operational jobs against the usage ledger
type Scheduler struct {
	cron   *cron.Cron
	ledger *usage.Ledger
	logger *slog.Logger
}

// New creates a scheduler with the hourly usage summary job registered
func New(ledger *usage.Ledger, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cron:   cron.New(),
		ledger: ledger,
		logger: logger,
	}
	s.scheduleUsageSummary()
	return s
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// scheduleUsageSummary logs the current day's totals at the top of each hour
func (s *Scheduler) scheduleUsageSummary() {
	_, err := s.cron.AddFunc("0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		summary := s.ledger.Summary(ctx, 1, "scheduler")
		s.logger.Info("hourly usage summary",
			"requests", summary.Totals.Requests,
			"cost_usd", summary.Totals.Cost,
			"input_tokens", summary.Totals.InputTokens,
			"output_tokens", summary.Totals.OutputTokens,
		)
	})
	if err != nil {
		s.logger.Error("failed to schedule usage summary", "error", err)
	}
}
