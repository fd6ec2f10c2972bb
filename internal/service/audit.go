package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"roulette-bot/internal/model"
)

// LedgerChecker is the repair surface of the ledger.
type LedgerChecker interface {
	Verify(ctx context.Context) ([]model.LedgerMismatch, error)
	Rebuild(ctx context.Context) (int64, error)
}

// AuditConfig holds configuration for the ledger auditor.
type AuditConfig struct {
	// Interval is how often the aggregate is checked against the log.
	Interval time.Duration

	// Repair rebuilds the aggregate when a mismatch is found.
	Repair bool

	// Timeout bounds a single run.
	// Default: 5 minutes
	Timeout time.Duration
}

// AuditReport is the result of one audit run.
type AuditReport struct {
	Mismatches []model.LedgerMismatch `json:"mismatches"`
	Rebuilt    int64                  `json:"rebuilt"`
}

// LedgerAuditor periodically verifies that every aggregate count equals the
// sum of its logged deltas.
type LedgerAuditor struct {
	ledger LedgerChecker
	config AuditConfig
	logger zerolog.Logger
}

// NewLedgerAuditor creates a new auditor.
func NewLedgerAuditor(ledger LedgerChecker, config AuditConfig, logger zerolog.Logger) *LedgerAuditor {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}
	return &LedgerAuditor{
		ledger: ledger,
		config: config,
		logger: logger.With().Str("component", "ledger_audit").Logger(),
	}
}

// Run audits on every tick until ctx is done. A zero interval disables it.
func (a *LedgerAuditor) Run(ctx context.Context) {
	if a.config.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	a.logger.Info().
		Dur("interval", a.config.Interval).
		Bool("repair", a.config.Repair).
		Msg("ledger auditor started")

	for {
		select {
		case <-ticker.C:
			if _, err := a.RunNow(ctx); err != nil {
				a.logger.Error().Err(err).Msg("ledger audit failed")
			}
		case <-ctx.Done():
			a.logger.Info().Msg("ledger auditor stopped")
			return
		}
	}
}

// RunNow performs one audit and, if configured, repairs the aggregate.
func (a *LedgerAuditor) RunNow(ctx context.Context) (*AuditReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	mismatches, err := a.ledger.Verify(ctx)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{Mismatches: mismatches}
	if len(mismatches) == 0 {
		a.logger.Debug().Msg("ledger consistent")
		return report, nil
	}

	for _, m := range mismatches {
		a.logger.Warn().
			Int64("user_id", m.UserID).
			Int64("item_id", m.ItemID).
			Int64("aggregate", m.Aggregate).
			Int64("logged", m.Logged).
			Msg("ledger mismatch")
	}

	if !a.config.Repair {
		return report, nil
	}

	n, err := a.ledger.Rebuild(ctx)
	if err != nil {
		return report, err
	}
	report.Rebuilt = n
	a.logger.Info().Int64("rows", n).Msg("ledger aggregate rebuilt")
	return report, nil
}
