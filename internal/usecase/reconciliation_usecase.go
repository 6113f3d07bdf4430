package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	settler     Settler
	grace       time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	settler Settler,
	grace time.Duration,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		settler:     settler,
		grace:       grace,
		logger:      logger.With().Str("component", "reconciliation").Logger(),
		metrics:     metrics,
	}
}

// SweepFailure is an entry the sweep could not settle.
type SweepFailure struct {
	EntryID string
	Error   string
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned  int
	Settled  int
	Failures []SweepFailure
	SweptAt  time.Time
}

// SweepUnsettled settles completed entries that still lack the
// balance_adjusted marker after the grace period. Settlement re-runs fan-out,
// whose handlers are idempotent.
func (uc *ReconciliationUseCase) SweepUnsettled(ctx context.Context, limit int) (*SweepResult, error) {
	if limit <= 0 {
		limit = DefaultSweepBatchSize
	}

	now := time.Now().UTC()
	entries, err := uc.entryRepo.ListUnsettled(ctx, now.Add(-uc.grace), limit)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(entries), Failures: make([]SweepFailure, 0), SweptAt: now}

	for _, entry := range entries {
		event, err := uc.settler.Settle(ctx, entry.ID)
		if err != nil {
			result.Failures = append(result.Failures, SweepFailure{EntryID: entry.ID, Error: err.Error()})
			continue
		}
		if event != nil {
			result.Settled++
			if uc.metrics != nil {
				uc.metrics.UnsettledSwept.Inc()
			}
		}
	}

	uc.logger.Info().
		Int("scanned", result.Scanned).
		Int("settled", result.Settled).
		Int("failed", len(result.Failures)).
		Msg("unsettled sweep finished")

	return result, nil
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount recomputes the balance from the account's settled entries
// and compares it with the stored balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	credits, debits, err := uc.entryRepo.SettledTotals(ctx, accountID)
	if err != nil {
		return nil, err
	}

	calculated := credits.Sub(debits)
	diff := account.Balance.Sub(calculated)

	result := &ReconciliationResult{
		AccountID:         accountID,
		RecordedBalance:   account.Balance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       time.Now().UTC(),
	}

	if !result.IsReconciled {
		if uc.metrics != nil {
			uc.metrics.BalanceMismatches.Inc()
		}
		uc.logger.Warn().
			Str("account_id", accountID).
			Str("recorded", account.Balance.String()).
			Str("calculated", calculated.String()).
			Msg("balance mismatch")
	}

	return result, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	const pageSize = 500

	var results []*ReconciliationResult
	for offset := 0; ; offset += pageSize {
		accounts, err := uc.accountRepo.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result, err := uc.ReconcileAccount(ctx, account.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
			}
			results = append(results, result)
		}

		if len(accounts) < pageSize {
			break
		}
	}

	return results, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	UnsettledEntries   int
	Discrepancies      []*ReconciliationResult
	CheckedAt          time.Time
}

// GenerateReport reconciles every account and counts entries still waiting
// for settlement.
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	unsettled, err := uc.entryRepo.ListUnsettled(ctx, now.Add(-uc.grace), DefaultSweepBatchSize)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		UnsettledEntries: len(unsettled),
		Discrepancies:    make([]*ReconciliationResult, 0),
		CheckedAt:        now,
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
