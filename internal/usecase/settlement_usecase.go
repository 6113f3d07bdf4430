package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// SettledDispatcher fans a settled event out to dependent processors.
type SettledDispatcher interface {
	Dispatch(ctx context.Context, event *domain.SettledEvent) error
}

// SettlementUseCase applies the balance effect of completed entries exactly
// once. It is the only holder of a BalanceStore.
type SettlementUseCase struct {
	txManager  TransactionManager
	entryRepo  EntryRepository
	balances   BalanceStore
	outboxRepo OutboxRepository
	idGen      IDGenerator
	retrier    Retrier
	dispatcher SettledDispatcher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	balances BalanceStore,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:  txManager,
		entryRepo:  entryRepo,
		balances:   balances,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		retrier:    retrier,
		logger:     logger.With().Str("component", "settlement").Logger(),
		metrics:    metrics,
	}
}

// SetDispatcher enables synchronous fan-out after each settlement. Without a
// dispatcher the settled event only reaches the outbox.
func (uc *SettlementUseCase) SetDispatcher(d SettledDispatcher) {
	uc.dispatcher = d
}

// Settle applies the entry's signed amount to its account and sets the
// balance_adjusted marker in the same transaction. It returns a nil event when
// the entry was already settled. Fan-out failures never fail Settle.
func (uc *SettlementUseCase) Settle(ctx context.Context, entryID string) (*domain.SettledEvent, error) {
	start := time.Now()

	var (
		event  *domain.SettledEvent
		locked *domain.LedgerEntry
	)

	op := func() error {
		var err error
		event, locked, err = uc.settleOnce(ctx, entryID)
		return err
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}

	if err != nil {
		uc.reportFailure(entryID, locked, err)
		return nil, err
	}

	if event == nil {
		uc.logger.Debug().Str("entry_id", entryID).Msg("entry already settled")
		return nil, nil
	}

	if uc.metrics != nil {
		uc.metrics.EntriesSettled.WithLabelValues(string(event.Entry.Type)).Inc()
		uc.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
		amount, _ := event.Entry.Amount.Float64()
		dir, _ := event.Entry.Type.Direction()
		uc.metrics.SettledAmount.WithLabelValues(dir.String()).Observe(amount)
	}

	uc.logger.Info().
		Str("entry_id", event.Entry.ID).
		Str("reference", event.Entry.Reference).
		Str("account_id", event.Account.ID).
		Str("type", string(event.Entry.Type)).
		Str("delta", event.Delta.String()).
		Str("balance", event.Account.Balance.String()).
		Msg("entry settled")

	if uc.dispatcher != nil {
		if err := uc.dispatcher.Dispatch(ctx, event); err != nil {
			uc.logger.Warn().Err(err).Str("entry_id", event.Entry.ID).Msg("settlement fan-out incomplete")
		}
	}

	return event, nil
}

func (uc *SettlementUseCase) settleOnce(ctx context.Context, entryID string) (*domain.SettledEvent, *domain.LedgerEntry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, nil, err
	}

	if entry.Status != domain.EntryStatusCompleted {
		return nil, entry, fmt.Errorf("%w: entry %s is %s", domain.ErrEntryNotCompleted, entry.ID, entry.Status)
	}

	if entry.BalanceAdjusted() {
		return nil, entry, nil
	}

	delta, err := entry.SignedAmount()
	if err != nil {
		return nil, entry, err
	}

	now := time.Now().UTC()

	account, err := uc.balances.ApplyDelta(ctx, tx, entry.AccountID, delta, now)
	if err != nil {
		return nil, entry, err
	}

	if err := uc.entryRepo.MarkBalanceAdjusted(ctx, tx, entry.ID, now); err != nil {
		return nil, entry, err
	}

	settled := *entry
	settled.Metadata = domain.CloneMetadata(entry.Metadata)
	settled.Metadata[domain.MetadataBalanceAdjusted] = true
	settled.UpdatedAt = now

	event := &domain.SettledEvent{
		Entry:     &settled,
		Account:   account,
		Delta:     delta,
		SettledAt: now,
	}

	if uc.outboxRepo != nil {
		outboxEvent := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   entry.ID,
			AggregateType: domain.AggregateTypeEntry,
			EventType:     domain.EventTypeEntrySettled,
			Payload:       domain.NewEntrySettledPayload(event),
			CreatedAt:     now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, outboxEvent); err != nil {
			return nil, entry, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, entry, err
	}

	return event, entry, nil
}

func (uc *SettlementUseCase) reportFailure(entryID string, entry *domain.LedgerEntry, err error) {
	reason := settlementFailureReason(err)

	if uc.metrics != nil {
		uc.metrics.SettlementErrors.WithLabelValues(reason).Inc()
	}

	ev := uc.logger.Error().Err(err).Str("reason", reason).Str("entry_id", entryID)
	if entry != nil {
		ev = ev.
			Str("reference", entry.Reference).
			Str("account_id", entry.AccountID).
			Str("type", string(entry.Type)).
			Str("amount", entry.Amount.String()).
			Str("currency", entry.Currency).
			Str("status", string(entry.Status))
	}
	ev.Msg("settlement failed, entry requires reconciliation")
}

func settlementFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownEntryType):
		return "unknown_entry_type"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrEntryNotCompleted):
		return "entry_not_completed"
	case errors.Is(err, domain.ErrEntryNotFound):
		return "entry_not_found"
	default:
		return "storage"
	}
}
