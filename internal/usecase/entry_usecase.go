package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// EntryUseCase owns the ledger entry state machine. Every path that makes an
// entry completed, whether created as completed or transitioned to it,
// converges on the Settler.
type EntryUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	settler     Settler
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	settler Settler,
	idGen IDGenerator,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *EntryUseCase {
	return &EntryUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		settler:     settler,
		idGen:       idGen,
		logger:      logger.With().Str("component", "entries").Logger(),
		metrics:     metrics,
	}
}

// CreateEntryInput represents input for creating a ledger entry.
type CreateEntryInput struct {
	Metadata       map[string]any
	AccountID      string
	Currency       string
	Description    string
	IdempotencyKey string
	Type           domain.EntryType
	Status         domain.EntryStatus
	Amount         decimal.Decimal
}

// CreateEntry records a new ledger entry. Entries created as completed are
// settled before returning; a settlement failure is logged and left to
// reconciliation rather than failing the call.
func (uc *EntryUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.LedgerEntry, error) {
	entries, err := uc.CreateEntries(ctx, []CreateEntryInput{input})
	if err != nil {
		return nil, err
	}

	return entries[0], nil
}

// CreateEntries records several entries atomically, then settles the
// completed ones in input order.
func (uc *EntryUseCase) CreateEntries(ctx context.Context, inputs []CreateEntryInput) ([]*domain.LedgerEntry, error) {
	now := time.Now().UTC()

	entries := make([]*domain.LedgerEntry, 0, len(inputs))
	for _, input := range inputs {
		account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
		if err != nil {
			return nil, err
		}

		entry, err := uc.newEntry(account, input, now)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, entry := range entries {
		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for i, entry := range entries {
		uc.recordCreated(entry)

		if entry.Status == domain.EntryStatusCompleted {
			if settled := uc.settle(ctx, entry); settled != nil {
				entries[i] = settled
			}
		}
	}

	return entries, nil
}

// newEntry validates input against the owning account and builds the entry.
func (uc *EntryUseCase) newEntry(account *domain.Account, input CreateEntryInput, now time.Time) (*domain.LedgerEntry, error) {
	dir, err := input.Type.Direction()
	if err != nil {
		return nil, err
	}

	if err := account.AcceptsEntries(); err != nil {
		return nil, err
	}

	currency := domain.NormalizeCurrency(input.Currency)
	if currency == "" {
		currency = account.Currency
	}
	if currency != account.Currency {
		return nil, domain.ErrCurrencyMismatch
	}

	status := input.Status
	if status == "" {
		status = domain.EntryStatusPending
	}

	if dir == domain.DirectionDebit {
		if err := account.ValidateDebit(input.Amount); err != nil {
			return nil, err
		}
	}

	metadata := domain.CloneMetadata(input.Metadata)
	delete(metadata, domain.MetadataBalanceAdjusted)

	entry := &domain.LedgerEntry{
		ID:             uc.idGen.Generate(),
		Reference:      ReferencePrefix + uc.idGen.Generate(),
		AccountID:      account.ID,
		Type:           input.Type,
		Amount:         input.Amount,
		Currency:       currency,
		Status:         status,
		Description:    input.Description,
		Metadata:       metadata,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status == domain.EntryStatusCompleted {
		completedAt := now
		entry.CompletedAt = &completedAt
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// MarkCompletedInput represents input for completing an entry.
type MarkCompletedInput struct {
	CompletedAt *time.Time
	EntryID     string
}

// CompletionResult reports the outcome of MarkEntryCompleted.
type CompletionResult struct {
	Entry *domain.LedgerEntry
	// AlreadyCompleted is set for callers that lost the race; they take no action.
	AlreadyCompleted bool
	Settled          bool
	SettlementErr    error
}

// MarkEntryCompleted moves a pending or scheduled entry to completed with a
// compare-and-set on status. Exactly one concurrent caller wins and settles.
func (uc *EntryUseCase) MarkEntryCompleted(ctx context.Context, input MarkCompletedInput) (*CompletionResult, error) {
	at := time.Now().UTC()
	if input.CompletedAt != nil {
		at = input.CompletedAt.UTC()
	}

	entry, err := uc.transition(ctx, input.EntryID, domain.EntryStatusCompleted, at, nil)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			current, getErr := uc.entryRepo.GetByID(ctx, input.EntryID)
			if getErr == nil && current.Status == domain.EntryStatusCompleted {
				return &CompletionResult{Entry: current, AlreadyCompleted: true}, nil
			}
		}
		return nil, err
	}

	result := &CompletionResult{Entry: entry}

	event, err := uc.settler.Settle(ctx, entry.ID)
	switch {
	case err != nil:
		result.SettlementErr = err
	case event != nil:
		result.Entry = event.Entry
		result.Settled = true
	}

	return result, nil
}

// CancelEntry moves a pending or scheduled entry to cancelled.
func (uc *EntryUseCase) CancelEntry(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error) {
	return uc.transition(ctx, entryID, domain.EntryStatusCancelled, time.Now().UTC(), reasonPatch(reason))
}

// FailEntry moves a pending or scheduled entry to failed.
func (uc *EntryUseCase) FailEntry(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error) {
	return uc.transition(ctx, entryID, domain.EntryStatusFailed, time.Now().UTC(), reasonPatch(reason))
}

func (uc *EntryUseCase) transition(
	ctx context.Context,
	entryID string,
	status domain.EntryStatus,
	at time.Time,
	patch map[string]any,
) (*domain.LedgerEntry, error) {
	entry, ok, err := uc.entryRepo.TransitionStatus(ctx, entryID, status, at, patch)
	if err != nil {
		return nil, err
	}

	if !ok {
		current, err := uc.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			return nil, err
		}
		uc.recordTransition(status, "rejected")
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, current.Status, status)
	}

	uc.recordTransition(status, "applied")
	uc.logger.Info().
		Str("entry_id", entry.ID).
		Str("status", string(status)).
		Msg("entry transitioned")

	return entry, nil
}

func reasonPatch(reason string) map[string]any {
	if reason == "" {
		return nil
	}
	return map[string]any{domain.MetadataFailureReason: reason}
}

// settle runs the settler for a freshly completed entry and returns the
// settled view, or nil when settlement did not happen.
func (uc *EntryUseCase) settle(ctx context.Context, entry *domain.LedgerEntry) *domain.LedgerEntry {
	event, err := uc.settler.Settle(ctx, entry.ID)
	if err != nil || event == nil {
		return nil
	}
	return event.Entry
}

// GetEntry retrieves an entry by ID.
func (uc *EntryUseCase) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

// ListEntriesInput represents input for listing entries of an account.
type ListEntriesInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListEntriesByAccount lists entries for an account, newest first.
func (uc *EntryUseCase) ListEntriesByAccount(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	if _, err := uc.accountRepo.GetByID(ctx, input.AccountID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.ListByAccount(ctx, input.AccountID, limit, offset)
}

func (uc *EntryUseCase) recordCreated(entry *domain.LedgerEntry) {
	if uc.metrics != nil {
		uc.metrics.EntriesCreated.WithLabelValues(string(entry.Type), string(entry.Status)).Inc()
	}
	uc.logger.Info().
		Str("entry_id", entry.ID).
		Str("reference", entry.Reference).
		Str("account_id", entry.AccountID).
		Str("type", string(entry.Type)).
		Str("amount", entry.Amount.String()).
		Str("status", string(entry.Status)).
		Msg("entry created")
}

func (uc *EntryUseCase) recordTransition(status domain.EntryStatus, outcome string) {
	if uc.metrics != nil {
		uc.metrics.EntryTransitions.WithLabelValues(string(status), outcome).Inc()
	}
}
