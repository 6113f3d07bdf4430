package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
)

// PayoutUseCase drives entries that depend on an external payment provider.
// A gateway failure leaves the entry failed and never reaches settlement.
type PayoutUseCase struct {
	entryRepo EntryRepository
	entries   *EntryUseCase
	gateways  GatewayRegistry
	logger    zerolog.Logger
}

// NewPayoutUseCase creates a new PayoutUseCase.
func NewPayoutUseCase(entryRepo EntryRepository, entries *EntryUseCase, gateways GatewayRegistry, logger zerolog.Logger) *PayoutUseCase {
	return &PayoutUseCase{
		entryRepo: entryRepo,
		entries:   entries,
		gateways:  gateways,
		logger:    logger.With().Str("component", "payouts").Logger(),
	}
}

// InitiatePayout hands a pending or scheduled withdrawal to provider.
func (uc *PayoutUseCase) InitiatePayout(ctx context.Context, entryID, provider string) (*domain.LedgerEntry, error) {
	return uc.initiate(ctx, entryID, provider, domain.EntryTypeWithdrawal)
}

// InitiateDeposit asks provider to collect a pending deposit.
func (uc *PayoutUseCase) InitiateDeposit(ctx context.Context, entryID, provider string) (*domain.LedgerEntry, error) {
	return uc.initiate(ctx, entryID, provider, domain.EntryTypeDeposit)
}

func (uc *PayoutUseCase) initiate(ctx context.Context, entryID, provider string, want domain.EntryType) (*domain.LedgerEntry, error) {
	gateway, err := uc.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	entry, err := uc.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if entry.Type != want {
		return nil, fmt.Errorf("%w: entry %s is %s", domain.ErrNotPayoutEntry, entry.ID, entry.Type)
	}

	if !entry.Status.CanTransitionTo(domain.EntryStatusCompleted) {
		return nil, fmt.Errorf("%w: entry %s is %s", domain.ErrInvalidStateTransition, entry.ID, entry.Status)
	}

	var reference string
	if want == domain.EntryTypeWithdrawal {
		reference, err = gateway.InitiatePayout(ctx, entry)
	} else {
		reference, err = gateway.InitiateDeposit(ctx, entry)
	}
	if err != nil {
		uc.logger.Error().Err(err).Str("entry_id", entry.ID).Str("provider", provider).Msg("gateway initiation failed")
		if _, failErr := uc.entries.FailEntry(ctx, entry.ID, err.Error()); failErr != nil {
			uc.logger.Error().Err(failErr).Str("entry_id", entry.ID).Msg("failed to mark entry failed")
		}
		return nil, fmt.Errorf("initiate with %s: %w", provider, err)
	}

	patch := map[string]any{
		domain.MetadataProvider:          provider,
		domain.MetadataExternalReference: reference,
	}
	if err := uc.entryRepo.MergeMetadata(ctx, entry.ID, patch, time.Now().UTC()); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("entry_id", entry.ID).
		Str("provider", provider).
		Str("external_reference", reference).
		Msg("gateway initiation accepted")

	return uc.entryRepo.GetByID(ctx, entry.ID)
}

// CallbackResult reports what a provider callback did.
type CallbackResult struct {
	Entry  *domain.LedgerEntry
	Status GatewayStatus
	// Applied is false when the entry had already left pending.
	Applied bool
}

// HandleCallback verifies a provider notification and completes or fails
// the referenced entry. Redelivered callbacks are harmless.
func (uc *PayoutUseCase) HandleCallback(ctx context.Context, provider, reference string) (*CallbackResult, error) {
	gateway, err := uc.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	entry, err := uc.entryRepo.GetByExternalReference(ctx, provider, reference)
	if err != nil {
		return nil, err
	}

	status, err := gateway.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify with %s: %w", provider, err)
	}

	result := &CallbackResult{Entry: entry, Status: status}

	switch status {
	case GatewayStatusSucceeded:
		completion, err := uc.entries.MarkEntryCompleted(ctx, MarkCompletedInput{EntryID: entry.ID})
		if err != nil {
			return nil, err
		}
		result.Entry = completion.Entry
		result.Applied = !completion.AlreadyCompleted
	case GatewayStatusFailed:
		failed, err := uc.entries.FailEntry(ctx, entry.ID, "provider reported failure")
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result.Entry = failed
		result.Applied = true
	}

	return result, nil
}

// StatusRecorder is implemented by gateways whose outcomes are reported by
// an operator instead of being queried from a provider.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, reference string, status GatewayStatus) error
}

// RecordOutcome stores an operator-reported outcome with provider and then
// processes it exactly like a provider callback.
func (uc *PayoutUseCase) RecordOutcome(ctx context.Context, provider, reference string, status GatewayStatus) (*CallbackResult, error) {
	if status != GatewayStatusSucceeded && status != GatewayStatusFailed {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	gateway, err := uc.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	recorder, ok := gateway.(StatusRecorder)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOutcomeNotReportable, provider)
	}

	if err := recorder.RecordStatus(ctx, reference, status); err != nil {
		return nil, err
	}

	return uc.HandleCallback(ctx, provider, reference)
}
