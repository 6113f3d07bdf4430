package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
)

// TransferUseCase moves funds between two accounts of the same currency as
// a completed transfer_out / transfer_in pair.
type TransferUseCase struct {
	accountRepo AccountRepository
	entries     *EntryUseCase
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(accountRepo AccountRepository, entries *EntryUseCase) *TransferUseCase {
	return &TransferUseCase{
		accountRepo: accountRepo,
		entries:     entries,
	}
}

// CreateTransferInput represents input for creating a transfer.
type CreateTransferInput struct {
	Metadata       map[string]any
	FromAccountID  string
	ToAccountID    string
	Description    string
	IdempotencyKey string
	Amount         decimal.Decimal
}

// Transfer is the pair of entries recording one transfer.
type Transfer struct {
	Out *domain.LedgerEntry
	In  *domain.LedgerEntry
}

// CreateTransfer records both legs in one transaction and settles them,
// debit first.
func (uc *TransferUseCase) CreateTransfer(ctx context.Context, input CreateTransferInput) (*Transfer, error) {
	if input.FromAccountID == input.ToAccountID {
		return nil, domain.ErrSameAccount
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	from, err := uc.accountRepo.GetByID(ctx, input.FromAccountID)
	if err != nil {
		return nil, err
	}

	to, err := uc.accountRepo.GetByID(ctx, input.ToAccountID)
	if err != nil {
		return nil, err
	}

	if from.Currency != to.Currency {
		return nil, domain.ErrCurrencyMismatch
	}

	outMeta := domain.CloneMetadata(input.Metadata)
	outMeta[domain.MetadataCounterpartyAccount] = to.ID
	inMeta := domain.CloneMetadata(input.Metadata)
	inMeta[domain.MetadataCounterpartyAccount] = from.ID

	var outKey, inKey string
	if input.IdempotencyKey != "" {
		outKey = fmt.Sprintf("transfer:%s:out", input.IdempotencyKey)
		inKey = fmt.Sprintf("transfer:%s:in", input.IdempotencyKey)
	}

	entries, err := uc.entries.CreateEntries(ctx, []CreateEntryInput{
		{
			AccountID:      from.ID,
			Type:           domain.EntryTypeTransferOut,
			Amount:         input.Amount,
			Currency:       from.Currency,
			Status:         domain.EntryStatusCompleted,
			Description:    input.Description,
			Metadata:       outMeta,
			IdempotencyKey: outKey,
		},
		{
			AccountID:      to.ID,
			Type:           domain.EntryTypeTransferIn,
			Amount:         input.Amount,
			Currency:       to.Currency,
			Status:         domain.EntryStatusCompleted,
			Description:    input.Description,
			Metadata:       inMeta,
			IdempotencyKey: inKey,
		},
	})
	if err != nil {
		return nil, err
	}

	return &Transfer{Out: entries[0], In: entries[1]}, nil
}
