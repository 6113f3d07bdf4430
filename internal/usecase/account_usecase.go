package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	accountRepo AccountRepository
	userRepo    UserRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, userRepo UserRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		userRepo:    userRepo,
		idGen:       idGen,
	}
}

// OpenAccountInput represents input for opening an extra account.
type OpenAccountInput struct {
	UserID               string
	Name                 string
	Currency             string
	AllowNegativeBalance bool
}

// OpenAccount opens a new zero-balance account for an existing user.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	currency := domain.NormalizeCurrency(input.Currency)
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	if _, err := uc.userRepo.GetByID(ctx, input.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:                   uc.idGen.Generate(),
		UserID:               input.UserID,
		Name:                 input.Name,
		Currency:             currency,
		Status:               domain.AccountStatusActive,
		Balance:              decimal.Zero,
		Version:              0,
		AllowNegativeBalance: input.AllowNegativeBalance,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := uc.accountRepo.Create(ctx, nil, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListUserAccounts lists a user's accounts in opening order.
func (uc *AccountUseCase) ListUserAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	if _, err := uc.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return uc.accountRepo.ListByUser(ctx, userID)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}
	return uc.accountRepo.List(ctx, input.Limit, input.Offset)
}
