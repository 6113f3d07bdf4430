package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/postgres/generated"
	"github.com/iho/rewardledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// Create creates a new account. A nil tx writes through the pool.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := queriesFor(r.queries, tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:                   account.ID,
		UserID:               account.UserID,
		Name:                 account.Name,
		Currency:             account.Currency,
		Status:               string(account.Status),
		Balance:              decimalToNumeric(account.Balance),
		Version:              account.Version,
		AllowNegativeBalance: account.AllowNegativeBalance,
		CreatedAt:            timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:            timeToPgTimestamptz(account.UpdatedAt),
	})
	if isForeignKeyViolation(err) {
		return domain.ErrUserNotFound
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// ListByUser returns the accounts of a user in opening order.
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// PrimaryForUser returns the earliest opened account of the user in currency.
func (r *AccountRepository) PrimaryForUser(ctx context.Context, userID, currency string) (*domain.Account, error) {
	row, err := r.queries.GetPrimaryAccount(ctx, generated.GetPrimaryAccountParams{
		UserID:   userID,
		Currency: currency,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToAccounts(rows), nil
}

// BalanceStore implements usecase.BalanceStore. The delta is applied in SQL
// so concurrent settlements never read-modify-write the balance.
type BalanceStore struct {
	queries *generated.Queries
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return newBalanceStore(pool)
}

func newBalanceStore(db generated.DBTX) *BalanceStore {
	return &BalanceStore{queries: generated.New(db)}
}

// ApplyDelta adds delta to the account balance and bumps its version.
func (s *BalanceStore) ApplyDelta(ctx context.Context, tx usecase.Transaction, accountID string, delta decimal.Decimal, at time.Time) (*domain.Account, error) {
	row, err := queriesFor(s.queries, tx).ApplyAccountDelta(ctx, generated.ApplyAccountDeltaParams{
		ID:        accountID,
		Delta:     decimalToNumeric(delta),
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:                   row.ID,
		UserID:               row.UserID,
		Name:                 row.Name,
		Currency:             row.Currency,
		Status:               domain.AccountStatus(row.Status),
		Balance:              numericToDecimal(row.Balance),
		Version:              row.Version,
		AllowNegativeBalance: row.AllowNegativeBalance,
		CreatedAt:            row.CreatedAt.Time,
		UpdatedAt:            row.UpdatedAt.Time,
	}
}

func rowsToAccounts(rows []generated.Account) []*domain.Account {
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts
}
