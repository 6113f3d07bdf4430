package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
)

// AccountRepository defines data access for accounts. It has no balance
// write path: balances change only through BalanceStore.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Account, error)
	// PrimaryForUser returns the earliest opened account of the user in currency.
	PrimaryForUser(ctx context.Context, userID, currency string) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// BalanceStore applies balance deltas atomically (balance = balance + delta).
// SettlementUseCase is its only holder.
type BalanceStore interface {
	ApplyDelta(ctx context.Context, tx Transaction, accountID string, delta decimal.Decimal, at time.Time) (*domain.Account, error)
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	// Create inserts the entry. A clash on IdempotencyKey yields domain.ErrDuplicateEntry.
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.LedgerEntry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error)
	GetByExternalReference(ctx context.Context, provider, reference string) (*domain.LedgerEntry, error)
	// TransitionStatus moves the entry to status only if it is currently
	// pending or scheduled. It reports false when another caller got there first.
	TransitionStatus(ctx context.Context, id string, status domain.EntryStatus, at time.Time, patch map[string]any) (*domain.LedgerEntry, bool, error)
	MarkBalanceAdjusted(ctx context.Context, tx Transaction, id string, at time.Time) error
	MergeMetadata(ctx context.Context, id string, patch map[string]any, at time.Time) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	SumCompletedByUser(ctx context.Context, userID string, entryType domain.EntryType, currency string) (decimal.Decimal, error)
	ListUnsettled(ctx context.Context, completedBefore time.Time, limit int) ([]*domain.LedgerEntry, error)
	// SettledTotals returns credit and debit sums of settled entries.
	SettledTotals(ctx context.Context, accountID string) (credits, debits decimal.Decimal, err error)
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, tx Transaction, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// PromoteRank sets the user's rank only when the current rank threshold
	// is below threshold (or the user has none). It reports whether it changed.
	PromoteRank(ctx context.Context, userID, rankID string, threshold decimal.Decimal, at time.Time) (bool, error)
}

// RankRepository defines data access for ranks.
type RankRepository interface {
	Create(ctx context.Context, rank *domain.Rank) error
	GetByID(ctx context.Context, id string) (*domain.Rank, error)
	GetDefault(ctx context.Context) (*domain.Rank, error)
	ListActive(ctx context.Context) ([]*domain.Rank, error)
	List(ctx context.Context) ([]*domain.Rank, error)
}

// RankHistoryRepository defines data access for user rank history.
type RankHistoryRepository interface {
	Exists(ctx context.Context, userID, rankID string) (bool, error)
	// Create records the achievement; an existing row is left untouched.
	Create(ctx context.Context, history *domain.RankHistory) error
	ListByUser(ctx context.Context, userID string) ([]*domain.RankHistory, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops the key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// RewardsConfigProvider returns the current referral and rank configuration.
type RewardsConfigProvider interface {
	Current(ctx context.Context) (*domain.RewardsConfig, error)
}

// RewardsSettingsStore persists rewards configuration overrides as
// key/value pairs.
type RewardsSettingsStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string, at time.Time) error
}

// RewardsConfigCache caches the resolved rewards configuration.
type RewardsConfigCache interface {
	Get(ctx context.Context) (*domain.RewardsConfig, bool, error)
	Set(ctx context.Context, cfg *domain.RewardsConfig, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Settler applies the balance effect of a completed entry.
type Settler interface {
	Settle(ctx context.Context, entryID string) (*domain.SettledEvent, error)
}

// EntryCreator originates ledger entries. Reward handlers use it so their
// entries go through the same validation and settlement path as any other.
type EntryCreator interface {
	CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.LedgerEntry, error)
}

// Notifier is informed of settlement outcomes. Delivery is best effort.
type Notifier interface {
	OnSettled(ctx context.Context, entry *domain.LedgerEntry, account *domain.Account) error
	OnRankChanged(ctx context.Context, user *domain.User, rank *domain.Rank, reward *decimal.Decimal) error
}

// GatewayStatus is a provider's view of an external payment.
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusSucceeded GatewayStatus = "succeeded"
	GatewayStatusFailed    GatewayStatus = "failed"
)

// PaymentGateway is one payment provider.
type PaymentGateway interface {
	Provider() string
	InitiateDeposit(ctx context.Context, entry *domain.LedgerEntry) (string, error)
	InitiatePayout(ctx context.Context, entry *domain.LedgerEntry) (string, error)
	Verify(ctx context.Context, reference string) (GatewayStatus, error)
}

// GatewayRegistry resolves a provider tag to its gateway.
type GatewayRegistry interface {
	Get(provider string) (PaymentGateway, error)
}

// SettledHandler reacts to a settled entry. Handlers must tolerate
// re-delivery of the same event.
type SettledHandler interface {
	Name() string
	HandleSettled(ctx context.Context, event *domain.SettledEvent, cfg *domain.RewardsConfig) error
}
