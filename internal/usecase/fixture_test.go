package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/usecase"
	"github.com/iho/rewardledger/internal/usecase/mocks"
)

// engine wires every use case over one in-memory store, the same way the
// server does over Postgres.
type engine struct {
	store     *mocks.Store
	txMgr     *mocks.MockTransactionManager
	accounts  *mocks.MockAccountRepository
	balances  *mocks.MockBalanceStore
	entryRepo *mocks.MockEntryRepository
	users     *mocks.MockUserRepository
	ranks     *mocks.MockRankRepository
	history   *mocks.MockRankHistoryRepository
	outbox    *mocks.MockOutboxRepository
	idGen     *mocks.MockIDGenerator
	config    *mocks.StaticRewardsConfig
	metrics   *metrics.Metrics

	settlement    *usecase.SettlementUseCase
	entries       *usecase.EntryUseCase
	notifications *usecase.NotificationUseCase
	referral      *usecase.ReferralUseCase
	rank          *usecase.RankUseCase
	dispatcher    *usecase.Dispatcher
}

func newEngine(t *testing.T, cfg *domain.RewardsConfig, notifier usecase.Notifier) *engine {
	t.Helper()

	store := mocks.NewStore()
	e := &engine{
		store:     store,
		txMgr:     mocks.NewMockTransactionManager(),
		accounts:  mocks.NewMockAccountRepository(store),
		balances:  mocks.NewMockBalanceStore(store),
		entryRepo: mocks.NewMockEntryRepository(store),
		users:     mocks.NewMockUserRepository(store),
		ranks:     mocks.NewMockRankRepository(store),
		history:   mocks.NewMockRankHistoryRepository(store),
		outbox:    mocks.NewMockOutboxRepository(store),
		idGen:     mocks.NewMockIDGenerator(),
		config:    &mocks.StaticRewardsConfig{Config: cfg},
		metrics:   metrics.NewWithRegistry(prometheus.NewRegistry()),
	}

	logger := zerolog.Nop()

	e.settlement = usecase.NewSettlementUseCase(e.txMgr, e.entryRepo, e.balances, e.outbox, e.idGen, nil, logger, e.metrics)
	e.entries = usecase.NewEntryUseCase(e.txMgr, e.accounts, e.entryRepo, e.settlement, e.idGen, logger, e.metrics)
	e.notifications = usecase.NewNotificationUseCase(notifier, logger, e.metrics)
	e.referral = usecase.NewReferralUseCase(e.users, e.accounts, e.entries, logger, e.metrics)
	e.rank = usecase.NewRankUseCase(usecase.RankDeps{
		UserRepo:      e.users,
		RankRepo:      e.ranks,
		HistoryRepo:   e.history,
		AccountRepo:   e.accounts,
		EntryRepo:     e.entryRepo,
		OutboxRepo:    e.outbox,
		Entries:       e.entries,
		Notifications: e.notifications,
		IDGen:         e.idGen,
	}, logger, e.metrics)
	e.dispatcher = usecase.NewDispatcher(e.config, logger, e.metrics)
	e.dispatcher.Register(e.referral, e.rank, e.notifications)
	e.settlement.SetDispatcher(e.dispatcher)

	return e
}

func defaultRewardsConfig() *domain.RewardsConfig {
	return &domain.RewardsConfig{
		ReferralEnabled:  true,
		MaxReferralLevel: 3,
		Deposit: domain.ReferralTable{
			Enabled: true,
			Levels: []domain.LevelPercentage{
				{Level: 1, Percentage: dec("10")},
				{Level: 2, Percentage: dec("5")},
			},
		},
		Payment: domain.ReferralTable{
			Enabled: true,
			Levels:  []domain.LevelPercentage{{Level: 1, Percentage: dec("2")}},
		},
		AutoRankUpgrade: true,
		DefaultCurrency: "USD",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *engine) addUser(id, referrerID string) *domain.User {
	now := time.Now().UTC()
	u := &domain.User{ID: id, Name: id, Email: id + "@example.com", CreatedAt: now, UpdatedAt: now}
	if referrerID != "" {
		ref := referrerID
		u.ReferrerID = &ref
	}
	e.store.PutUser(u)
	return u
}

// addAccount opens a USD account for the user, named after it.
func (e *engine) addAccount(userID string, balance decimal.Decimal) *domain.Account {
	return e.addAccountIn(userID, "USD", balance)
}

func (e *engine) addAccountIn(userID, currency string, balance decimal.Decimal) *domain.Account {
	now := time.Now().UTC()
	a := &domain.Account{
		ID:        "acc-" + userID + "-" + currency,
		UserID:    userID,
		Name:      "main",
		Currency:  currency,
		Status:    domain.AccountStatusActive,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.store.PutAccount(a)
	return a
}

func (e *engine) addRank(id string, threshold, reward string, isDefault bool) *domain.Rank {
	r := &domain.Rank{
		ID:                  id,
		Name:                id,
		MinQualifyingVolume: dec(threshold),
		OneTimeReward:       dec(reward),
		IsActive:            true,
		IsDefault:           isDefault,
		CreatedAt:           time.Now().UTC(),
	}
	e.store.PutRank(r)
	return r
}

// deposit records a completed deposit, which settles and fans out inline.
func (e *engine) deposit(t *testing.T, accountID, amount string) *domain.LedgerEntry {
	t.Helper()
	entry, err := e.entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: accountID,
		Type:      domain.EntryTypeDeposit,
		Amount:    dec(amount),
		Status:    domain.EntryStatusCompleted,
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	return entry
}

func (e *engine) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	acc := e.store.Account(accountID)
	if acc == nil {
		t.Fatalf("account %s not found", accountID)
	}
	return acc.Balance
}

func (e *engine) rewardsFor(accountID string, entryType domain.EntryType) []*domain.LedgerEntry {
	var out []*domain.LedgerEntry
	for _, entry := range e.store.Entries(entryType) {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out
}

func assertDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
