//go:build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/adapter/repository/postgres"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	pginfra "github.com/iho/rewardledger/internal/infrastructure/postgres"
	"github.com/iho/rewardledger/internal/usecase"
)

type integrationStack struct {
	pool     *pgxpool.Pool
	accounts *postgres.AccountRepository
	users    *usecase.UserUseCase
	entries  *usecase.EntryUseCase
	sweeps   *usecase.ReconciliationUseCase
}

func newIntegrationStack(t *testing.T) *integrationStack {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := pginfra.RunMigrations(dbURL, "", zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, dbURL, 10, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `TRUNCATE outbox_events, user_rank_history, ledger_entries, accounts, users, ranks, settings CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	log := zerolog.Nop()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	txManager := postgres.NewTxManager(pool)
	userRepo := postgres.NewUserRepository(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	rankRepo := postgres.NewRankRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()

	rewards, err := usecase.NewRewardsConfigUseCase(domain.RewardsConfig{
		ReferralEnabled:  true,
		MaxReferralLevel: 2,
		Deposit: domain.ReferralTable{Enabled: true, Levels: []domain.LevelPercentage{
			{Level: 1, Percentage: decimal.NewFromInt(10)},
			{Level: 2, Percentage: decimal.NewFromInt(5)},
		}},
		DefaultCurrency: "USD",
	}, postgres.NewSettingsRepository(pool), nil, 0, log, m)
	if err != nil {
		t.Fatalf("invalid rewards config: %v", err)
	}

	settlement := usecase.NewSettlementUseCase(txManager, entryRepo, postgres.NewBalanceStore(pool), outboxRepo, idGen, postgres.NewRetrier(log), log, m)
	entries := usecase.NewEntryUseCase(txManager, accountRepo, entryRepo, settlement, idGen, log, m)

	dispatcher := usecase.NewDispatcher(rewards, log, m)
	dispatcher.Register(usecase.NewReferralUseCase(userRepo, accountRepo, entries, log, m))
	settlement.SetDispatcher(dispatcher)

	return &integrationStack{
		pool:     pool,
		accounts: accountRepo,
		users: usecase.NewUserUseCase(txManager, userRepo, accountRepo, rankRepo, idGen, usecase.ProvisioningConfig{
			DefaultCurrency: "USD",
			WalletTypes:     []string{"main"},
		}, log, m),
		entries: entries,
		sweeps:  usecase.NewReconciliationUseCase(accountRepo, entryRepo, settlement, 0, log, m),
	}
}

func (s *integrationStack) register(t *testing.T, email string, referrer *string) *usecase.RegisteredUser {
	t.Helper()

	registered, err := s.users.RegisterUser(context.Background(), usecase.RegisterUserInput{
		Name:       email,
		Email:      email,
		ReferrerID: referrer,
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	return registered
}

func (s *integrationStack) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()

	account, err := s.accounts.GetByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("failed to load account %s: %v", accountID, err)
	}
	return account.Balance
}

func TestIntegration_DepositPaysReferralChain(t *testing.T) {
	s := newIntegrationStack(t)
	ctx := context.Background()

	top := s.register(t, "top@example.com", nil)
	mid := s.register(t, "mid@example.com", &top.User.ID)
	leaf := s.register(t, "leaf@example.com", &mid.User.ID)

	deposit, err := s.entries.CreateEntry(ctx, usecase.CreateEntryInput{
		AccountID: leaf.Accounts[0].ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("failed to create deposit: %v", err)
	}

	result, err := s.entries.MarkEntryCompleted(ctx, usecase.MarkCompletedInput{EntryID: deposit.ID})
	if err != nil {
		t.Fatalf("failed to complete deposit: %v", err)
	}
	if !result.Settled {
		t.Fatalf("expected the deposit to settle, got %+v", result)
	}

	if got := s.balance(t, leaf.Accounts[0].ID); !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected leaf balance 200, got %s", got)
	}
	if got := s.balance(t, mid.Accounts[0].ID); !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected level 1 commission of 20, got %s", got)
	}
	if got := s.balance(t, top.Accounts[0].ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected level 2 commission of 10, got %s", got)
	}
}

func TestIntegration_ConcurrentCompletionSettlesOnce(t *testing.T) {
	s := newIntegrationStack(t)
	ctx := context.Background()

	user := s.register(t, "solo@example.com", nil)
	deposit, err := s.entries.CreateEntry(ctx, usecase.CreateEntryInput{
		AccountID: user.Accounts[0].ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("failed to create deposit: %v", err)
	}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.entries.MarkEntryCompleted(ctx, usecase.MarkCompletedInput{EntryID: deposit.ID})
			if err != nil {
				t.Errorf("completion failed: %v", err)
				return
			}
			if !result.AlreadyCompleted {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winning completion, got %d", winners)
	}
	if got := s.balance(t, user.Accounts[0].ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance applied once, got %s", got)
	}
}

func TestIntegration_SweepSettlesStrandedEntries(t *testing.T) {
	s := newIntegrationStack(t)
	ctx := context.Background()

	user := s.register(t, "stranded@example.com", nil)
	deposit, err := s.entries.CreateEntry(ctx, usecase.CreateEntryInput{
		AccountID: user.Accounts[0].ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("failed to create deposit: %v", err)
	}

	// Complete without settling, as a crash between the two steps would.
	if _, err := s.pool.Exec(ctx,
		`UPDATE ledger_entries SET status = 'completed', completed_at = now() - interval '1 minute' WHERE id = $1`,
		deposit.ID,
	); err != nil {
		t.Fatalf("failed to strand entry: %v", err)
	}

	result, err := s.sweeps.SweepUnsettled(ctx, 10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Settled != 1 {
		t.Fatalf("expected one entry settled, got %+v", result)
	}
	if got := s.balance(t, user.Accounts[0].ID); !got.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected swept balance 40, got %s", got)
	}

	again, err := s.sweeps.SweepUnsettled(ctx, 10)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if again.Settled != 0 {
		t.Fatalf("expected nothing left to sweep, got %+v", again)
	}
}
