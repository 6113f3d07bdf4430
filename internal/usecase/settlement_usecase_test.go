package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

func TestSettlement_DepositCompletedCreditsBalance(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("0"))

	entry, err := e.entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: acc.ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    dec("100.00"),
	})
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	assertDecimal(t, "balance after pending deposit", e.balance(t, acc.ID), dec("0"))

	result, err := e.entries.MarkEntryCompleted(context.Background(), usecase.MarkCompletedInput{EntryID: entry.ID})
	if err != nil {
		t.Fatalf("MarkEntryCompleted failed: %v", err)
	}
	if !result.Settled || result.AlreadyCompleted {
		t.Fatalf("expected a settled first completion, got %+v", result)
	}

	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("100.00"))
	if stored := e.store.Entry(entry.ID); !stored.BalanceAdjusted() {
		t.Error("expected balance_adjusted marker to be set")
	}
	if stored := e.store.Entry(entry.ID); stored.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	outbox := e.store.Outbox()
	if len(outbox) != 1 || outbox[0].EventType != domain.EventTypeEntrySettled {
		t.Fatalf("expected one entry.settled outbox event, got %d", len(outbox))
	}
	if outbox[0].Payload["balance_after"] != "100" {
		t.Errorf("payload balance_after = %v", outbox[0].Payload["balance_after"])
	}
}

func TestSettlement_ConcurrentCompletionSettlesOnce(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("0"))

	entry, err := e.entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: acc.ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    dec("100.00"),
	})
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	const callers = 25

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		losers   int
		failures []error
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := e.entries.MarkEntryCompleted(context.Background(), usecase.MarkCompletedInput{EntryID: entry.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, err)
			case result.AlreadyCompleted:
				losers++
			default:
				winners++
			}
		}()
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if winners != 1 || losers != callers-1 {
		t.Fatalf("winners = %d, losers = %d", winners, losers)
	}
	if calls := e.balances.Calls(); calls != 1 {
		t.Errorf("balance mutated %d times, want 1", calls)
	}
	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("100.00"))
}

func TestSettlement_SignPerEntryType(t *testing.T) {
	for _, entryType := range domain.EntryTypes() {
		t.Run(string(entryType), func(t *testing.T) {
			e := newEngine(t, defaultRewardsConfig(), nil)
			e.addUser("u1", "")
			acc := e.addAccount("u1", dec("1000"))

			_, err := e.entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
				AccountID: acc.ID,
				Type:      entryType,
				Amount:    dec("100"),
				Status:    domain.EntryStatusCompleted,
			})
			if err != nil {
				t.Fatalf("CreateEntry failed: %v", err)
			}

			dir, _ := entryType.Direction()
			want := dec("1100")
			if dir == domain.DirectionDebit {
				want = dec("900")
			}
			assertDecimal(t, "balance", e.balance(t, acc.ID), want)
		})
	}
}

func TestSettlement_UnknownEntryTypeLeavesBalance(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("50"))

	now := time.Now().UTC()
	e.store.PutEntry(&domain.LedgerEntry{
		ID:          "legacy-1",
		Reference:   "TX-legacy-1",
		AccountID:   acc.ID,
		Type:        domain.EntryType("cashback"),
		Amount:      dec("10"),
		Currency:    "USD",
		Status:      domain.EntryStatusCompleted,
		CompletedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	event, err := e.settlement.Settle(context.Background(), "legacy-1")
	if !errors.Is(err, domain.ErrUnknownEntryType) {
		t.Fatalf("expected ErrUnknownEntryType, got %v", err)
	}
	if event != nil {
		t.Error("expected no settled event")
	}
	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("50"))
	if e.store.Entry("legacy-1").BalanceAdjusted() {
		t.Error("marker must not be set for an unknown type")
	}
	if got := testutil.ToFloat64(e.metrics.SettlementErrors.WithLabelValues("unknown_entry_type")); got != 1 {
		t.Errorf("settlement error metric = %v, want 1", got)
	}
}

func TestSettlement_SettleIsIdempotent(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("0"))
	entry := e.deposit(t, acc.ID, "40")

	event, err := e.settlement.Settle(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if event != nil {
		t.Error("expected nil event for an already settled entry")
	}
	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("40"))
	if len(e.store.Outbox()) != 1 {
		t.Errorf("expected a single outbox event, got %d", len(e.store.Outbox()))
	}
}

func TestSettlement_RejectsEntryThatIsNotCompleted(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("0"))

	entry, err := e.entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: acc.ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    dec("10"),
		Status:    domain.EntryStatusScheduled,
	})
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	if _, err := e.settlement.Settle(context.Background(), entry.ID); !errors.Is(err, domain.ErrEntryNotCompleted) {
		t.Fatalf("expected ErrEntryNotCompleted, got %v", err)
	}
	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("0"))
}

func TestSettlement_FailedMarkerWriteRollsBackDelta(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("0"))

	e.entryRepo.MarkBalanceAdjustedFunc = func(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
		return errors.New("connection reset")
	}

	entry, err := e.entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
		AccountID: acc.ID,
		Type:      domain.EntryTypeDeposit,
		Amount:    dec("25"),
		Status:    domain.EntryStatusCompleted,
	})
	if err != nil {
		t.Fatalf("CreateEntry must not fail on settlement errors: %v", err)
	}
	if entry.BalanceAdjusted() {
		t.Error("returned entry must not claim to be settled")
	}

	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("0"))
	if calls := e.balances.Calls(); calls != 0 {
		t.Errorf("balance mutations after rollback = %d, want 0", calls)
	}
	if len(e.store.Outbox()) != 0 {
		t.Error("outbox event must roll back with the delta")
	}
}

type failingHandler struct {
	calls int
}

func (h *failingHandler) Name() string { return "failing" }

func (h *failingHandler) HandleSettled(ctx context.Context, event *domain.SettledEvent, cfg *domain.RewardsConfig) error {
	h.calls++
	return errors.New("handler exploded")
}

func TestSettlement_FanoutFailureDoesNotFailSettle(t *testing.T) {
	e := newEngine(t, defaultRewardsConfig(), nil)
	failing := &failingHandler{}
	e.dispatcher.Register(failing)

	e.addUser("u1", "")
	acc := e.addAccount("u1", dec("0"))
	e.deposit(t, acc.ID, "15")

	if failing.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", failing.calls)
	}
	assertDecimal(t, "balance", e.balance(t, acc.ID), dec("15"))
	if got := testutil.ToFloat64(e.metrics.FanoutFailures.WithLabelValues("failing")); got != 1 {
		t.Errorf("fan-out failure metric = %v, want 1", got)
	}
}
