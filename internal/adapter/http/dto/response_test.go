package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

func TestEntryFromDomain(t *testing.T) {
	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:          "entry-1",
		Reference:   "TX-1",
		AccountID:   "acc-1",
		Type:        domain.EntryTypeDeposit,
		Amount:      decimal.RequireFromString("10.50"),
		Currency:    "USD",
		Status:      domain.EntryStatusCompleted,
		Metadata:    map[string]any{domain.MetadataBalanceAdjusted: true},
		CompletedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	got := EntryFromDomain(entry)
	if got.ID != "entry-1" || got.Type != "deposit" || got.Status != "completed" {
		t.Fatalf("unexpected response %+v", got)
	}
	if !got.BalanceAdjusted {
		t.Fatal("expected the settlement marker to be reported")
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Fatalf("completed_at not carried over: %v", got.CompletedAt)
	}
}

func TestCompletionFromUseCase(t *testing.T) {
	result := &usecase.CompletionResult{
		Entry:         &domain.LedgerEntry{ID: "entry-1", Status: domain.EntryStatusCompleted},
		SettlementErr: errors.New("account missing"),
	}

	got := CompletionFromUseCase(result)
	if got.Settled || got.SettlementError != "account missing" || got.Entry.ID != "entry-1" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestAccountsFromDomain(t *testing.T) {
	accounts := []*domain.Account{
		{ID: "a", UserID: "u", Status: domain.AccountStatusActive, Balance: decimal.NewFromInt(1)},
		{ID: "b", UserID: "u", Status: domain.AccountStatusFrozen},
	}

	got := AccountsFromDomain(accounts)
	if len(got) != 2 || got[0].ID != "a" || got[1].Status != "frozen" || got[0].UserID != "u" {
		t.Fatalf("unexpected accounts %+v", got)
	}
}

func TestReportFromUseCase(t *testing.T) {
	report := &usecase.ReconciliationReport{
		TotalAccounts:      3,
		ReconciledAccounts: 2,
		UnsettledEntries:   1,
		Discrepancies: []*usecase.ReconciliationResult{
			{AccountID: "acc-9", Difference: decimal.NewFromInt(-5)},
		},
	}

	got := ReportFromUseCase(report)
	if got.TotalAccounts != 3 || got.UnsettledEntries != 1 || len(got.Discrepancies) != 1 {
		t.Fatalf("unexpected report %+v", got)
	}
	if !got.Discrepancies[0].Difference.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("unexpected difference %s", got.Discrepancies[0].Difference)
	}
}

func TestSweepFromUseCase(t *testing.T) {
	got := SweepFromUseCase(&usecase.SweepResult{
		Scanned:  2,
		Settled:  1,
		Failures: []usecase.SweepFailure{{EntryID: "e2", Error: "account not found"}},
	})

	if got.Scanned != 2 || got.Settled != 1 || len(got.Failures) != 1 || got.Failures[0].EntryID != "e2" {
		t.Fatalf("unexpected sweep response %+v", got)
	}
}
