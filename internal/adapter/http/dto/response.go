package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ReferrerID *string   `json:"referrer_id,omitempty"`
	RankID     *string   `json:"rank_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		ReferrerID: u.ReferrerID,
		RankID:     u.RankID,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// RegisteredUserResponse is returned by user registration.
type RegisteredUserResponse struct {
	User     *UserResponse      `json:"user"`
	Accounts []*AccountResponse `json:"accounts"`
}

// RegisteredUserFromUseCase converts the registration outcome to response.
func RegisteredUserFromUseCase(r *usecase.RegisteredUser) *RegisteredUserResponse {
	return &RegisteredUserResponse{
		User:     UserFromDomain(r.User),
		Accounts: AccountsFromDomain(r.Accounts),
	}
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	Name                 string          `json:"name"`
	Currency             string          `json:"currency"`
	Status               string          `json:"status"`
	Balance              decimal.Decimal `json:"balance"`
	Version              int64           `json:"version"`
	AllowNegativeBalance bool            `json:"allow_negative_balance"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:                   a.ID,
		UserID:               a.UserID,
		Name:                 a.Name,
		Currency:             a.Currency,
		Status:               string(a.Status),
		Balance:              a.Balance,
		Version:              a.Version,
		AllowNegativeBalance: a.AllowNegativeBalance,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID              string          `json:"id"`
	Reference       string          `json:"reference"`
	AccountID       string          `json:"account_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	Description     string          `json:"description,omitempty"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
	BalanceAdjusted bool            `json:"balance_adjusted"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		Reference:       e.Reference,
		AccountID:       e.AccountID,
		Type:            string(e.Type),
		Amount:          e.Amount,
		Currency:        e.Currency,
		Status:          string(e.Status),
		Description:     e.Description,
		IdempotencyKey:  e.IdempotencyKey,
		BalanceAdjusted: e.BalanceAdjusted(),
		Metadata:        e.Metadata,
		CompletedAt:     e.CompletedAt,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse wraps a page of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Total   int64            `json:"total"`
}

// CompletionResponse reports the outcome of completing an entry.
type CompletionResponse struct {
	Entry            *EntryResponse `json:"entry"`
	AlreadyCompleted bool           `json:"already_completed"`
	Settled          bool           `json:"settled"`
	SettlementError  string         `json:"settlement_error,omitempty"`
}

// CompletionFromUseCase converts a completion result to response.
func CompletionFromUseCase(r *usecase.CompletionResult) *CompletionResponse {
	resp := &CompletionResponse{
		Entry:            EntryFromDomain(r.Entry),
		AlreadyCompleted: r.AlreadyCompleted,
		Settled:          r.Settled,
	}
	if r.SettlementErr != nil {
		resp.SettlementError = r.SettlementErr.Error()
	}
	return resp
}

// CallbackResponse reports what a gateway callback did.
type CallbackResponse struct {
	Entry   *EntryResponse `json:"entry"`
	Status  string         `json:"status"`
	Applied bool           `json:"applied"`
}

// CallbackFromUseCase converts a callback result to response.
func CallbackFromUseCase(r *usecase.CallbackResult) *CallbackResponse {
	return &CallbackResponse{
		Entry:   EntryFromDomain(r.Entry),
		Status:  string(r.Status),
		Applied: r.Applied,
	}
}

// TransferResponse is the pair of entries recording a transfer.
type TransferResponse struct {
	Out *EntryResponse `json:"out"`
	In  *EntryResponse `json:"in"`
}

// TransferFromUseCase converts a transfer to response.
func TransferFromUseCase(t *usecase.Transfer) *TransferResponse {
	return &TransferResponse{
		Out: EntryFromDomain(t.Out),
		In:  EntryFromDomain(t.In),
	}
}

// RankResponse represents a rank in API responses.
type RankResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	MinQualifyingVolume decimal.Decimal `json:"min_qualifying_volume"`
	OneTimeReward       decimal.Decimal `json:"one_time_reward"`
	IsActive            bool            `json:"is_active"`
	IsDefault           bool            `json:"is_default"`
	CreatedAt           time.Time       `json:"created_at"`
}

// RankFromDomain converts domain rank to response.
func RankFromDomain(r *domain.Rank) *RankResponse {
	return &RankResponse{
		ID:                  r.ID,
		Name:                r.Name,
		MinQualifyingVolume: r.MinQualifyingVolume,
		OneTimeReward:       r.OneTimeReward,
		IsActive:            r.IsActive,
		IsDefault:           r.IsDefault,
		CreatedAt:           r.CreatedAt,
	}
}

// RanksFromDomain converts domain ranks to responses.
func RanksFromDomain(ranks []*domain.Rank) []*RankResponse {
	result := make([]*RankResponse, len(ranks))
	for i, r := range ranks {
		result[i] = RankFromDomain(r)
	}
	return result
}

// RankHistoryResponse represents one achieved rank.
type RankHistoryResponse struct {
	RankID        string          `json:"rank_id"`
	RewardEntryID *string         `json:"reward_entry_id,omitempty"`
	RewardAmount  decimal.Decimal `json:"reward_amount"`
	AchievedAt    time.Time       `json:"achieved_at"`
}

// RankHistoryFromDomain converts rank history rows to responses.
func RankHistoryFromDomain(rows []*domain.RankHistory) []*RankHistoryResponse {
	result := make([]*RankHistoryResponse, len(rows))
	for i, h := range rows {
		result[i] = &RankHistoryResponse{
			RankID:        h.RankID,
			RewardEntryID: h.RewardEntryID,
			RewardAmount:  h.RewardAmount,
			AchievedAt:    h.AchievedAt,
		}
	}
	return result
}

// ReconciliationResponse reports one account reconciliation.
type ReconciliationResponse struct {
	AccountID         string          `json:"account_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReportResponse is the full reconciliation report.
type ReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	UnsettledEntries   int                       `json:"unsettled_entries"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReportFromUseCase converts a reconciliation report to response.
func ReportFromUseCase(r *usecase.ReconciliationReport) *ReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromUseCase(d)
	}
	return &ReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		UnsettledEntries:   r.UnsettledEntries,
		Discrepancies:      discrepancies,
		CheckedAt:          r.CheckedAt,
	}
}

// SweepFailureResponse is one entry a sweep could not settle.
type SweepFailureResponse struct {
	EntryID string `json:"entry_id"`
	Error   string `json:"error"`
}

// SweepResponse summarizes a reconciliation sweep.
type SweepResponse struct {
	Scanned  int                    `json:"scanned"`
	Settled  int                    `json:"settled"`
	Failures []SweepFailureResponse `json:"failures"`
	SweptAt  time.Time              `json:"swept_at"`
}

// SweepFromUseCase converts a sweep result to response.
func SweepFromUseCase(r *usecase.SweepResult) *SweepResponse {
	failures := make([]SweepFailureResponse, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = SweepFailureResponse{EntryID: f.EntryID, Error: f.Error}
	}
	return &SweepResponse{
		Scanned:  r.Scanned,
		Settled:  r.Settled,
		Failures: failures,
		SweptAt:  r.SweptAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
