package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// RegisterUserRequest represents a request to register a user.
type RegisterUserRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ReferrerID *string `json:"referrer_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterUserRequest) ToUseCaseInput() usecase.RegisterUserInput {
	var referrer *string
	if r.ReferrerID != nil && strings.TrimSpace(*r.ReferrerID) != "" {
		id := strings.TrimSpace(*r.ReferrerID)
		referrer = &id
	}

	return usecase.RegisterUserInput{
		Name:       r.Name,
		Email:      r.Email,
		ReferrerID: referrer,
	}
}

// OpenAccountRequest represents a request to open an extra account for a user.
type OpenAccountRequest struct {
	Name                 string `json:"name"`
	Currency             string `json:"currency"`
	AllowNegativeBalance bool   `json:"allow_negative_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenAccountRequest) ToUseCaseInput(userID string) usecase.OpenAccountInput {
	return usecase.OpenAccountInput{
		UserID:               userID,
		Name:                 r.Name,
		Currency:             r.Currency,
		AllowNegativeBalance: r.AllowNegativeBalance,
	}
}

// CreateEntryRequest represents a request to create a ledger entry.
type CreateEntryRequest struct {
	AccountID   string         `json:"account_id"`
	Type        string         `json:"type"`
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input. The idempotency key comes from
// the request header, not the body.
func (r *CreateEntryRequest) ToUseCaseInput(idempotencyKey string) (usecase.CreateEntryInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CreateEntryInput{}, err
	}

	return usecase.CreateEntryInput{
		AccountID:      r.AccountID,
		Type:           domain.EntryType(r.Type),
		Amount:         amount,
		Currency:       r.Currency,
		Status:         domain.EntryStatus(r.Status),
		Description:    r.Description,
		Metadata:       r.Metadata,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// CompleteEntryRequest represents a request to complete an entry.
type CompleteEntryRequest struct {
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TransitionRequest carries the reason for a cancel or fail transition.
type TransitionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// InitiatePayoutRequest selects the provider that executes a payout.
type InitiatePayoutRequest struct {
	Provider string `json:"provider"`
}

// GatewayCallbackRequest is a provider notification. Status is only honoured
// by providers whose outcome is reported rather than queried.
type GatewayCallbackRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status,omitempty"`
}

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	FromAccountID string         `json:"from_account_id"`
	ToAccountID   string         `json:"to_account_id"`
	Amount        string         `json:"amount"`
	Description   string         `json:"description,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput(idempotencyKey string) (usecase.CreateTransferInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CreateTransferInput{}, err
	}

	return usecase.CreateTransferInput{
		FromAccountID:  r.FromAccountID,
		ToAccountID:    r.ToAccountID,
		Amount:         amount,
		Description:    r.Description,
		Metadata:       r.Metadata,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// CreateRankRequest represents a request to create a rank.
type CreateRankRequest struct {
	Name                string `json:"name"`
	MinQualifyingVolume string `json:"min_qualifying_volume"`
	OneTimeReward       string `json:"one_time_reward"`
	IsActive            *bool  `json:"is_active,omitempty"`
	IsDefault           bool   `json:"is_default"`
}

// ToUseCaseInput converts to use case input. Ranks are active unless the
// request says otherwise.
func (r *CreateRankRequest) ToUseCaseInput() (usecase.CreateRankInput, error) {
	threshold, err := parseDecimal("min_qualifying_volume", r.MinQualifyingVolume)
	if err != nil {
		return usecase.CreateRankInput{}, err
	}

	reward, err := parseDecimal("one_time_reward", r.OneTimeReward)
	if err != nil {
		return usecase.CreateRankInput{}, err
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return usecase.CreateRankInput{
		Name:                r.Name,
		MinQualifyingVolume: threshold,
		OneTimeReward:       reward,
		IsActive:            active,
		IsDefault:           r.IsDefault,
	}, nil
}

// UpdateRewardsSettingsRequest carries rewards configuration overrides keyed
// by setting name.
type UpdateRewardsSettingsRequest struct {
	Settings map[string]string `json:"settings"`
}

// SweepRequest bounds one reconciliation sweep.
type SweepRequest struct {
	Limit int `json:"limit,omitempty"`
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal", domain.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", domain.ErrInvalidRank, field, raw)
	}
	return d, nil
}
