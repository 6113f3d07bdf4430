package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType identifies the kind of monetary event a ledger entry records.
type EntryType string

const (
	// Credit types.
	EntryTypeDeposit           EntryType = "deposit"
	EntryTypeTransferIn        EntryType = "transfer_in"
	EntryTypeRefund            EntryType = "refund"
	EntryTypeReferralReward    EntryType = "referral_reward"
	EntryTypeRankReward        EntryType = "rank_reward"
	EntryTypeLoanDisbursement  EntryType = "loan_disbursement"
	EntryTypeGrantDisbursement EntryType = "grant_disbursement"
	EntryTypeVoucherRedemption EntryType = "voucher_redemption"

	// Debit types.
	EntryTypeWithdrawal    EntryType = "withdrawal"
	EntryTypeTransferOut   EntryType = "transfer_out"
	EntryTypePayment       EntryType = "payment"
	EntryTypeFee           EntryType = "fee"
	EntryTypeLoanRepayment EntryType = "loan_repayment"
)

// Direction is the sign an entry type applies to an account balance.
type Direction int

const (
	DirectionDebit  Direction = -1
	DirectionCredit Direction = 1
)

func (d Direction) String() string {
	if d == DirectionCredit {
		return "credit"
	}
	return "debit"
}

// entryDirections is the closed credit/debit partition. Adding a type here
// is the only way to make it settleable.
var entryDirections = map[EntryType]Direction{
	EntryTypeDeposit:           DirectionCredit,
	EntryTypeTransferIn:        DirectionCredit,
	EntryTypeRefund:            DirectionCredit,
	EntryTypeReferralReward:    DirectionCredit,
	EntryTypeRankReward:        DirectionCredit,
	EntryTypeLoanDisbursement:  DirectionCredit,
	EntryTypeGrantDisbursement: DirectionCredit,
	EntryTypeVoucherRedemption: DirectionCredit,

	EntryTypeWithdrawal:    DirectionDebit,
	EntryTypeTransferOut:   DirectionDebit,
	EntryTypePayment:       DirectionDebit,
	EntryTypeFee:           DirectionDebit,
	EntryTypeLoanRepayment: DirectionDebit,
}

// Direction resolves the balance sign of the entry type.
func (t EntryType) Direction() (Direction, error) {
	d, ok := entryDirections[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntryType, string(t))
	}
	return d, nil
}

// IsKnown reports whether the type belongs to the credit/debit partition.
func (t EntryType) IsKnown() bool {
	_, ok := entryDirections[t]
	return ok
}

// EntryTypes returns every known entry type.
func EntryTypes() []EntryType {
	types := make([]EntryType, 0, len(entryDirections))
	for t := range entryDirections {
		types = append(types, t)
	}
	return types
}

// EntryStatus is the lifecycle state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusScheduled EntryStatus = "scheduled"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPending, EntryStatusScheduled, EntryStatusCompleted, EntryStatusFailed, EntryStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition out of s is permitted.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusFailed || s == EntryStatusCancelled
}

// CanTransitionTo reports whether s -> next is a legal transition.
// Only pending and scheduled entries move, and only into a terminal state.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	if s != EntryStatusPending && s != EntryStatusScheduled {
		return false
	}
	return next.IsTerminal()
}

// TransitionableStatuses are the states a conditional transition may start from.
var TransitionableStatuses = []EntryStatus{EntryStatusPending, EntryStatusScheduled}

// Metadata keys with a meaning to the engine.
const (
	MetadataBalanceAdjusted     = "balance_adjusted"
	MetadataSourceUser          = "source_user"
	MetadataSourceEntry         = "source_entry"
	MetadataLevel               = "level"
	MetadataCategory            = "category"
	MetadataRankID              = "rank_id"
	MetadataProvider            = "provider"
	MetadataExternalReference   = "external_reference"
	MetadataFailureReason       = "failure_reason"
	MetadataCounterpartyAccount = "counterparty_account"
)

// LedgerEntry is a single monetary event on an account.
type LedgerEntry struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	Metadata       map[string]any
	ID             string
	Reference      string
	AccountID      string
	Currency       string
	Description    string
	IdempotencyKey string
	Type           EntryType
	Status         EntryStatus
	Amount         decimal.Decimal
}

// BalanceAdjusted reports whether the settlement marker is set.
func (e *LedgerEntry) BalanceAdjusted() bool {
	if e.Metadata == nil {
		return false
	}
	v, ok := e.Metadata[MetadataBalanceAdjusted].(bool)
	return ok && v
}

// SignedAmount returns the balance delta of the entry. Amount is stored
// unsigned; the sign comes from the type.
func (e *LedgerEntry) SignedAmount() (decimal.Decimal, error) {
	dir, err := e.Type.Direction()
	if err != nil {
		return decimal.Zero, err
	}
	if dir == DirectionDebit {
		return e.Amount.Neg(), nil
	}
	return e.Amount, nil
}

// Validate checks the invariants of a new entry.
func (e *LedgerEntry) Validate() error {
	if !e.Type.IsKnown() {
		return fmt.Errorf("%w: %q", ErrUnknownEntryType, string(e.Type))
	}
	if !e.Status.IsValid() || e.Status == EntryStatusFailed || e.Status == EntryStatusCancelled {
		return fmt.Errorf("%w: cannot create entry as %q", ErrInvalidStatus, string(e.Status))
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(e.Currency); err != nil {
		return err
	}
	if err := ValidateAmountPrecision(e.Amount, e.Currency); err != nil {
		return err
	}
	return ValidateMetadata(e.Metadata)
}

// CloneMetadata returns a shallow copy safe to mutate.
func CloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
