package domain

import "errors"

var (
	// Entry errors
	ErrEntryNotFound          = errors.New("ledger entry not found")
	ErrInvalidStateTransition = errors.New("invalid entry state transition")
	ErrInvalidStatus          = errors.New("invalid entry status")
	ErrUnknownEntryType       = errors.New("unknown entry type")
	ErrEntryNotCompleted      = errors.New("entry is not completed")
	ErrDuplicateEntry         = errors.New("entry with this idempotency key already exists")
	ErrInvalidAmount          = errors.New("amount must be positive")

	// Account errors
	ErrAccountNotFound           = errors.New("account not found")
	ErrAccountClosed             = errors.New("account is closed")
	ErrAccountFrozen             = errors.New("account is frozen")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrCurrencyMismatch          = errors.New("currency mismatch")
	ErrSameAccount               = errors.New("cannot transfer to same account")
	ErrMissingBeneficiaryAccount = errors.New("beneficiary has no account")

	// User and rank errors
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email is already registered")
	ErrReferrerNotFound = errors.New("referrer not found")
	ErrRankNotFound     = errors.New("rank not found")
	ErrInvalidRank      = errors.New("invalid rank")

	// Gateway errors
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrNotPayoutEntry  = errors.New("entry is not a payout")
	// ErrOutcomeNotReportable is returned when an outcome is reported to a
	// provider that is only ever queried.
	ErrOutcomeNotReportable = errors.New("provider does not accept reported outcomes")

	// Config errors
	ErrInvalidRewardsConfig = errors.New("invalid rewards configuration")
)
