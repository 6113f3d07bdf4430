package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Account holds the balance of one wallet of a user. Balance is only ever
// changed by settlement through an atomic delta.
type Account struct {
	ID                   string
	UserID               string
	Name                 string
	Currency             string
	Status               AccountStatus
	Balance              decimal.Decimal
	Version              int64
	AllowNegativeBalance bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	newBalance := a.Balance.Sub(amount)
	if !a.AllowNegativeBalance && newBalance.IsNegative() {
		return ErrInsufficientFunds
	}
	return nil
}

// AcceptsEntries reports whether new entries may be originated on the account.
func (a *Account) AcceptsEntries() error {
	switch a.Status {
	case AccountStatusClosed:
		return ErrAccountClosed
	case AccountStatusFrozen:
		return ErrAccountFrozen
	}
	return nil
}
