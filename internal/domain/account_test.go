package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     decimal.Decimal
		debitAmount decimal.Decimal
		allowNeg    bool
		expectError bool
	}{
		{
			name:        "allow negative - debit more than balance",
			balance:     decimal.NewFromInt(100),
			allowNeg:    true,
			debitAmount: decimal.NewFromInt(150),
			expectError: false,
		},
		{
			name:        "disallow negative - debit more than balance",
			balance:     decimal.NewFromInt(100),
			allowNeg:    false,
			debitAmount: decimal.NewFromInt(150),
			expectError: true,
		},
		{
			name:        "disallow negative - debit exact balance",
			balance:     decimal.NewFromInt(100),
			allowNeg:    false,
			debitAmount: decimal.NewFromInt(100),
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{
				Balance:              tt.balance,
				AllowNegativeBalance: tt.allowNeg,
			}

			err := acc.ValidateDebit(tt.debitAmount)

			if tt.expectError && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("expected ErrInsufficientFunds, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_AcceptsEntries(t *testing.T) {
	tests := []struct {
		status AccountStatus
		want   error
	}{
		{AccountStatusActive, nil},
		{AccountStatusFrozen, ErrAccountFrozen},
		{AccountStatusClosed, ErrAccountClosed},
	}

	for _, tt := range tests {
		acc := &Account{Status: tt.status}
		if err := acc.AcceptsEntries(); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}
