package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	if err := ValidateName("Main wallet"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := ValidateName("   "); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	if err := ValidateName(strings.Repeat("a", MaxNameLength+1)); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestValidateCurrency(t *testing.T) {
	t.Parallel()

	if err := ValidateCurrency("usd"); err != nil {
		t.Fatalf("expected uppercase conversion to succeed, got %v", err)
	}

	if err := ValidateCurrency("XYZ"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount(decimal.RequireFromString("100.25")); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	if err := ValidateAmount(decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}

	huge := decimal.RequireFromString(MaxEntryAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(huge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidateAmountPrecision(t *testing.T) {
	t.Parallel()

	if err := ValidateAmountPrecision(decimal.RequireFromString("10.5"), "USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ValidateAmountPrecision(decimal.RequireFromString("10.5"), "JPY"); !errors.Is(err, ErrAmountPrecision) {
		t.Fatalf("expected ErrAmountPrecision, got %v", err)
	}
}

func TestValidateMetadata(t *testing.T) {
	t.Parallel()

	if err := ValidateMetadata(nil); err != nil {
		t.Fatalf("expected nil metadata to be allowed, got %v", err)
	}

	valid := map[string]any{"key": "value", "count": 10}
	if err := ValidateMetadata(valid); err != nil {
		t.Fatalf("expected valid metadata, got %v", err)
	}

	oversized := map[string]any{
		"payload": strings.Repeat("x", MaxMetadataSize),
	}
	if err := ValidateMetadata(oversized); !errors.Is(err, ErrMetadataTooLarge) {
		t.Fatalf("expected ErrMetadataTooLarge, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	if err := ValidateEmail("USER@example.com"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}

	if err := ValidateEmail("invalid-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}
