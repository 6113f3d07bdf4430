package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrAmountTooLarge   = errors.New("amount exceeds maximum allowed")
	ErrAmountPrecision  = errors.New("amount has more decimals than the currency allows")
	ErrMetadataTooLarge = errors.New("metadata size exceeds limit")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidName      = errors.New("invalid name")
)

// Validation constants
const (
	MaxNameLength   = 255
	MaxMetadataSize = 10240           // 10KB
	MaxEntryAmount  = "1000000000000" // 1 trillion
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "TRY": true, "HKD": true,
	"NGN": true, "GHS": true, "KES": true, "BHD": true, "KWD": true,
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = NormalizeCurrency(currency)

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a supported ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateAmount validates an entry amount. Amounts are unsigned; the
// direction comes from the entry type.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxEntryAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxEntryAmount)
	}

	return nil
}

// ValidateAmountPrecision rejects amounts finer than the currency minor unit.
func ValidateAmountPrecision(amount decimal.Decimal, currency string) error {
	if !amount.Equal(amount.Truncate(MinorUnits(currency))) {
		return fmt.Errorf("%w: %s allows %d decimals", ErrAmountPrecision, NormalizeCurrency(currency), MinorUnits(currency))
	}
	return nil
}

// ValidateMetadata validates metadata size
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	// Estimate size (rough approximation)
	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("%w: metadata size %d bytes exceeds limit of %d bytes", ErrMetadataTooLarge, size, MaxMetadataSize)
	}

	return nil
}

// ValidateName validates user and account names.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
