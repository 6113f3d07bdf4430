package domain

import "github.com/shopspring/decimal"

const defaultMinorUnits = 2

// minorUnits lists currencies whose minor unit is not two decimals.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
}

// MinorUnits returns the number of decimals of the currency minor unit.
func MinorUnits(currency string) int32 {
	if n, ok := minorUnits[NormalizeCurrency(currency)]; ok {
		return n
	}
	return defaultMinorUnits
}

// RoundMoney rounds half-up at the currency minor unit. Amounts handled by
// the engine are never negative, so half-up and half-away-from-zero agree.
func RoundMoney(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnits(currency))
}

// Percentage returns amount * pct / 100 rounded for currency.
func Percentage(amount, pct decimal.Decimal, currency string) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(decimal.NewFromInt(100)), currency)
}
