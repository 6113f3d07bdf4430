package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercentage_RoundsHalfUpAtMinorUnit(t *testing.T) {
	tests := []struct {
		amount   string
		pct      string
		currency string
		want     string
	}{
		{"200.00", "10", "USD", "20"},
		{"200.00", "5", "USD", "10"},
		{"0.05", "10", "USD", "0.01"},
		{"0.04", "10", "USD", "0"},
		{"105", "2.5", "JPY", "3"},
		{"10.005", "50", "KWD", "5.003"},
	}

	for _, tt := range tests {
		got := Percentage(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.pct), tt.currency)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s * %s%% %s: expected %s, got %s", tt.amount, tt.pct, tt.currency, tt.want, got)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	if MinorUnits("usd") != 2 || MinorUnits("JPY") != 0 || MinorUnits("BHD") != 3 {
		t.Fatal("unexpected minor units")
	}
}
