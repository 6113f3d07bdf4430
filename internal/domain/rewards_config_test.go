package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func validRewardsConfig() RewardsConfig {
	return RewardsConfig{
		ReferralEnabled:  true,
		MaxReferralLevel: 3,
		Deposit: ReferralTable{
			Enabled: true,
			Levels: []LevelPercentage{
				{Level: 1, Percentage: decimal.NewFromInt(10)},
				{Level: 2, Percentage: decimal.NewFromInt(5)},
			},
		},
		AutoRankUpgrade: true,
		DefaultCurrency: "USD",
	}
}

func TestRewardsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *RewardsConfig)
		wantErr bool
	}{
		{"valid", func(*RewardsConfig) {}, false},
		{"percentage above 100", func(c *RewardsConfig) {
			c.Deposit.Levels[0].Percentage = decimal.RequireFromString("100.5")
		}, true},
		{"negative percentage", func(c *RewardsConfig) {
			c.Deposit.Levels[1].Percentage = decimal.NewFromInt(-1)
		}, true},
		{"level zero", func(c *RewardsConfig) {
			c.Deposit.Levels[0].Level = 0
		}, true},
		{"duplicate level", func(c *RewardsConfig) {
			c.Deposit.Levels[1].Level = 1
		}, true},
		{"level beyond max", func(c *RewardsConfig) {
			c.Payment.Levels = []LevelPercentage{{Level: 4, Percentage: decimal.NewFromInt(1)}}
		}, true},
		{"max level above hard cap", func(c *RewardsConfig) {
			c.MaxReferralLevel = HardMaxReferralLevel + 1
		}, true},
		{"missing currency", func(c *RewardsConfig) {
			c.DefaultCurrency = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRewardsConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRewardsConfig) {
					t.Fatalf("expected ErrInvalidRewardsConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseLevelPercentages(t *testing.T) {
	levels, err := ParseLevelPercentages(" 1:10, 2:5.5 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 || levels[1].Level != 2 || !levels[1].Percentage.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("unexpected levels: %+v", levels)
	}
	if got := FormatLevelPercentages(levels); got != "1:10,2:5.5" {
		t.Fatalf("unexpected format: %s", got)
	}

	if levels, err := ParseLevelPercentages(""); err != nil || levels != nil {
		t.Fatalf("expected empty input to yield nil, got %v, %v", levels, err)
	}

	for _, bad := range []string{"1=10", "x:10", "1:ten"} {
		if _, err := ParseLevelPercentages(bad); !errors.Is(err, ErrInvalidRewardsConfig) {
			t.Errorf("%q: expected ErrInvalidRewardsConfig, got %v", bad, err)
		}
	}
}

func TestRewardsConfig_ApplySettings(t *testing.T) {
	base := validRewardsConfig()

	out, err := base.ApplySettings(map[string]string{
		SettingReferralEnabled:        "false",
		SettingReferralPaymentEnabled: "true",
		SettingReferralPaymentLevels:  "1:2",
		"unrelated.key":               "ignored",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ReferralEnabled || !out.Payment.Enabled || len(out.Payment.Levels) != 1 {
		t.Fatalf("overrides not applied: %+v", out)
	}
	if !base.ReferralEnabled || base.Payment.Enabled {
		t.Fatal("expected base config to be left untouched")
	}

	if _, err := base.ApplySettings(map[string]string{SettingRankAutoUpgrade: "maybe"}); err == nil {
		t.Fatal("expected malformed bool to fail")
	}
}

func TestRewardsConfig_CommissionEnabled(t *testing.T) {
	cfg := validRewardsConfig()
	if !cfg.CommissionEnabled(ReferralCategoryDeposit) {
		t.Fatal("expected deposit commissions enabled")
	}
	if cfg.CommissionEnabled(ReferralCategoryPayment) {
		t.Fatal("expected payment commissions disabled without levels")
	}
	cfg.ReferralEnabled = false
	if cfg.CommissionEnabled(ReferralCategoryDeposit) {
		t.Fatal("expected master toggle to disable every category")
	}
}
