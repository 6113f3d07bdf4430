package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var rewardsValidator = newRewardsValidator()

func newRewardsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(validateReferralLevels, RewardsConfig{})
	return v
}

// validateReferralLevels rejects duplicate levels and levels deeper than the
// configured walk bound.
func validateReferralLevels(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(RewardsConfig)
	tables := []struct {
		name  string
		table ReferralTable
	}{
		{"Deposit", cfg.Deposit},
		{"Payment", cfg.Payment},
	}
	for _, t := range tables {
		seen := make(map[int]bool, len(t.table.Levels))
		for _, l := range t.table.Levels {
			if seen[l.Level] {
				sl.ReportError(t.table.Levels, t.name, t.name, "unique_level", strconv.Itoa(l.Level))
			}
			seen[l.Level] = true
			if cfg.MaxReferralLevel > 0 && l.Level > cfg.MaxReferralLevel {
				sl.ReportError(t.table.Levels, t.name, t.name, "max_level", strconv.Itoa(l.Level))
			}
		}
	}
}

// Validate checks the configuration against its declared constraints.
func (c *RewardsConfig) Validate() error {
	if err := rewardsValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRewardsConfig, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRewardsConfig, err)
	}
	return nil
}

// ParseLevelPercentages parses "1:10,2:5" into level/percentage pairs.
func ParseLevelPercentages(s string) ([]LevelPercentage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	levels := make([]LevelPercentage, 0, len(parts))
	for _, part := range parts {
		levelStr, pctStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: malformed level %q", ErrInvalidRewardsConfig, part)
		}
		level, err := strconv.Atoi(strings.TrimSpace(levelStr))
		if err != nil {
			return nil, fmt.Errorf("%w: level %q: %v", ErrInvalidRewardsConfig, levelStr, err)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(pctStr))
		if err != nil {
			return nil, fmt.Errorf("%w: percentage %q: %v", ErrInvalidRewardsConfig, pctStr, err)
		}
		levels = append(levels, LevelPercentage{Level: level, Percentage: pct})
	}
	return levels, nil
}

// FormatLevelPercentages is the inverse of ParseLevelPercentages.
func FormatLevelPercentages(levels []LevelPercentage) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, strconv.Itoa(l.Level)+":"+l.Percentage.String())
	}
	return strings.Join(parts, ",")
}

// Settings keys understood by ApplySettings.
const (
	SettingReferralEnabled        = "referral.enabled"
	SettingReferralMaxLevel       = "referral.max_level"
	SettingReferralDepositEnabled = "referral.deposit.enabled"
	SettingReferralDepositLevels  = "referral.deposit.levels"
	SettingReferralPaymentEnabled = "referral.payment.enabled"
	SettingReferralPaymentLevels  = "referral.payment.levels"
	SettingRankAutoUpgrade        = "rank.auto_upgrade"
)

// ApplySettings returns a copy of c with the stored overrides applied.
// Unknown keys are ignored.
func (c *RewardsConfig) ApplySettings(values map[string]string) (*RewardsConfig, error) {
	out := *c
	out.Deposit.Levels = append([]LevelPercentage(nil), c.Deposit.Levels...)
	out.Payment.Levels = append([]LevelPercentage(nil), c.Payment.Levels...)

	for key, raw := range values {
		var err error
		switch key {
		case SettingReferralEnabled:
			out.ReferralEnabled, err = strconv.ParseBool(raw)
		case SettingReferralMaxLevel:
			out.MaxReferralLevel, err = strconv.Atoi(raw)
		case SettingReferralDepositEnabled:
			out.Deposit.Enabled, err = strconv.ParseBool(raw)
		case SettingReferralDepositLevels:
			out.Deposit.Levels, err = ParseLevelPercentages(raw)
		case SettingReferralPaymentEnabled:
			out.Payment.Enabled, err = strconv.ParseBool(raw)
		case SettingReferralPaymentLevels:
			out.Payment.Levels, err = ParseLevelPercentages(raw)
		case SettingRankAutoUpgrade:
			out.AutoRankUpgrade, err = strconv.ParseBool(raw)
		}
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return &out, nil
}
