package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReferralCategory selects which percentage table applies to a settlement.
type ReferralCategory string

const (
	ReferralCategoryDeposit ReferralCategory = "deposit"
	ReferralCategoryPayment ReferralCategory = "payment"
)

// HardMaxReferralLevel caps the referrer walk regardless of configuration.
const HardMaxReferralLevel = 10

// ReferralCategoryFor maps an entry type to its commission category. Only
// deposits and payments pay commissions; referral_reward never does.
func ReferralCategoryFor(t EntryType) (ReferralCategory, bool) {
	switch t {
	case EntryTypeDeposit:
		return ReferralCategoryDeposit, true
	case EntryTypePayment:
		return ReferralCategoryPayment, true
	}
	return "", false
}

// LevelPercentage is the commission paid to the upline member at Level.
type LevelPercentage struct {
	Level      int             `json:"level"      validate:"min=1"`
	Percentage decimal.Decimal `json:"percentage" validate:"gte=0,lte=100"`
}

// ReferralTable is the commission schedule of one category.
type ReferralTable struct {
	Enabled bool              `json:"enabled"`
	Levels  []LevelPercentage `json:"levels" validate:"dive"`
}

// PercentageFor returns the configured percentage of level.
func (t ReferralTable) PercentageFor(level int) (decimal.Decimal, bool) {
	for _, l := range t.Levels {
		if l.Level == level {
			return l.Percentage, true
		}
	}
	return decimal.Zero, false
}

// HighestLevel returns the deepest configured level, 0 if none.
func (t ReferralTable) HighestLevel() int {
	highest := 0
	for _, l := range t.Levels {
		if l.Level > highest {
			highest = l.Level
		}
	}
	return highest
}

// SortedLevels returns the levels ordered ascending.
func (t ReferralTable) SortedLevels() []LevelPercentage {
	out := append([]LevelPercentage(nil), t.Levels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// RewardsConfig is the process-wide referral and rank configuration.
type RewardsConfig struct {
	ReferralEnabled  bool          `json:"referral_enabled"`
	MaxReferralLevel int           `json:"max_referral_level" validate:"min=1,max=10"`
	Deposit          ReferralTable `json:"deposit"`
	Payment          ReferralTable `json:"payment"`
	AutoRankUpgrade  bool          `json:"auto_rank_upgrade"`
	DefaultCurrency  string        `json:"default_currency"   validate:"required,len=3"`
}

// Table returns the table of category.
func (c *RewardsConfig) Table(category ReferralCategory) ReferralTable {
	if category == ReferralCategoryPayment {
		return c.Payment
	}
	return c.Deposit
}

// MaxLevel returns the walk bound for category: the smaller of the
// configured max level and the hard cap.
func (c *RewardsConfig) MaxLevel() int {
	if c.MaxReferralLevel <= 0 || c.MaxReferralLevel > HardMaxReferralLevel {
		return HardMaxReferralLevel
	}
	return c.MaxReferralLevel
}

// CommissionEnabled reports whether category pays anything at all.
func (c *RewardsConfig) CommissionEnabled(category ReferralCategory) bool {
	t := c.Table(category)
	return c.ReferralEnabled && t.Enabled && len(t.Levels) > 0
}
