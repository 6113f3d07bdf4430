package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rank is a tier a user is promoted into once their qualifying volume
// reaches MinQualifyingVolume.
type Rank struct {
	ID                  string
	Name                string
	MinQualifyingVolume decimal.Decimal
	OneTimeReward       decimal.Decimal
	IsActive            bool
	IsDefault           bool
	CreatedAt           time.Time
}

// Validate checks rank invariants.
func (r *Rank) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRank)
	}
	if r.MinQualifyingVolume.IsNegative() {
		return fmt.Errorf("%w: threshold must not be negative", ErrInvalidRank)
	}
	if r.OneTimeReward.IsNegative() {
		return fmt.Errorf("%w: reward must not be negative", ErrInvalidRank)
	}
	return nil
}

// RankHistory records that a user reached a rank. Its presence is the only
// proof that the rank reward was paid.
type RankHistory struct {
	UserID        string
	RankID        string
	RewardEntryID *string
	RewardAmount  decimal.Decimal
	AchievedAt    time.Time
}

// SortRanks orders ranks ascending by threshold, ties broken by ID.
func SortRanks(ranks []*Rank) {
	sort.SliceStable(ranks, func(i, j int) bool {
		c := ranks[i].MinQualifyingVolume.Cmp(ranks[j].MinQualifyingVolume)
		if c != 0 {
			return c < 0
		}
		return ranks[i].ID < ranks[j].ID
	})
}

// HighestAchievedRank returns the active rank with the greatest threshold
// not above volume, or nil when volume is below every threshold.
func HighestAchievedRank(ranks []*Rank, volume decimal.Decimal) *Rank {
	sorted := make([]*Rank, 0, len(ranks))
	for _, r := range ranks {
		if r.IsActive {
			sorted = append(sorted, r)
		}
	}
	SortRanks(sorted)

	var achieved *Rank
	for _, r := range sorted {
		if r.MinQualifyingVolume.GreaterThan(volume) {
			break
		}
		achieved = r
	}
	return achieved
}

// RankChange describes a promotion.
type RankChange struct {
	User         *User
	PreviousRank *Rank
	NewRank      *Rank
	RewardAmount *decimal.Decimal
	RewardEntry  *LedgerEntry
}
