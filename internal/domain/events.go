package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeEntrySettled = "entry.settled"
	EventTypeRankChanged  = "rank.changed"
)

// Aggregate types
const (
	AggregateTypeEntry = "ledger_entry"
	AggregateTypeUser  = "user"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// SettledEvent is raised once per entry after its balance effect has been
// applied. Fan-out handlers read the post-settlement state from it.
type SettledEvent struct {
	Entry     *LedgerEntry
	Account   *Account
	Delta     decimal.Decimal
	SettledAt time.Time
}

// NewEntrySettledPayload builds the outbox payload for ev.
func NewEntrySettledPayload(ev *SettledEvent) map[string]any {
	return map[string]any{
		"entry_id":      ev.Entry.ID,
		"reference":     ev.Entry.Reference,
		"account_id":    ev.Account.ID,
		"user_id":       ev.Account.UserID,
		"entry_type":    string(ev.Entry.Type),
		"amount":        ev.Entry.Amount.String(),
		"delta":         ev.Delta.String(),
		"currency":      ev.Entry.Currency,
		"balance_after": ev.Account.Balance.String(),
		"settled_at":    ev.SettledAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewRankChangedPayload builds the outbox payload for a promotion.
func NewRankChangedPayload(change *RankChange) map[string]any {
	payload := map[string]any{
		"user_id":       change.User.ID,
		"new_rank_id":   change.NewRank.ID,
		"new_rank_name": change.NewRank.Name,
	}
	if change.PreviousRank != nil {
		payload["previous_rank_id"] = change.PreviousRank.ID
	}
	if change.RewardAmount != nil {
		payload["reward_amount"] = change.RewardAmount.String()
	}
	return payload
}
