package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"user_id"`
	Name                 string             `json:"name"`
	Currency             string             `json:"currency"`
	Status               string             `json:"status"`
	Balance              pgtype.Numeric     `json:"balance"`
	Version              int64              `json:"version"`
	AllowNegativeBalance bool               `json:"allow_negative_balance"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

type LedgerEntry struct {
	ID             string             `json:"id"`
	Reference      string             `json:"reference"`
	AccountID      string             `json:"account_id"`
	Type           string             `json:"type"`
	Amount         pgtype.Numeric     `json:"amount"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	Description    string             `json:"description"`
	IdempotencyKey pgtype.Text        `json:"idempotency_key"`
	Metadata       []byte             `json:"metadata"`
	CompletedAt    pgtype.Timestamptz `json:"completed_at"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	Published     bool               `json:"published"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
}

type Rank struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	MinQualifyingVolume pgtype.Numeric     `json:"min_qualifying_volume"`
	OneTimeReward       pgtype.Numeric     `json:"one_time_reward"`
	IsActive            bool               `json:"is_active"`
	IsDefault           bool               `json:"is_default"`
	CreatedAt           pgtype.Timestamptz `json:"created_at"`
}

type Setting struct {
	Key       string             `json:"key"`
	Value     string             `json:"value"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type User struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	ReferrerID pgtype.Text        `json:"referrer_id"`
	RankID     pgtype.Text        `json:"rank_id"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type UserRankHistory struct {
	UserID        string             `json:"user_id"`
	RankID        string             `json:"rank_id"`
	RewardEntryID pgtype.Text        `json:"reward_entry_id"`
	RewardAmount  pgtype.Numeric     `json:"reward_amount"`
	AchievedAt    pgtype.Timestamptz `json:"achieved_at"`
}
