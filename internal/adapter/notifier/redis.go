package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
)

// DefaultChannel is the pub/sub channel user notifications are sent to.
const DefaultChannel = "rewardledger:notifications"

// Notification kinds.
const (
	KindEntrySettled = "entry_settled"
	KindRankChanged  = "rank_changed"
)

// Notification is the JSON message published for each outcome.
type Notification struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id,omitempty"`
	EntryID   string    `json:"entry_id,omitempty"`
	EntryType string    `json:"entry_type,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Balance   string    `json:"balance,omitempty"`
	RankID    string    `json:"rank_id,omitempty"`
	RankName  string    `json:"rank_name,omitempty"`
	Reward    string    `json:"reward,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisNotifier publishes notifications on a Redis pub/sub channel for
// downstream delivery services.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewRedisNotifier creates a new RedisNotifier. An empty channel uses
// DefaultChannel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OnSettled implements usecase.Notifier.
func (n *RedisNotifier) OnSettled(ctx context.Context, entry *domain.LedgerEntry, account *domain.Account) error {
	return n.publish(ctx, &Notification{
		Kind:      KindEntrySettled,
		UserID:    account.UserID,
		AccountID: account.ID,
		EntryID:   entry.ID,
		EntryType: string(entry.Type),
		Amount:    entry.Amount.String(),
		Currency:  entry.Currency,
		Balance:   account.Balance.String(),
	})
}

// OnRankChanged implements usecase.Notifier.
func (n *RedisNotifier) OnRankChanged(ctx context.Context, user *domain.User, rank *domain.Rank, reward *decimal.Decimal) error {
	msg := &Notification{
		Kind:     KindRankChanged,
		UserID:   user.ID,
		RankID:   rank.ID,
		RankName: rank.Name,
	}
	if reward != nil {
		msg.Reward = reward.String()
	}
	return n.publish(ctx, msg)
}

func (n *RedisNotifier) publish(ctx context.Context, msg *Notification) error {
	msg.Timestamp = n.now()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
