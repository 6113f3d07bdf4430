package notifier

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
)

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// OnSettled implements usecase.Notifier.
func (n *LogNotifier) OnSettled(_ context.Context, entry *domain.LedgerEntry, account *domain.Account) error {
	n.logger.Info().
		Str("user_id", account.UserID).
		Str("account_id", account.ID).
		Str("entry_id", entry.ID).
		Str("type", string(entry.Type)).
		Str("amount", entry.Amount.String()).
		Str("currency", entry.Currency).
		Str("balance", account.Balance.String()).
		Msg("entry settled")
	return nil
}

// OnRankChanged implements usecase.Notifier.
func (n *LogNotifier) OnRankChanged(_ context.Context, user *domain.User, rank *domain.Rank, reward *decimal.Decimal) error {
	ev := n.logger.Info().
		Str("user_id", user.ID).
		Str("rank_id", rank.ID).
		Str("rank", rank.Name)
	if reward != nil {
		ev = ev.Str("reward", reward.String())
	}
	ev.Msg("rank changed")
	return nil
}
