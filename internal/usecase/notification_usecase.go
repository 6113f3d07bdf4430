package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// NotificationUseCase forwards outcomes to the Notifier. Delivery failures
// are logged and counted, never returned.
type NotificationUseCase struct {
	notifier Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewNotificationUseCase creates a new NotificationUseCase.
func NewNotificationUseCase(notifier Notifier, logger zerolog.Logger, metrics *metrics.Metrics) *NotificationUseCase {
	return &NotificationUseCase{
		notifier: notifier,
		logger:   logger.With().Str("component", "notifications").Logger(),
		metrics:  metrics,
	}
}

// Name implements SettledHandler.
func (uc *NotificationUseCase) Name() string { return "notifier" }

// HandleSettled implements SettledHandler.
func (uc *NotificationUseCase) HandleSettled(ctx context.Context, event *domain.SettledEvent, _ *domain.RewardsConfig) error {
	uc.NotifySettled(ctx, event.Entry, event.Account)
	return nil
}

// NotifySettled tells the notifier an entry settled.
func (uc *NotificationUseCase) NotifySettled(ctx context.Context, entry *domain.LedgerEntry, account *domain.Account) {
	if uc == nil || uc.notifier == nil {
		return
	}
	if err := uc.notifier.OnSettled(ctx, entry, account); err != nil {
		uc.deliveryFailed(domain.EventTypeEntrySettled, entry.ID, err)
	}
}

// NotifyRankChanged tells the notifier a user was promoted.
func (uc *NotificationUseCase) NotifyRankChanged(ctx context.Context, change *domain.RankChange) {
	if uc == nil || uc.notifier == nil {
		return
	}
	if err := uc.notifier.OnRankChanged(ctx, change.User, change.NewRank, change.RewardAmount); err != nil {
		uc.deliveryFailed(domain.EventTypeRankChanged, change.User.ID, err)
	}
}

func (uc *NotificationUseCase) deliveryFailed(event, subject string, err error) {
	if uc.metrics != nil {
		uc.metrics.NotificationFailures.WithLabelValues(event).Inc()
	}
	uc.logger.Warn().
		Err(err).
		Str("event", event).
		Str("subject", subject).
		Msg("notification delivery failure")
}
