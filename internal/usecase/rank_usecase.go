package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// RankUseCase evaluates rank promotions and manages the rank table.
type RankUseCase struct {
	userRepo      UserRepository
	rankRepo      RankRepository
	historyRepo   RankHistoryRepository
	accountRepo   AccountRepository
	entryRepo     EntryRepository
	outboxRepo    OutboxRepository
	entries       EntryCreator
	notifications *NotificationUseCase
	idGen         IDGenerator
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

// RankDeps groups the collaborators of RankUseCase.
type RankDeps struct {
	UserRepo      UserRepository
	RankRepo      RankRepository
	HistoryRepo   RankHistoryRepository
	AccountRepo   AccountRepository
	EntryRepo     EntryRepository
	OutboxRepo    OutboxRepository
	Entries       EntryCreator
	Notifications *NotificationUseCase
	IDGen         IDGenerator
}

// NewRankUseCase creates a new RankUseCase.
func NewRankUseCase(deps RankDeps, logger zerolog.Logger, metrics *metrics.Metrics) *RankUseCase {
	return &RankUseCase{
		userRepo:      deps.UserRepo,
		rankRepo:      deps.RankRepo,
		historyRepo:   deps.HistoryRepo,
		accountRepo:   deps.AccountRepo,
		entryRepo:     deps.EntryRepo,
		outboxRepo:    deps.OutboxRepo,
		entries:       deps.Entries,
		notifications: deps.Notifications,
		idGen:         deps.IDGen,
		logger:        logger.With().Str("component", "ranks").Logger(),
		metrics:       metrics,
	}
}

// Name implements SettledHandler.
func (uc *RankUseCase) Name() string { return "rank" }

// HandleSettled implements SettledHandler. Only deposits in the default
// currency move qualifying volume; rank_reward entries are credits of
// another type and never recurse.
func (uc *RankUseCase) HandleSettled(ctx context.Context, event *domain.SettledEvent, cfg *domain.RewardsConfig) error {
	if event.Entry.Type != domain.EntryTypeDeposit || event.Entry.Currency != cfg.DefaultCurrency {
		return nil
	}
	_, err := uc.Evaluate(ctx, event.Account.UserID, cfg)
	return err
}

// Evaluate promotes the user to the highest active rank their qualifying
// volume reaches and pays that rank's one-time reward unless history shows
// it was paid already. It returns nil when nothing changed.
func (uc *RankUseCase) Evaluate(ctx context.Context, userID string, cfg *domain.RewardsConfig) (*domain.RankChange, error) {
	if !cfg.AutoRankUpgrade {
		return nil, nil
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	volume, err := uc.entryRepo.SumCompletedByUser(ctx, user.ID, domain.EntryTypeDeposit, cfg.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("qualifying volume: %w", err)
	}

	ranks, err := uc.rankRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	achieved := domain.HighestAchievedRank(ranks, volume)
	if achieved == nil {
		return nil, nil
	}

	current, err := uc.currentRank(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if current != nil && current.ID == achieved.ID {
		return nil, uc.completeInterruptedReward(ctx, user, achieved, now)
	}

	if current != nil && achieved.MinQualifyingVolume.LessThan(current.MinQualifyingVolume) {
		uc.logger.Warn().
			Str("user_id", user.ID).
			Str("current_rank", current.ID).
			Str("achieved_rank", achieved.ID).
			Str("volume", volume.String()).
			Msg("rank regression prevented")
		return nil, nil
	}

	changed, err := uc.userRepo.PromoteRank(ctx, user.ID, achieved.ID, achieved.MinQualifyingVolume, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		uc.logger.Debug().Str("user_id", user.ID).Str("rank_id", achieved.ID).Msg("rank already raised concurrently")
		return nil, nil
	}

	alreadyPaid, err := uc.historyRepo.Exists(ctx, user.ID, achieved.ID)
	if err != nil {
		return nil, err
	}

	change := &domain.RankChange{User: user, PreviousRank: current, NewRank: achieved}

	if !alreadyPaid {
		rewardEntry, amount, err := uc.grantReward(ctx, user, achieved, cfg, now)
		switch {
		case errors.Is(err, domain.ErrMissingBeneficiaryAccount):
			uc.logger.Warn().Err(err).Str("user_id", user.ID).Str("rank_id", achieved.ID).Msg("rank reward skipped")
		case err != nil:
			return nil, err
		case rewardEntry != nil:
			change.RewardEntry = rewardEntry
			change.RewardAmount = &amount
		}
	}

	user.RankID = &achieved.ID
	uc.recordPromotion(ctx, change, now)

	return change, nil
}

// completeInterruptedReward writes the missing history row when a promotion
// paid its reward entry but failed before recording history. It never pays:
// without an existing reward entry an unchanged rank is left alone.
func (uc *RankUseCase) completeInterruptedReward(ctx context.Context, user *domain.User, rank *domain.Rank, now time.Time) error {
	recorded, err := uc.historyRepo.Exists(ctx, user.ID, rank.ID)
	if err != nil || recorded {
		return err
	}

	rewardEntry, err := uc.entryRepo.GetByIdempotencyKey(ctx, RankRewardIdempotencyKey(user.ID, rank.ID))
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := uc.historyRepo.Create(ctx, &domain.RankHistory{
		UserID:        user.ID,
		RankID:        rank.ID,
		RewardAmount:  rewardEntry.Amount,
		RewardEntryID: &rewardEntry.ID,
		AchievedAt:    now,
	}); err != nil {
		return fmt.Errorf("record rank history: %w", err)
	}

	uc.logger.Info().Str("user_id", user.ID).Str("rank_id", rank.ID).Msg("rank history restored for paid reward")
	return nil
}

func (uc *RankUseCase) currentRank(ctx context.Context, user *domain.User) (*domain.Rank, error) {
	if user.RankID == nil {
		return nil, nil
	}
	rank, err := uc.rankRepo.GetByID(ctx, *user.RankID)
	if errors.Is(err, domain.ErrRankNotFound) {
		return nil, nil
	}
	return rank, err
}

// grantReward pays the rank reward into the user's primary default-currency
// account and writes the history row. The reward entry carries an
// idempotency key, so a retry after a failed history write finds the
// existing entry instead of paying twice.
func (uc *RankUseCase) grantReward(
	ctx context.Context,
	user *domain.User,
	rank *domain.Rank,
	cfg *domain.RewardsConfig,
	now time.Time,
) (*domain.LedgerEntry, decimal.Decimal, error) {
	amount := domain.RoundMoney(rank.OneTimeReward, cfg.DefaultCurrency)

	var rewardEntry *domain.LedgerEntry
	if amount.IsPositive() {
		account, err := uc.accountRepo.PrimaryForUser(ctx, user.ID, cfg.DefaultCurrency)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, amount, fmt.Errorf("%w: user %s has no %s account", domain.ErrMissingBeneficiaryAccount, user.ID, cfg.DefaultCurrency)
		}
		if err != nil {
			return nil, amount, err
		}

		key := RankRewardIdempotencyKey(user.ID, rank.ID)
		rewardEntry, err = uc.entries.CreateEntry(ctx, CreateEntryInput{
			AccountID:   account.ID,
			Type:        domain.EntryTypeRankReward,
			Amount:      amount,
			Currency:    cfg.DefaultCurrency,
			Status:      domain.EntryStatusCompleted,
			Description: fmt.Sprintf("%s rank reward", rank.Name),
			Metadata: map[string]any{
				domain.MetadataRankID: rank.ID,
			},
			IdempotencyKey: key,
		})
		switch {
		case err == nil:
			if uc.metrics != nil {
				uc.metrics.RankRewards.Inc()
			}
		case errors.Is(err, domain.ErrDuplicateEntry):
			rewardEntry, err = uc.entryRepo.GetByIdempotencyKey(ctx, key)
			if err != nil {
				return nil, amount, err
			}
		default:
			return nil, amount, err
		}
	}

	history := &domain.RankHistory{
		UserID:       user.ID,
		RankID:       rank.ID,
		RewardAmount: amount,
		AchievedAt:   now,
	}
	if rewardEntry != nil {
		history.RewardEntryID = &rewardEntry.ID
	}

	if err := uc.historyRepo.Create(ctx, history); err != nil {
		return nil, amount, fmt.Errorf("record rank history: %w", err)
	}

	return rewardEntry, amount, nil
}

func (uc *RankUseCase) recordPromotion(ctx context.Context, change *domain.RankChange, now time.Time) {
	if uc.metrics != nil {
		uc.metrics.RankPromotions.WithLabelValues(change.NewRank.Name).Inc()
	}

	uc.logger.Info().
		Str("user_id", change.User.ID).
		Str("rank_id", change.NewRank.ID).
		Str("rank", change.NewRank.Name).
		Msg("user promoted")

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   change.User.ID,
			AggregateType: domain.AggregateTypeUser,
			EventType:     domain.EventTypeRankChanged,
			Payload:       domain.NewRankChangedPayload(change),
			CreatedAt:     now,
		}
		if err := uc.outboxRepo.Create(ctx, nil, event); err != nil {
			uc.logger.Error().Err(err).Str("user_id", change.User.ID).Msg("failed to record rank change event")
		}
	}

	uc.notifications.NotifyRankChanged(ctx, change)
}

// RankRewardIdempotencyKey identifies the one-time reward of a (user, rank) pair.
func RankRewardIdempotencyKey(userID, rankID string) string {
	return "rank_reward:" + userID + ":" + rankID
}

// CreateRankInput represents input for creating a rank.
type CreateRankInput struct {
	Name                string
	MinQualifyingVolume decimal.Decimal
	OneTimeReward       decimal.Decimal
	IsActive            bool
	IsDefault           bool
}

// CreateRank adds a rank to the rank table.
func (uc *RankUseCase) CreateRank(ctx context.Context, input CreateRankInput) (*domain.Rank, error) {
	rank := &domain.Rank{
		ID:                  uc.idGen.Generate(),
		Name:                input.Name,
		MinQualifyingVolume: input.MinQualifyingVolume,
		OneTimeReward:       input.OneTimeReward,
		IsActive:            input.IsActive,
		IsDefault:           input.IsDefault,
		CreatedAt:           time.Now().UTC(),
	}

	if err := rank.Validate(); err != nil {
		return nil, err
	}

	if err := uc.rankRepo.Create(ctx, rank); err != nil {
		return nil, err
	}

	return rank, nil
}

// ListRanks returns every rank ordered by threshold.
func (uc *RankUseCase) ListRanks(ctx context.Context) ([]*domain.Rank, error) {
	ranks, err := uc.rankRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortRanks(ranks)
	return ranks, nil
}

// ListHistory returns the ranks a user has achieved.
func (uc *RankUseCase) ListHistory(ctx context.Context, userID string) ([]*domain.RankHistory, error) {
	if _, err := uc.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return uc.historyRepo.ListByUser(ctx, userID)
}
