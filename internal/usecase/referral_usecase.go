package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// ReferralUseCase distributes multi-level commissions up the referrer chain
// of the user whose deposit or payment settled.
type ReferralUseCase struct {
	userRepo    UserRepository
	accountRepo AccountRepository
	entries     EntryCreator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewReferralUseCase creates a new ReferralUseCase.
func NewReferralUseCase(
	userRepo UserRepository,
	accountRepo AccountRepository,
	entries EntryCreator,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ReferralUseCase {
	return &ReferralUseCase{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		entries:     entries,
		logger:      logger.With().Str("component", "referral").Logger(),
		metrics:     metrics,
	}
}

// Name implements SettledHandler.
func (uc *ReferralUseCase) Name() string { return "referral" }

// HandleSettled implements SettledHandler. Only deposit and payment entries
// pay commissions, so referral_reward entries can never recurse.
func (uc *ReferralUseCase) HandleSettled(ctx context.Context, event *domain.SettledEvent, cfg *domain.RewardsConfig) error {
	category, ok := domain.ReferralCategoryFor(event.Entry.Type)
	if !ok {
		return nil
	}

	_, err := uc.Distribute(ctx, event.Entry, event.Account.UserID, category, cfg)
	return err
}

// Commission is one commission paid by Distribute.
type Commission struct {
	Entry         *domain.LedgerEntry
	BeneficiaryID string
	Level         int
}

// Distribute walks the referrer chain of originUserID and credits each upline
// member the configured percentage of entry.Amount. The walk stops at the
// first level without a percentage, at the end of the chain, or at the
// configured maximum level. A failing level does not stop the walk.
func (uc *ReferralUseCase) Distribute(
	ctx context.Context,
	entry *domain.LedgerEntry,
	originUserID string,
	category domain.ReferralCategory,
	cfg *domain.RewardsConfig,
) ([]Commission, error) {
	if !cfg.CommissionEnabled(category) {
		return nil, nil
	}
	table := cfg.Table(category)

	origin, err := uc.userRepo.GetByID(ctx, originUserID)
	if err != nil {
		return nil, fmt.Errorf("load originating user %s: %w", originUserID, err)
	}

	var (
		paid []Commission
		errs []error
	)

	beneficiaryID := origin.ReferrerID
	maxLevel := cfg.MaxLevel()

	for level := 1; level <= maxLevel && beneficiaryID != nil; level++ {
		pct, ok := table.PercentageFor(level)
		if !ok {
			break
		}

		beneficiary, err := uc.userRepo.GetByID(ctx, *beneficiaryID)
		if err != nil {
			errs = append(errs, fmt.Errorf("level %d: load referrer %s: %w", level, *beneficiaryID, err))
			break
		}

		commission := domain.Percentage(entry.Amount, pct, entry.Currency)
		if commission.IsPositive() {
			created, err := uc.pay(ctx, entry, origin, beneficiary, category, level, commission)
			switch {
			case err == nil && created != nil:
				paid = append(paid, Commission{Entry: created, BeneficiaryID: beneficiary.ID, Level: level})
			case errors.Is(err, domain.ErrMissingBeneficiaryAccount):
				uc.skip("missing_account")
				uc.logger.Warn().
					Err(err).
					Str("beneficiary_id", beneficiary.ID).
					Str("source_entry", entry.ID).
					Int("level", level).
					Msg("referral level skipped")
			case err != nil:
				errs = append(errs, fmt.Errorf("level %d: %w", level, err))
			}
		}

		beneficiaryID = beneficiary.ReferrerID
	}

	return paid, errors.Join(errs...)
}

// pay credits one level. It returns a nil entry when the level was already
// paid by an earlier delivery of the same event.
func (uc *ReferralUseCase) pay(
	ctx context.Context,
	source *domain.LedgerEntry,
	origin, beneficiary *domain.User,
	category domain.ReferralCategory,
	level int,
	commission decimal.Decimal,
) (*domain.LedgerEntry, error) {
	account, err := uc.accountRepo.PrimaryForUser(ctx, beneficiary.ID, source.Currency)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: user %s has no %s account", domain.ErrMissingBeneficiaryAccount, beneficiary.ID, source.Currency)
		}
		return nil, err
	}

	created, err := uc.entries.CreateEntry(ctx, CreateEntryInput{
		AccountID:   account.ID,
		Type:        domain.EntryTypeReferralReward,
		Amount:      commission,
		Currency:    source.Currency,
		Status:      domain.EntryStatusCompleted,
		Description: fmt.Sprintf("Level %d %s referral commission", level, category),
		Metadata: map[string]any{
			domain.MetadataSourceUser:  origin.ID,
			domain.MetadataSourceEntry: source.ID,
			domain.MetadataLevel:       level,
			domain.MetadataCategory:    string(category),
		},
		IdempotencyKey: ReferralIdempotencyKey(source.ID, level),
	})
	if errors.Is(err, domain.ErrDuplicateEntry) {
		uc.logger.Debug().Str("source_entry", source.ID).Int("level", level).Msg("commission already paid")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CommissionsPaid.WithLabelValues(string(category), strconv.Itoa(level)).Inc()
		amount, _ := commission.Float64()
		uc.metrics.CommissionAmount.Observe(amount)
	}

	uc.logger.Info().
		Str("entry_id", created.ID).
		Str("beneficiary_id", beneficiary.ID).
		Str("source_entry", source.ID).
		Int("level", level).
		Str("amount", commission.String()).
		Msg("referral commission paid")

	return created, nil
}

func (uc *ReferralUseCase) skip(reason string) {
	if uc.metrics != nil {
		uc.metrics.CommissionsSkipped.WithLabelValues(reason).Inc()
	}
}

// ReferralIdempotencyKey identifies the commission of one level of one entry.
func ReferralIdempotencyKey(sourceEntryID string, level int) string {
	return "referral:" + sourceEntryID + ":" + strconv.Itoa(level)
}
