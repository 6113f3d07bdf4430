package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// ProvisioningConfig describes the accounts opened for every new user.
type ProvisioningConfig struct {
	DefaultCurrency string
	WalletTypes     []string
}

// UserUseCase handles user registration and lookups.
type UserUseCase struct {
	txManager   TransactionManager
	userRepo    UserRepository
	accountRepo AccountRepository
	rankRepo    RankRepository
	idGen       IDGenerator
	provision   ProvisioningConfig
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(
	txManager TransactionManager,
	userRepo UserRepository,
	accountRepo AccountRepository,
	rankRepo RankRepository,
	idGen IDGenerator,
	provision ProvisioningConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *UserUseCase {
	return &UserUseCase{
		txManager:   txManager,
		userRepo:    userRepo,
		accountRepo: accountRepo,
		rankRepo:    rankRepo,
		idGen:       idGen,
		provision:   provision,
		logger:      logger.With().Str("component", "users").Logger(),
		metrics:     metrics,
	}
}

// RegisterUserInput represents input for registering a user
type RegisterUserInput struct {
	ReferrerID *string
	Name       string
	Email      string
}

// RegisteredUser is the outcome of RegisterUser.
type RegisteredUser struct {
	User     *domain.User
	Accounts []*domain.Account
}

// RegisterUser creates a user with its wallet accounts. The referrer must
// already exist, which keeps the referral graph acyclic.
func (uc *UserUseCase) RegisterUser(ctx context.Context, input RegisterUserInput) (*RegisteredUser, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	var referrerID *string
	if input.ReferrerID != nil && *input.ReferrerID != "" {
		referrer, err := uc.userRepo.GetByID(ctx, *input.ReferrerID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrReferrerNotFound
		}
		if err != nil {
			return nil, err
		}
		referrerID = &referrer.ID
	}

	var rankID *string
	rank, err := uc.rankRepo.GetDefault(ctx)
	switch {
	case err == nil:
		rankID = &rank.ID
	case !errors.Is(err, domain.ErrRankNotFound):
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:         uc.idGen.Generate(),
		Name:       strings.TrimSpace(input.Name),
		Email:      email,
		ReferrerID: referrerID,
		RankID:     rankID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	currency := domain.NormalizeCurrency(uc.provision.DefaultCurrency)
	accounts := make([]*domain.Account, 0, len(uc.provision.WalletTypes))
	for _, wallet := range uc.provision.WalletTypes {
		accounts = append(accounts, &domain.Account{
			ID:        uc.idGen.Generate(),
			UserID:    user.ID,
			Name:      wallet,
			Currency:  currency,
			Status:    domain.AccountStatusActive,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := uc.userRepo.Create(ctx, tx, user); err != nil {
		return nil, err
	}

	for _, account := range accounts {
		if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.UsersRegistered.Inc()
		uc.metrics.AccountsCreated.Add(float64(len(accounts)))
	}

	uc.logger.Info().
		Str("user_id", user.ID).
		Bool("referred", user.HasReferrer()).
		Int("accounts", len(accounts)).
		Msg("user registered")

	return &RegisteredUser{User: user, Accounts: accounts}, nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}
