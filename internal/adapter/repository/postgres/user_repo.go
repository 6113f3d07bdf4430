package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/postgres/generated"
	"github.com/iho/rewardledger/internal/usecase"
)

const userEmailConstraint = "users_email_key"

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	queries *generated.Queries
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return newUserRepository(pool)
}

func newUserRepository(db generated.DBTX) *UserRepository {
	return &UserRepository{queries: generated.New(db)}
}

// Create inserts a new user. The referrer must already exist.
func (r *UserRepository) Create(ctx context.Context, tx usecase.Transaction, user *domain.User) error {
	_, err := queriesFor(r.queries, tx).CreateUser(ctx, generated.CreateUserParams{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		ReferrerID: textFromPtr(user.ReferrerID),
		RankID:     textFromPtr(user.RankID),
		CreatedAt:  timeToPgTimestamptz(user.CreatedAt),
		UpdatedAt:  timeToPgTimestamptz(user.UpdatedAt),
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, userEmailConstraint):
		return domain.ErrEmailTaken
	case isForeignKeyViolation(err):
		return domain.ErrReferrerNotFound
	}

	return err
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}

		return nil, err
	}

	return &domain.User{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		ReferrerID: ptrFromText(row.ReferrerID),
		RankID:     ptrFromText(row.RankID),
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}, nil
}

// PromoteRank moves the user to rankID when the held rank's threshold is
// below threshold. The guard is evaluated by the UPDATE itself.
func (r *UserRepository) PromoteRank(ctx context.Context, userID, rankID string, threshold decimal.Decimal, at time.Time) (bool, error) {
	n, err := r.queries.PromoteUserRank(ctx, generated.PromoteUserRankParams{
		ID:        userID,
		RankID:    textFromString(rankID),
		Threshold: decimalToNumeric(threshold),
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	if _, err := r.GetByID(ctx, userID); err != nil {
		return false, err
	}

	return false, nil
}
