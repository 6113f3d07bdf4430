package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/postgres/generated"
)

// RankRepository implements usecase.RankRepository.
type RankRepository struct {
	queries *generated.Queries
}

// NewRankRepository creates a new RankRepository.
func NewRankRepository(pool *pgxpool.Pool) *RankRepository {
	return newRankRepository(pool)
}

func newRankRepository(db generated.DBTX) *RankRepository {
	return &RankRepository{queries: generated.New(db)}
}

// Create inserts a rank.
func (r *RankRepository) Create(ctx context.Context, rank *domain.Rank) error {
	_, err := r.queries.CreateRank(ctx, generated.CreateRankParams{
		ID:                  rank.ID,
		Name:                rank.Name,
		MinQualifyingVolume: decimalToNumeric(rank.MinQualifyingVolume),
		OneTimeReward:       decimalToNumeric(rank.OneTimeReward),
		IsActive:            rank.IsActive,
		IsDefault:           rank.IsDefault,
		CreatedAt:           timeToPgTimestamptz(rank.CreatedAt),
	})
	if isUniqueViolation(err, "") {
		return fmt.Errorf("%w: name or default flag already taken", domain.ErrInvalidRank)
	}

	return err
}

// GetByID retrieves a rank by ID.
func (r *RankRepository) GetByID(ctx context.Context, id string) (*domain.Rank, error) {
	return rankOrNotFound(r.queries.GetRankByID(ctx, id))
}

// GetDefault returns the rank assigned at registration.
func (r *RankRepository) GetDefault(ctx context.Context) (*domain.Rank, error) {
	return rankOrNotFound(r.queries.GetDefaultRank(ctx))
}

// ListActive returns active ranks ordered by threshold.
func (r *RankRepository) ListActive(ctx context.Context) ([]*domain.Rank, error) {
	rows, err := r.queries.ListActiveRanks(ctx)
	if err != nil {
		return nil, err
	}

	return rowsToRanks(rows), nil
}

// List returns every rank ordered by threshold.
func (r *RankRepository) List(ctx context.Context) ([]*domain.Rank, error) {
	rows, err := r.queries.ListRanks(ctx)
	if err != nil {
		return nil, err
	}

	return rowsToRanks(rows), nil
}

func rankOrNotFound(row generated.Rank, err error) (*domain.Rank, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRankNotFound
		}

		return nil, err
	}

	return rowToRank(row), nil
}

func rowToRank(row generated.Rank) *domain.Rank {
	return &domain.Rank{
		ID:                  row.ID,
		Name:                row.Name,
		MinQualifyingVolume: numericToDecimal(row.MinQualifyingVolume),
		OneTimeReward:       numericToDecimal(row.OneTimeReward),
		IsActive:            row.IsActive,
		IsDefault:           row.IsDefault,
		CreatedAt:           row.CreatedAt.Time,
	}
}

func rowsToRanks(rows []generated.Rank) []*domain.Rank {
	ranks := make([]*domain.Rank, 0, len(rows))
	for _, row := range rows {
		ranks = append(ranks, rowToRank(row))
	}

	return ranks
}

// RankHistoryRepository implements usecase.RankHistoryRepository.
type RankHistoryRepository struct {
	queries *generated.Queries
}

// NewRankHistoryRepository creates a new RankHistoryRepository.
func NewRankHistoryRepository(pool *pgxpool.Pool) *RankHistoryRepository {
	return newRankHistoryRepository(pool)
}

func newRankHistoryRepository(db generated.DBTX) *RankHistoryRepository {
	return &RankHistoryRepository{queries: generated.New(db)}
}

// Exists reports whether the user already reached the rank.
func (r *RankHistoryRepository) Exists(ctx context.Context, userID, rankID string) (bool, error) {
	return r.queries.RankHistoryExists(ctx, generated.RankHistoryExistsParams{
		UserID: userID,
		RankID: rankID,
	})
}

// Create records the achievement; an existing row is left untouched.
func (r *RankHistoryRepository) Create(ctx context.Context, history *domain.RankHistory) error {
	return r.queries.CreateRankHistory(ctx, generated.CreateRankHistoryParams{
		UserID:        history.UserID,
		RankID:        history.RankID,
		RewardEntryID: textFromPtr(history.RewardEntryID),
		RewardAmount:  decimalToNumeric(history.RewardAmount),
		AchievedAt:    timeToPgTimestamptz(history.AchievedAt),
	})
}

// ListByUser returns the user's achievements in the order they happened.
func (r *RankHistoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.RankHistory, error) {
	rows, err := r.queries.ListRankHistoryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := make([]*domain.RankHistory, 0, len(rows))
	for _, row := range rows {
		history = append(history, &domain.RankHistory{
			UserID:        row.UserID,
			RankID:        row.RankID,
			RewardEntryID: ptrFromText(row.RewardEntryID),
			RewardAmount:  numericToDecimal(row.RewardAmount),
			AchievedAt:    row.AchievedAt.Time,
		})
	}

	return history, nil
}
