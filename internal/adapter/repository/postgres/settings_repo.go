package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/rewardledger/internal/infrastructure/postgres/generated"
)

type settingsDB interface {
	generated.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettingsRepository implements usecase.RewardsSettingsStore on the
// settings key/value table.
type SettingsRepository struct {
	db      settingsDB
	queries *generated.Queries
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return newSettingsRepository(pool)
}

func newSettingsRepository(db settingsDB) *SettingsRepository {
	return &SettingsRepository{db: db, queries: generated.New(db)}
}

// Load returns every stored setting.
func (r *SettingsRepository) Load(ctx context.Context) (map[string]string, error) {
	rows, err := r.queries.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	return values, nil
}

// Save upserts values in one transaction.
func (r *SettingsRepository) Save(ctx context.Context, values map[string]string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	queries := r.queries.WithTx(tx)
	for _, k := range keys {
		if err := queries.UpsertSetting(ctx, generated.UpsertSettingParams{
			Key:       k,
			Value:     values[k],
			UpdatedAt: timeToPgTimestamptz(at),
		}); err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}

	return tx.Commit(ctx)
}
