package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type CreateRankParams struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	MinQualifyingVolume pgtype.Numeric     `json:"min_qualifying_volume"`
	OneTimeReward       pgtype.Numeric     `json:"one_time_reward"`
	IsActive            bool               `json:"is_active"`
	IsDefault           bool               `json:"is_default"`
	CreatedAt           pgtype.Timestamptz `json:"created_at"`
}

const createRank = `-- name: CreateRank :one
INSERT INTO ranks (id, name, min_qualifying_volume, one_time_reward, is_active, is_default, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, name, min_qualifying_volume, one_time_reward, is_active, is_default, created_at
`

func (q *Queries) CreateRank(ctx context.Context, arg CreateRankParams) (Rank, error) {
	row := q.db.QueryRow(ctx, createRank,
		arg.ID,
		arg.Name,
		arg.MinQualifyingVolume,
		arg.OneTimeReward,
		arg.IsActive,
		arg.IsDefault,
		arg.CreatedAt,
	)
	var i Rank
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.MinQualifyingVolume,
		&i.OneTimeReward,
		&i.IsActive,
		&i.IsDefault,
		&i.CreatedAt,
	)
	return i, err
}

const getDefaultRank = `-- name: GetDefaultRank :one
SELECT id, name, min_qualifying_volume, one_time_reward, is_active, is_default, created_at FROM ranks WHERE is_default ORDER BY created_at, id LIMIT 1
`

func (q *Queries) GetDefaultRank(ctx context.Context) (Rank, error) {
	row := q.db.QueryRow(ctx, getDefaultRank)
	var i Rank
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.MinQualifyingVolume,
		&i.OneTimeReward,
		&i.IsActive,
		&i.IsDefault,
		&i.CreatedAt,
	)
	return i, err
}

const getRankByID = `-- name: GetRankByID :one
SELECT id, name, min_qualifying_volume, one_time_reward, is_active, is_default, created_at FROM ranks WHERE id = $1
`

func (q *Queries) GetRankByID(ctx context.Context, id string) (Rank, error) {
	row := q.db.QueryRow(ctx, getRankByID, id)
	var i Rank
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.MinQualifyingVolume,
		&i.OneTimeReward,
		&i.IsActive,
		&i.IsDefault,
		&i.CreatedAt,
	)
	return i, err
}

const listActiveRanks = `-- name: ListActiveRanks :many
SELECT id, name, min_qualifying_volume, one_time_reward, is_active, is_default, created_at FROM ranks WHERE is_active ORDER BY min_qualifying_volume, id
`

func (q *Queries) ListActiveRanks(ctx context.Context) ([]Rank, error) {
	rows, err := q.db.Query(ctx, listActiveRanks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Rank
	for rows.Next() {
		var i Rank
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.MinQualifyingVolume,
			&i.OneTimeReward,
			&i.IsActive,
			&i.IsDefault,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRanks = `-- name: ListRanks :many
SELECT id, name, min_qualifying_volume, one_time_reward, is_active, is_default, created_at FROM ranks ORDER BY min_qualifying_volume, id
`

func (q *Queries) ListRanks(ctx context.Context) ([]Rank, error) {
	rows, err := q.db.Query(ctx, listRanks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Rank
	for rows.Next() {
		var i Rank
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.MinQualifyingVolume,
			&i.OneTimeReward,
			&i.IsActive,
			&i.IsDefault,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
