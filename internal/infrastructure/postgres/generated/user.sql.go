package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type CreateUserParams struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	ReferrerID pgtype.Text        `json:"referrer_id"`
	RankID     pgtype.Text        `json:"rank_id"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, name, email, referrer_id, rank_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, name, email, referrer_id, rank_id, created_at, updated_at
`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.ReferrerID,
		arg.RankID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.ReferrerID,
		&i.RankID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, name, email, referrer_id, rank_id, created_at, updated_at FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.ReferrerID,
		&i.RankID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const promoteUserRank = `-- name: PromoteUserRank :execrows
UPDATE users u
SET rank_id = $2, updated_at = $4
WHERE u.id = $1
  AND (u.rank_id IS NULL
       OR COALESCE((SELECT r.min_qualifying_volume FROM ranks r WHERE r.id = u.rank_id), -1) < $3)
`

type PromoteUserRankParams struct {
	ID        string             `json:"id"`
	RankID    pgtype.Text        `json:"rank_id"`
	Threshold pgtype.Numeric     `json:"threshold"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) PromoteUserRank(ctx context.Context, arg PromoteUserRankParams) (int64, error) {
	result, err := q.db.Exec(ctx, promoteUserRank,
		arg.ID,
		arg.RankID,
		arg.Threshold,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
