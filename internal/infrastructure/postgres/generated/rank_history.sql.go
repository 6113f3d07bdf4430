package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createRankHistory = `-- name: CreateRankHistory :exec
INSERT INTO user_rank_history (user_id, rank_id, reward_entry_id, reward_amount, achieved_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, rank_id) DO NOTHING
`

type CreateRankHistoryParams struct {
	UserID        string             `json:"user_id"`
	RankID        string             `json:"rank_id"`
	RewardEntryID pgtype.Text        `json:"reward_entry_id"`
	RewardAmount  pgtype.Numeric     `json:"reward_amount"`
	AchievedAt    pgtype.Timestamptz `json:"achieved_at"`
}

func (q *Queries) CreateRankHistory(ctx context.Context, arg CreateRankHistoryParams) error {
	_, err := q.db.Exec(ctx, createRankHistory,
		arg.UserID,
		arg.RankID,
		arg.RewardEntryID,
		arg.RewardAmount,
		arg.AchievedAt,
	)
	return err
}

const listRankHistoryByUser = `-- name: ListRankHistoryByUser :many
SELECT user_id, rank_id, reward_entry_id, reward_amount, achieved_at FROM user_rank_history WHERE user_id = $1 ORDER BY achieved_at, rank_id
`

func (q *Queries) ListRankHistoryByUser(ctx context.Context, userID string) ([]UserRankHistory, error) {
	rows, err := q.db.Query(ctx, listRankHistoryByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRankHistory
	for rows.Next() {
		var i UserRankHistory
		if err := rows.Scan(
			&i.UserID,
			&i.RankID,
			&i.RewardEntryID,
			&i.RewardAmount,
			&i.AchievedAt,
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

const rankHistoryExists = `-- name: RankHistoryExists :one
SELECT EXISTS (SELECT 1 FROM user_rank_history WHERE user_id = $1 AND rank_id = $2)
`

type RankHistoryExistsParams struct {
	UserID string `json:"user_id"`
	RankID string `json:"rank_id"`
}

func (q *Queries) RankHistoryExists(ctx context.Context, arg RankHistoryExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, rankHistoryExists, arg.UserID, arg.RankID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}
