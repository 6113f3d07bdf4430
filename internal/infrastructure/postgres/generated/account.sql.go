package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const applyAccountDelta = `-- name: ApplyAccountDelta :one
UPDATE accounts
SET balance = balance + $2, version = version + 1, updated_at = $3
WHERE id = $1
RETURNING id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at
`

type ApplyAccountDeltaParams struct {
	ID        string             `json:"id"`
	Delta     pgtype.Numeric     `json:"delta"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) ApplyAccountDelta(ctx context.Context, arg ApplyAccountDeltaParams) (Account, error) {
	row := q.db.QueryRow(ctx, applyAccountDelta, arg.ID, arg.Delta, arg.UpdatedAt)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Currency,
		&i.Status,
		&i.Balance,
		&i.Version,
		&i.AllowNegativeBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at
`

type CreateAccountParams struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"user_id"`
	Name                 string             `json:"name"`
	Currency             string             `json:"currency"`
	Status               string             `json:"status"`
	Balance              pgtype.Numeric     `json:"balance"`
	Version              int64              `json:"version"`
	AllowNegativeBalance bool               `json:"allow_negative_balance"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, createAccount,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.Currency,
		arg.Status,
		arg.Balance,
		arg.Version,
		arg.AllowNegativeBalance,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Currency,
		&i.Status,
		&i.Balance,
		&i.Version,
		&i.AllowNegativeBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Currency,
		&i.Status,
		&i.Balance,
		&i.Version,
		&i.AllowNegativeBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getPrimaryAccount = `-- name: GetPrimaryAccount :one
SELECT id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at FROM accounts
WHERE user_id = $1 AND currency = $2
ORDER BY created_at, id
LIMIT 1
`

type GetPrimaryAccountParams struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

func (q *Queries) GetPrimaryAccount(ctx context.Context, arg GetPrimaryAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, getPrimaryAccount, arg.UserID, arg.Currency)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Currency,
		&i.Status,
		&i.Balance,
		&i.Version,
		&i.AllowNegativeBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at FROM accounts
ORDER BY created_at, id
LIMIT $1 OFFSET $2
`

type ListAccountsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Currency,
			&i.Status,
			&i.Balance,
			&i.Version,
			&i.AllowNegativeBalance,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listAccountsByUser = `-- name: ListAccountsByUser :many
SELECT id, user_id, name, currency, status, balance, version, allow_negative_balance, created_at, updated_at FROM accounts
WHERE user_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListAccountsByUser(ctx context.Context, userID string) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccountsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Currency,
			&i.Status,
			&i.Balance,
			&i.Version,
			&i.AllowNegativeBalance,
			&i.CreatedAt,
			&i.UpdatedAt,
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
