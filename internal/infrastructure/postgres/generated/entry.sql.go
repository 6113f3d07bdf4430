package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createEntry = `-- name: CreateEntry :one
INSERT INTO ledger_entries (id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at
`

type CreateEntryParams struct {
	ID             string             `json:"id"`
	Reference      string             `json:"reference"`
	AccountID      string             `json:"account_id"`
	Type           string             `json:"type"`
	Amount         pgtype.Numeric     `json:"amount"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	Description    string             `json:"description"`
	IdempotencyKey pgtype.Text        `json:"idempotency_key"`
	Metadata       []byte             `json:"metadata"`
	CompletedAt    pgtype.Timestamptz `json:"completed_at"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, createEntry,
		arg.ID,
		arg.Reference,
		arg.AccountID,
		arg.Type,
		arg.Amount,
		arg.Currency,
		arg.Status,
		arg.Description,
		arg.IdempotencyKey,
		arg.Metadata,
		arg.CompletedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.AccountID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Description,
		&i.IdempotencyKey,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getEntryByExternalReference = `-- name: GetEntryByExternalReference :one
SELECT id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at FROM ledger_entries
WHERE metadata ->> 'provider' = $1 AND metadata ->> 'external_reference' = $2
ORDER BY created_at, id
LIMIT 1
`

type GetEntryByExternalReferenceParams struct {
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
}

func (q *Queries) GetEntryByExternalReference(ctx context.Context, arg GetEntryByExternalReferenceParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByExternalReference, arg.Provider, arg.ExternalReference)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.AccountID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Description,
		&i.IdempotencyKey,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getEntryByID = `-- name: GetEntryByID :one
SELECT id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at FROM ledger_entries WHERE id = $1
`

func (q *Queries) GetEntryByID(ctx context.Context, id string) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByID, id)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.AccountID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Description,
		&i.IdempotencyKey,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getEntryByIDForUpdate = `-- name: GetEntryByIDForUpdate :one
SELECT id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at FROM ledger_entries WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetEntryByIDForUpdate(ctx context.Context, id string) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByIDForUpdate, id)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.AccountID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Description,
		&i.IdempotencyKey,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getEntryByIdempotencyKey = `-- name: GetEntryByIdempotencyKey :one
SELECT id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at FROM ledger_entries WHERE idempotency_key = $1
`

func (q *Queries) GetEntryByIdempotencyKey(ctx context.Context, idempotencyKey string) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByIdempotencyKey, idempotencyKey)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.AccountID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Description,
		&i.IdempotencyKey,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listEntriesByAccount = `-- name: ListEntriesByAccount :many
SELECT id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at FROM ledger_entries
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListEntriesByAccountParams struct {
	AccountID string `json:"account_id"`
	Limit     int32  `json:"limit"`
	Offset    int32  `json:"offset"`
}

func (q *Queries) ListEntriesByAccount(ctx context.Context, arg ListEntriesByAccountParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listEntriesByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.Reference,
			&i.AccountID,
			&i.Type,
			&i.Amount,
			&i.Currency,
			&i.Status,
			&i.Description,
			&i.IdempotencyKey,
			&i.Metadata,
			&i.CompletedAt,
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

const listUnsettledEntries = `-- name: ListUnsettledEntries :many
SELECT id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at FROM ledger_entries
WHERE status = 'completed'
  AND (metadata ->> 'balance_adjusted') IS DISTINCT FROM 'true'
  AND (completed_at IS NULL OR completed_at <= $1)
ORDER BY completed_at NULLS FIRST, id
LIMIT $2
`

type ListUnsettledEntriesParams struct {
	CompletedBefore pgtype.Timestamptz `json:"completed_before"`
	LimitCount      int32              `json:"limit_count"`
}

func (q *Queries) ListUnsettledEntries(ctx context.Context, arg ListUnsettledEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listUnsettledEntries, arg.CompletedBefore, arg.LimitCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.Reference,
			&i.AccountID,
			&i.Type,
			&i.Amount,
			&i.Currency,
			&i.Status,
			&i.Description,
			&i.IdempotencyKey,
			&i.Metadata,
			&i.CompletedAt,
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

const markEntryBalanceAdjusted = `-- name: MarkEntryBalanceAdjusted :execrows
UPDATE ledger_entries
SET metadata = metadata || '{"balance_adjusted": true}'::jsonb, updated_at = $2
WHERE id = $1
`

type MarkEntryBalanceAdjustedParams struct {
	ID        string             `json:"id"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) MarkEntryBalanceAdjusted(ctx context.Context, arg MarkEntryBalanceAdjustedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markEntryBalanceAdjusted, arg.ID, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const mergeEntryMetadata = `-- name: MergeEntryMetadata :execrows
UPDATE ledger_entries
SET metadata = metadata || $2::jsonb, updated_at = $3
WHERE id = $1
`

type MergeEntryMetadataParams struct {
	ID        string             `json:"id"`
	Patch     []byte             `json:"patch"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) MergeEntryMetadata(ctx context.Context, arg MergeEntryMetadataParams) (int64, error) {
	result, err := q.db.Exec(ctx, mergeEntryMetadata, arg.ID, arg.Patch, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const settledTotalsByAccount = `-- name: SettledTotalsByAccount :many
SELECT type, COALESCE(SUM(amount), 0)::numeric AS total
FROM ledger_entries
WHERE account_id = $1 AND (metadata ->> 'balance_adjusted') = 'true'
GROUP BY type
`

type SettledTotalsByAccountRow struct {
	Type  string         `json:"type"`
	Total pgtype.Numeric `json:"total"`
}

func (q *Queries) SettledTotalsByAccount(ctx context.Context, accountID string) ([]SettledTotalsByAccountRow, error) {
	rows, err := q.db.Query(ctx, settledTotalsByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SettledTotalsByAccountRow
	for rows.Next() {
		var i SettledTotalsByAccountRow
		if err := rows.Scan(&i.Type, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumCompletedByUser = `-- name: SumCompletedByUser :one
SELECT COALESCE(SUM(e.amount), 0)::numeric AS total
FROM ledger_entries e
JOIN accounts a ON a.id = e.account_id
WHERE a.user_id = $1 AND e.type = $2 AND e.currency = $3 AND e.status = 'completed'
`

type SumCompletedByUserParams struct {
	UserID   string `json:"user_id"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (q *Queries) SumCompletedByUser(ctx context.Context, arg SumCompletedByUserParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumCompletedByUser, arg.UserID, arg.Type, arg.Currency)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

const transitionEntryStatus = `-- name: TransitionEntryStatus :one
UPDATE ledger_entries
SET status = $2,
    completed_at = COALESCE($4, completed_at),
    metadata = metadata || $5::jsonb,
    updated_at = $3
WHERE id = $1 AND status IN ('pending', 'scheduled')
RETURNING id, reference, account_id, type, amount, currency, status, description, idempotency_key, metadata, completed_at, created_at, updated_at
`

type TransitionEntryStatusParams struct {
	ID          string             `json:"id"`
	Status      string             `json:"status"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
	CompletedAt pgtype.Timestamptz `json:"completed_at"`
	Patch       []byte             `json:"patch"`
}

func (q *Queries) TransitionEntryStatus(ctx context.Context, arg TransitionEntryStatusParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, transitionEntryStatus,
		arg.ID,
		arg.Status,
		arg.UpdatedAt,
		arg.CompletedAt,
		arg.Patch,
	)
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.AccountID,
		&i.Type,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Description,
		&i.IdempotencyKey,
		&i.Metadata,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
