package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/postgres/generated"
	"github.com/iho/rewardledger/internal/usecase"
)

const idempotencyKeyConstraint = "ledger_entries_idempotency_key_key"

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepository(pool)
}

func newEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create inserts the entry. A clash on the idempotency key yields
// domain.ErrDuplicateEntry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = queriesFor(r.queries, tx).CreateEntry(ctx, generated.CreateEntryParams{
		ID:             entry.ID,
		Reference:      entry.Reference,
		AccountID:      entry.AccountID,
		Type:           string(entry.Type),
		Amount:         decimalToNumeric(entry.Amount),
		Currency:       entry.Currency,
		Status:         string(entry.Status),
		Description:    entry.Description,
		IdempotencyKey: textFromString(entry.IdempotencyKey),
		Metadata:       metadata,
		CompletedAt:    optionalTime(entry.CompletedAt),
		CreatedAt:      timeToPgTimestamptz(entry.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(entry.UpdatedAt),
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, idempotencyKeyConstraint):
		return domain.ErrDuplicateEntry
	case isForeignKeyViolation(err):
		return domain.ErrAccountNotFound
	}

	return err
}

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return entryOrNotFound(r.queries.GetEntryByID(ctx, id))
}

// GetByIDForUpdate retrieves an entry by ID with a FOR UPDATE lock.
func (r *EntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerEntry, error) {
	return entryOrNotFound(queriesFor(r.queries, tx).GetEntryByIDForUpdate(ctx, id))
}

// GetByIdempotencyKey retrieves an entry by its idempotency key.
func (r *EntryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	return entryOrNotFound(r.queries.GetEntryByIdempotencyKey(ctx, key))
}

// GetByExternalReference finds the entry a payment provider knows by reference.
func (r *EntryRepository) GetByExternalReference(ctx context.Context, provider, reference string) (*domain.LedgerEntry, error) {
	return entryOrNotFound(r.queries.GetEntryByExternalReference(ctx, generated.GetEntryByExternalReferenceParams{
		Provider:          provider,
		ExternalReference: reference,
	}))
}

// TransitionStatus moves the entry to status only if it is still pending or
// scheduled. The condition lives in the UPDATE, so of two racing callers
// exactly one sees ok == true.
func (r *EntryRepository) TransitionStatus(ctx context.Context, id string, status domain.EntryStatus, at time.Time, patch map[string]any) (*domain.LedgerEntry, bool, error) {
	encoded, err := marshalMetadata(patch)
	if err != nil {
		return nil, false, fmt.Errorf("encode metadata: %w", err)
	}

	completedAt := pgtype.Timestamptz{}
	if status == domain.EntryStatusCompleted {
		completedAt = timeToPgTimestamptz(at)
	}

	row, err := r.queries.TransitionEntryStatus(ctx, generated.TransitionEntryStatusParams{
		ID:          id,
		Status:      string(status),
		UpdatedAt:   timeToPgTimestamptz(at),
		CompletedAt: completedAt,
		Patch:       encoded,
	})
	if err == nil {
		entry, err := rowToEntry(row)
		if err != nil {
			return nil, false, err
		}
		return entry, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, false, err
	}

	return nil, false, nil
}

// MarkBalanceAdjusted sets the settlement marker inside tx.
func (r *EntryRepository) MarkBalanceAdjusted(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	n, err := queriesFor(r.queries, tx).MarkEntryBalanceAdjusted(ctx, generated.MarkEntryBalanceAdjustedParams{
		ID:        id,
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// MergeMetadata merges patch into the entry metadata.
func (r *EntryRepository) MergeMetadata(ctx context.Context, id string, patch map[string]any, at time.Time) error {
	encoded, err := marshalMetadata(patch)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	n, err := r.queries.MergeEntryMetadata(ctx, generated.MergeEntryMetadataParams{
		ID:        id,
		Patch:     encoded,
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// ListByAccount lists the entries of an account, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListEntriesByAccount(ctx, generated.ListEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows)
}

// SumCompletedByUser sums completed entries of entryType in currency over
// every account of the user.
func (r *EntryRepository) SumCompletedByUser(ctx context.Context, userID string, entryType domain.EntryType, currency string) (decimal.Decimal, error) {
	total, err := r.queries.SumCompletedByUser(ctx, generated.SumCompletedByUserParams{
		UserID:   userID,
		Type:     string(entryType),
		Currency: currency,
	})
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(total), nil
}

// ListUnsettled returns completed entries without the settlement marker that
// completed no later than completedBefore.
func (r *EntryRepository) ListUnsettled(ctx context.Context, completedBefore time.Time, limit int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListUnsettledEntries(ctx, generated.ListUnsettledEntriesParams{
		CompletedBefore: timeToPgTimestamptz(completedBefore),
		LimitCount:      int32(limit),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows)
}

// SettledTotals returns credit and debit sums of settled entries.
func (r *EntryRepository) SettledTotals(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := r.queries.SettledTotalsByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	credits, debits := decimal.Zero, decimal.Zero
	for _, row := range rows {
		dir, err := domain.EntryType(row.Type).Direction()
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if dir == domain.DirectionCredit {
			credits = credits.Add(numericToDecimal(row.Total))
		} else {
			debits = debits.Add(numericToDecimal(row.Total))
		}
	}

	return credits, debits, nil
}

func entryOrNotFound(row generated.LedgerEntry, err error) (*domain.LedgerEntry, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return rowToEntry(row)
}

// rowToEntry fails on undecodable metadata rather than dropping it, since
// losing the settlement marker would let the entry settle again.
func rowToEntry(row generated.LedgerEntry) (*domain.LedgerEntry, error) {
	metadata, err := unmarshalMetadata(row.Metadata)
	if err != nil {
		return nil, fmt.Errorf("decode metadata of entry %s: %w", row.ID, err)
	}

	return &domain.LedgerEntry{
		ID:             row.ID,
		Reference:      row.Reference,
		AccountID:      row.AccountID,
		Type:           domain.EntryType(row.Type),
		Amount:         numericToDecimal(row.Amount),
		Currency:       row.Currency,
		Status:         domain.EntryStatus(row.Status),
		Description:    row.Description,
		IdempotencyKey: row.IdempotencyKey.String,
		Metadata:       metadata,
		CompletedAt:    timeFromPg(row.CompletedAt),
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}, nil
}

func rowsToEntries(rows []generated.LedgerEntry) ([]*domain.LedgerEntry, error) {
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := rowToEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
