package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

// EntryRepository stores transfers and their entries in Postgres.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// PostTransfer inserts the transfer header and its entries in one transaction.
// The unique index on idempotency_key turns a concurrent replay into
// ErrDuplicate with nothing committed.
func (r *EntryRepository) PostTransfer(ctx context.Context, transfer *models.Transfer, entries []*models.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer %s: %w", transfer.RefID, err)
	}
	defer tx.Rollback()

	var reverses sql.NullString
	if transfer.ReversesRefID != nil {
		reverses = sql.NullString{String: *transfer.ReversesRefID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_transfers
		(ref_id, idempotency_key, ref_type, currency, gross_amount, platform_fee_amount, product_id, reverses_ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		transfer.RefID, transfer.IdempotencyKey, transfer.RefType, transfer.Currency,
		transfer.GrossAmount, transfer.PlatformFeeAmount, transfer.ProductID, reverses, transfer.CreatedAt)
	if err != nil {
		return translate(err, "insert transfer %s", transfer.RefID)
	}

	for _, e := range entries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
			(id, account_id, amount, direction, currency, ref_type, ref_id, idempotency_key, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.AccountID, e.Amount, string(e.Direction), e.Currency,
			e.RefType, e.RefID, e.IdempotencyKey, e.Metadata, e.CreatedAt)
		if err != nil {
			return translate(err, "insert entry for account %s", e.AccountID)
		}
	}

	if err := tx.Commit(); err != nil {
		return translate(err, "commit transfer %s", transfer.RefID)
	}
	return nil
}

// FindTransferByIdempotencyKey loads the transfer posted under key.
func (r *EntryRepository) FindTransferByIdempotencyKey(ctx context.Context, key string) (*models.Transfer, []*models.Entry, error) {
	return r.findTransfer(ctx, "idempotency_key", key)
}

// FindTransferByRefID loads a transfer and its entries by ref.
func (r *EntryRepository) FindTransferByRefID(ctx context.Context, refID string) (*models.Transfer, []*models.Entry, error) {
	return r.findTransfer(ctx, "ref_id", refID)
}

func (r *EntryRepository) findTransfer(ctx context.Context, column, value string) (*models.Transfer, []*models.Entry, error) {
	var (
		t        models.Transfer
		product  sql.NullString
		reverses sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT ref_id, idempotency_key, ref_type, currency, gross_amount, platform_fee_amount, product_id, reverses_ref_id, created_at
		FROM ledger_transfers
		WHERE `+column+` = $1`, value).
		Scan(&t.RefID, &t.IdempotencyKey, &t.RefType, &t.Currency, &t.GrossAmount,
			&t.PlatformFeeAmount, &product, &reverses, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: transfer %s=%s", repository.ErrNotFound, column, value)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find transfer by %s: %w", column, err)
	}
	t.ProductID = product.String
	if reverses.Valid {
		t.ReversesRefID = &reverses.String
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, amount, direction, currency, ref_type, ref_id, idempotency_key, metadata, created_at
		FROM ledger_entries
		WHERE ref_id = $1
		ORDER BY seq`, t.RefID)
	if err != nil {
		return nil, nil, fmt.Errorf("list entries for %s: %w", t.RefID, err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, nil, err
	}
	return &t, entries, nil
}

// SumByAccount returns the balance of an account.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum entries for %s: %w", accountID, err)
	}
	return sum, nil
}

// ListByAccount returns the newest entries first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, amount, direction, currency, ref_type, ref_id, idempotency_key, metadata, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", accountID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// FindUnbalancedTransfers returns every ref whose entries do not sum to zero.
func (r *EntryRepository) FindUnbalancedTransfers(ctx context.Context) ([]repository.UnbalancedRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ref_id, SUM(amount), COUNT(DISTINCT currency)
		FROM ledger_entries
		GROUP BY ref_id
		HAVING SUM(amount) <> 0 OR COUNT(DISTINCT currency) > 1`)
	if err != nil {
		return nil, fmt.Errorf("find unbalanced transfers: %w", err)
	}
	defer rows.Close()

	var refs []repository.UnbalancedRef
	for rows.Next() {
		var ref repository.UnbalancedRef
		if err := rows.Scan(&ref.RefID, &ref.Sum, &ref.Currencies); err != nil {
			return nil, fmt.Errorf("scan unbalanced ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]*models.Entry, error) {
	var entries []*models.Entry
	for rows.Next() {
		var (
			e         models.Entry
			direction string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &direction, &e.Currency,
			&e.RefType, &e.RefID, &e.IdempotencyKey, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Direction = models.Direction(direction)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
