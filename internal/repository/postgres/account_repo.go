package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

// AccountRepository stores ledger accounts in Postgres.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByKey looks up the account for owner, kind and currency.
func (r *AccountRepository) FindByKey(ctx context.Context, ownerID *string, kind models.AccountKind, currency string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, currency, created_at
		FROM ledger_accounts
		WHERE COALESCE(owner_id, '') = $1 AND kind = $2 AND currency = $3`,
		ownerKey(ownerID), string(kind), currency)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s/%s/%s", repository.ErrNotFound, kind, ownerKey(ownerID), currency)
	}
	if err != nil {
		return nil, fmt.Errorf("find account by key: %w", err)
	}
	return account, nil
}

// GetByID loads one account.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, currency, created_at
		FROM ledger_accounts
		WHERE id = $1`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return account, nil
}

// GetByIDs loads every account that exists among ids.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, currency, created_at
		FROM ledger_accounts
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Create inserts an account, returning ErrDuplicate if its key is taken.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	var owner sql.NullString
	if account.OwnerID != nil {
		owner = sql.NullString{String: *account.OwnerID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (id, owner_id, kind, currency, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		account.ID, owner, string(account.Kind), account.Currency, account.CreatedAt)
	return translate(err, "create account %s", account.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account models.Account
		owner   sql.NullString
		kind    string
	)
	if err := row.Scan(&account.ID, &owner, &kind, &account.Currency, &account.CreatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		account.OwnerID = &owner.String
	}
	account.Kind = models.AccountKind(kind)
	return &account, nil
}
