package repository

import (
	"context"
	"errors"

	"github.com/dynastyacademy/ledger/internal/models"
)

// AccountRepository persists ledger accounts. Implementations must enforce
// uniqueness of (owner, kind, currency) and report violations as ErrDuplicate.
type AccountRepository interface {
	FindByKey(ctx context.Context, ownerID *string, kind models.AccountKind, currency string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
}

// EntryRepository persists transfers and their entries.
//
// PostTransfer writes the header and all entries atomically. A transfer whose
// idempotency key (or reversed ref) already exists yields ErrDuplicate and
// writes nothing.
type EntryRepository interface {
	PostTransfer(ctx context.Context, transfer *models.Transfer, entries []*models.Entry) error
	FindTransferByIdempotencyKey(ctx context.Context, key string) (*models.Transfer, []*models.Entry, error)
	FindTransferByRefID(ctx context.Context, refID string) (*models.Transfer, []*models.Entry, error)
	SumByAccount(ctx context.Context, accountID string) (int64, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.Entry, error)
	FindUnbalancedTransfers(ctx context.Context) ([]UnbalancedRef, error)
}

// UnbalancedRef is a ref whose entries break conservation or currency isolation.
type UnbalancedRef struct {
	RefID      string
	Sum        int64
	Currencies int
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
