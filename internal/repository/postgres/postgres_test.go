package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

var accountColumns = []string{"id", "owner_id", "kind", "currency", "created_at"}
var entryColumns = []string{"id", "account_id", "amount", "direction", "currency", "ref_type", "ref_id", "idempotency_key", "metadata", "created_at"}

func TestAccountRepository_FindByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	ctx := context.Background()

	t.Run("platform account uses empty owner key", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, owner_id, kind, currency, created_at FROM ledger_accounts WHERE COALESCE\\(owner_id, ''\\) = \\$1").
			WithArgs("", "platform", "USD").
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow("acc-1", nil, "platform", "USD", time.Now()))

		account, err := repo.FindByKey(ctx, nil, models.AccountKindPlatform, "USD")
		require.NoError(t, err)
		assert.Equal(t, "acc-1", account.ID)
		assert.Nil(t, account.OwnerID)
		assert.Equal(t, models.AccountKindPlatform, account.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("instructor account carries owner", func(t *testing.T) {
		owner := "inst-9"
		mock.ExpectQuery("SELECT id, owner_id, kind, currency, created_at FROM ledger_accounts").
			WithArgs(owner, "instructor", "ZAR").
			WillReturnRows(sqlmock.NewRows(accountColumns).AddRow("acc-2", owner, "instructor", "ZAR", time.Now()))

		account, err := repo.FindByKey(ctx, &owner, models.AccountKindInstructor, "ZAR")
		require.NoError(t, err)
		require.NotNil(t, account.OwnerID)
		assert.Equal(t, owner, *account.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, owner_id, kind, currency, created_at FROM ledger_accounts").
			WithArgs("", "platform", "EUR").
			WillReturnRows(sqlmock.NewRows(accountColumns))

		_, err := repo.FindByKey(ctx, nil, models.AccountKindPlatform, "EUR")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	now := time.Now()

	t.Run("successful insert", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs("acc-1", nil, "platform", "USD", now).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(context.Background(), &models.Account{ID: "acc-1", Kind: models.AccountKindPlatform, Currency: "USD", CreatedAt: now})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrDuplicate", func(t *testing.T) {
		owner := "user-1"
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs("acc-2", owner, "user", "USD", now).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.Create(context.Background(), &models.Account{ID: "acc-2", OwnerID: &owner, Kind: models.AccountKindUser, Currency: "USD", CreatedAt: now})
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors pass through", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(context.Background(), &models.Account{ID: "acc-3", Kind: models.AccountKindPlatform, Currency: "USD", CreatedAt: now})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, repository.ErrDuplicate))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT id, owner_id, kind, currency, created_at FROM ledger_accounts WHERE id = ANY\\(\\$1\\)").
		WithArgs(pq.Array([]string{"a", "b"})).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow("a", nil, "platform", "USD", time.Now()).
			AddRow("b", "u1", "user", "USD", time.Now()))

	accounts, err := repo.GetByIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func testTransfer(now time.Time) (*models.Transfer, []*models.Entry) {
	transfer := &models.Transfer{
		RefID:             "ref-1",
		IdempotencyKey:    "stripe_ch_1",
		RefType:           models.RefTypePurchase,
		Currency:          "USD",
		GrossAmount:       10000,
		PlatformFeeAmount: 1500,
		ProductID:         "course-1",
		CreatedAt:         now,
	}
	entries := []*models.Entry{
		{ID: "e1", AccountID: "buyer", Amount: -10000, Direction: models.DirectionDebit, Currency: "USD", RefType: models.RefTypePurchase, RefID: "ref-1", IdempotencyKey: "stripe_ch_1", CreatedAt: now},
		{ID: "e2", AccountID: "platform", Amount: 1500, Direction: models.DirectionCredit, Currency: "USD", RefType: models.RefTypePurchase, RefID: "ref-1", IdempotencyKey: "stripe_ch_1", CreatedAt: now},
		{ID: "e3", AccountID: "instructor", Amount: 8500, Direction: models.DirectionCredit, Currency: "USD", RefType: models.RefTypePurchase, RefID: "ref-1", IdempotencyKey: "stripe_ch_1", CreatedAt: now},
	}
	return transfer, entries
}

func TestEntryRepository_PostTransfer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEntryRepository(db)
	now := time.Now()

	t.Run("header and entries commit together", func(t *testing.T) {
		transfer, entries := testTransfer(now)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_transfers").
			WithArgs("ref-1", "stripe_ch_1", "purchase", "USD", int64(10000), int64(1500), "course-1", nil, now).
			WillReturnResult(sqlmock.NewResult(1, 1))
		for _, e := range entries {
			mock.ExpectExec("INSERT INTO ledger_entries").
				WithArgs(e.ID, e.AccountID, e.Amount, string(e.Direction), "USD", "purchase", "ref-1", "stripe_ch_1", sqlmock.AnyArg(), now).
				WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()

		err := repo.PostTransfer(context.Background(), transfer, entries)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate idempotency key rolls back", func(t *testing.T) {
		transfer, entries := testTransfer(now)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_transfers").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.PostTransfer(context.Background(), transfer, entries)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry failure leaves nothing committed", func(t *testing.T) {
		transfer, entries := testTransfer(now)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_transfers").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WillReturnError(errors.New("foreign key violation"))
		mock.ExpectRollback()

		err := repo.PostTransfer(context.Background(), transfer, entries)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "insert entry for account platform")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_FindTransferByIdempotencyKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEntryRepository(db)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transfers WHERE idempotency_key = \\$1").
			WithArgs("stripe_ch_1").
			WillReturnRows(sqlmock.NewRows([]string{"ref_id", "idempotency_key", "ref_type", "currency", "gross_amount", "platform_fee_amount", "product_id", "reverses_ref_id", "created_at"}).
				AddRow("ref-1", "stripe_ch_1", "purchase", "USD", 10000, 1500, "course-1", nil, now))
		mock.ExpectQuery("SELECT (.+) FROM ledger_entries WHERE ref_id = \\$1 ORDER BY seq").
			WithArgs("ref-1").
			WillReturnRows(sqlmock.NewRows(entryColumns).
				AddRow("e1", "buyer", -10000, "debit", "USD", "purchase", "ref-1", "stripe_ch_1", nil, now).
				AddRow("e2", "platform", 1500, "credit", "USD", "purchase", "ref-1", "stripe_ch_1", []byte(`{"tier":"Elite"}`), now).
				AddRow("e3", "instructor", 8500, "credit", "USD", "purchase", "ref-1", "stripe_ch_1", nil, now))

		transfer, entries, err := repo.FindTransferByIdempotencyKey(context.Background(), "stripe_ch_1")
		require.NoError(t, err)
		assert.Equal(t, "ref-1", transfer.RefID)
		assert.Equal(t, "course-1", transfer.ProductID)
		assert.Nil(t, transfer.ReversesRefID)
		require.Len(t, entries, 3)
		assert.Equal(t, models.DirectionDebit, entries[0].Direction)
		assert.Equal(t, "Elite", entries[1].Metadata["tier"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transfers WHERE idempotency_key = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"ref_id"}))

		_, _, err := repo.FindTransferByIdempotencyKey(context.Background(), "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_SumByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEntryRepository(db)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM ledger_entries WHERE account_id = \\$1").
		WithArgs("instructor").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(8500))

	sum, err := repo.SumByAccount(context.Background(), "instructor")
	require.NoError(t, err)
	assert.Equal(t, int64(8500), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepository_ListByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEntryRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM ledger_entries WHERE account_id = \\$1 ORDER BY created_at DESC, seq DESC LIMIT \\$2").
		WithArgs("instructor", 2).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("e9", "instructor", 8500, "credit", "USD", "purchase", "ref-2", "k2", nil, now).
			AddRow("e3", "instructor", 8500, "credit", "USD", "purchase", "ref-1", "k1", nil, now.Add(-time.Minute)))

	entries, err := repo.ListByAccount(context.Background(), "instructor", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e9", entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepository_FindUnbalancedTransfers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewEntryRepository(db)

	mock.ExpectQuery("SELECT ref_id, SUM\\(amount\\), COUNT\\(DISTINCT currency\\) FROM ledger_entries GROUP BY ref_id HAVING").
		WillReturnRows(sqlmock.NewRows([]string{"ref_id", "sum", "count"}).AddRow("ref-bad", 1, 1))

	refs, err := repo.FindUnbalancedTransfers(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, repository.UnbalancedRef{RefID: "ref-bad", Sum: 1, Currencies: 1}, refs[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
