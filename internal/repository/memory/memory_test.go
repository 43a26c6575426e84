package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

func TestStore_Accounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := "inst-1"

	require.NoError(t, store.Create(ctx, &models.Account{ID: "a1", Kind: models.AccountKindPlatform, Currency: "USD"}))
	require.NoError(t, store.Create(ctx, &models.Account{ID: "a2", OwnerID: &owner, Kind: models.AccountKindInstructor, Currency: "USD"}))

	t.Run("platform is unique per currency", func(t *testing.T) {
		err := store.Create(ctx, &models.Account{ID: "a3", Kind: models.AccountKindPlatform, Currency: "USD"})
		assert.ErrorIs(t, err, repository.ErrDuplicate)

		err = store.Create(ctx, &models.Account{ID: "a4", Kind: models.AccountKindPlatform, Currency: "ZAR"})
		assert.NoError(t, err)
	})

	t.Run("lookup by natural key", func(t *testing.T) {
		account, err := store.FindByKey(ctx, &owner, models.AccountKindInstructor, "USD")
		require.NoError(t, err)
		assert.Equal(t, "a2", account.ID)

		_, err = store.FindByKey(ctx, &owner, models.AccountKindUser, "USD")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("returned accounts are copies", func(t *testing.T) {
		account, err := store.GetByID(ctx, "a2")
		require.NoError(t, err)
		*account.OwnerID = "mutated"

		again, err := store.GetByID(ctx, "a2")
		require.NoError(t, err)
		assert.Equal(t, owner, *again.OwnerID)
	})
}

func TestStore_PostTransfer(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, id := range []string{"buyer", "platform", "instructor"} {
		owner := id
		require.NoError(t, store.Create(ctx, &models.Account{ID: id, OwnerID: &owner, Kind: models.AccountKindUser, Currency: "USD"}))
	}

	now := time.Now()
	transfer := &models.Transfer{RefID: "ref-1", IdempotencyKey: "k1", Currency: "USD", GrossAmount: 333, PlatformFeeAmount: 167}
	entries := []*models.Entry{
		{ID: "e1", AccountID: "buyer", Amount: -333, RefID: "ref-1", Currency: "USD", CreatedAt: now},
		{ID: "e2", AccountID: "platform", Amount: 167, RefID: "ref-1", Currency: "USD", CreatedAt: now},
		{ID: "e3", AccountID: "instructor", Amount: 166, RefID: "ref-1", Currency: "USD", CreatedAt: now},
	}
	require.NoError(t, store.PostTransfer(ctx, transfer, entries))

	t.Run("duplicate key writes nothing", func(t *testing.T) {
		dup := &models.Transfer{RefID: "ref-2", IdempotencyKey: "k1", Currency: "USD"}
		err := store.PostTransfer(ctx, dup, []*models.Entry{{ID: "x", AccountID: "buyer", Amount: -1, RefID: "ref-2"}})
		assert.ErrorIs(t, err, repository.ErrDuplicate)

		sum, err := store.SumByAccount(ctx, "buyer")
		require.NoError(t, err)
		assert.Equal(t, int64(-333), sum)
	})

	t.Run("unknown account rejects whole transfer", func(t *testing.T) {
		bad := &models.Transfer{RefID: "ref-3", IdempotencyKey: "k3", Currency: "USD"}
		err := store.PostTransfer(ctx, bad, []*models.Entry{
			{ID: "y1", AccountID: "buyer", Amount: -5, RefID: "ref-3"},
			{ID: "y2", AccountID: "ghost", Amount: 5, RefID: "ref-3"},
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, _, err = store.FindTransferByRefID(ctx, "ref-3")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("lookup by key returns entries in posting order", func(t *testing.T) {
		got, gotEntries, err := store.FindTransferByIdempotencyKey(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "ref-1", got.RefID)
		require.Len(t, gotEntries, 3)
		assert.Equal(t, "e1", gotEntries[0].ID)
		assert.Equal(t, "e3", gotEntries[2].ID)
	})

	t.Run("history is newest first and bounded", func(t *testing.T) {
		later := &models.Transfer{RefID: "ref-4", IdempotencyKey: "k4", Currency: "USD"}
		require.NoError(t, store.PostTransfer(ctx, later, []*models.Entry{
			{ID: "z1", AccountID: "buyer", Amount: -10, RefID: "ref-4", Currency: "USD", CreatedAt: now.Add(time.Second)},
			{ID: "z2", AccountID: "instructor", Amount: 10, RefID: "ref-4", Currency: "USD", CreatedAt: now.Add(time.Second)},
		}))

		history, err := store.ListByAccount(ctx, "buyer", 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "z1", history[0].ID)
	})

	t.Run("no unbalanced refs", func(t *testing.T) {
		refs, err := store.FindUnbalancedTransfers(ctx)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("raw entries surface as unbalanced", func(t *testing.T) {
		store.AppendRawEntry(&models.Entry{ID: "raw", AccountID: "buyer", Amount: 7, RefID: "ref-raw", Currency: "USD"})
		refs, err := store.FindUnbalancedTransfers(ctx)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "ref-raw", refs[0].RefID)
		assert.Equal(t, int64(7), refs[0].Sum)
	})
}
