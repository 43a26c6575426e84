package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 50, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, 500, clampLimit(500))
	assert.Equal(t, 500, clampLimit(10000))
}

func TestBalanceService(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	balances := NewBalanceService(f.store)

	t.Run("untouched account is zero", func(t *testing.T) {
		b, err := balances.GetBalance(ctx, f.instructor.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), b)

		history, err := balances.GetAccountHistory(ctx, f.instructor.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("balances follow posted transfers", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := f.engine.SplitTransfer(ctx, f.request(fmt.Sprintf("bal_%d", i), 1000, 250))
			require.NoError(t, err)
		}

		buyer, err := balances.GetBalance(ctx, f.buyer.ID)
		require.NoError(t, err)
		platform, err := balances.GetBalance(ctx, f.platform.ID)
		require.NoError(t, err)
		instructor, err := balances.GetBalance(ctx, f.instructor.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(-3000), buyer)
		assert.Equal(t, int64(750), platform)
		assert.Equal(t, int64(2250), instructor)
		assert.Zero(t, buyer+platform+instructor)
	})

	t.Run("history is newest first and limited", func(t *testing.T) {
		history, err := balances.GetAccountHistory(ctx, f.instructor.ID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "bal_2", history[0].IdempotencyKey)
		assert.Equal(t, "bal_1", history[1].IdempotencyKey)
	})
}
