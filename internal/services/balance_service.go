package services

import (
	"context"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// BalanceService derives balances from the entry log on every read.
type BalanceService struct {
	entries repository.EntryRepository
}

// NewBalanceService creates a new balance service
func NewBalanceService(entries repository.EntryRepository) *BalanceService {
	return &BalanceService{entries: entries}
}

// GetBalance returns the signed sum of an account's entries in minor units.
// An account with no entries has a zero balance.
func (s *BalanceService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return s.entries.SumByAccount(ctx, accountID)
}

// GetAccountHistory returns up to limit entries, newest first.
func (s *BalanceService) GetAccountHistory(ctx context.Context, accountID string, limit int) ([]*models.Entry, error) {
	return s.entries.ListByAccount(ctx, accountID, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}
