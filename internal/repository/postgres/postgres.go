package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dynastyacademy/ledger/internal/repository"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// translate maps driver errors onto repository sentinels so callers never
// import lib/pq themselves.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", msg, repository.ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ownerKey matches the COALESCE(owner_id, '') expression of the unique index
// on ledger_accounts, so the platform account is unique per currency.
func ownerKey(ownerID *string) string {
	if ownerID == nil {
		return ""
	}
	return *ownerID
}
