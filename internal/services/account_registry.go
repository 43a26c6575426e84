package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeCurrency upper-cases and validates a three-letter currency code.
// There is no default currency.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if !currencyRegex.MatchString(c) {
		return "", fmt.Errorf("%w: currency %q", ErrInvalidAccount, currency)
	}
	return c, nil
}

// AccountRegistry resolves the one account per owner, kind and currency.
type AccountRegistry struct {
	accounts repository.AccountRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewAccountRegistry creates a new account registry
func NewAccountRegistry(accounts repository.AccountRepository, log logrus.FieldLogger) *AccountRegistry {
	return &AccountRegistry{
		accounts: accounts,
		log:      log,
		now:      time.Now,
	}
}

// GetOrCreateAccount returns the single account for (ownerID, kind, currency),
// creating it on first use. A creation race is settled by the store's unique
// index: the loser re-reads and returns the winner's row. Owner IDs are
// trimmed, so " inst-1" and "inst-1" resolve to the same account.
func (r *AccountRegistry) GetOrCreateAccount(ctx context.Context, ownerID *string, kind models.AccountKind, currency string) (*models.Account, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidAccount, kind)
	}
	if kind == models.AccountKindPlatform && ownerID != nil {
		return nil, fmt.Errorf("%w: platform account cannot have an owner", ErrInvalidAccount)
	}
	if kind != models.AccountKindPlatform {
		if ownerID == nil || strings.TrimSpace(*ownerID) == "" {
			return nil, fmt.Errorf("%w: %s account requires an owner", ErrInvalidAccount, kind)
		}
		trimmed := strings.TrimSpace(*ownerID)
		ownerID = &trimmed
	}
	currency, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	account, err := r.accounts.FindByKey(ctx, ownerID, kind, currency)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, r.resolutionError(ownerID, kind, currency, err)
	}

	account = &models.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Kind:      kind,
		Currency:  currency,
		CreatedAt: r.now().UTC(),
	}
	err = r.accounts.Create(ctx, account)
	if err == nil {
		r.log.WithFields(logrus.Fields{
			"account_id": account.ID,
			"kind":       kind,
			"currency":   currency,
		}).Info("ledger account created")
		return account, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, r.resolutionError(ownerID, kind, currency, err)
	}

	// Another caller created it first.
	winner, err := r.accounts.FindByKey(ctx, ownerID, kind, currency)
	if err != nil {
		return nil, r.resolutionError(ownerID, kind, currency, err)
	}
	return winner, nil
}

// PlatformAccount returns the platform account for currency.
func (r *AccountRegistry) PlatformAccount(ctx context.Context, currency string) (*models.Account, error) {
	return r.GetOrCreateAccount(ctx, nil, models.AccountKindPlatform, currency)
}

// InstructorAccount returns the instructor's account for currency.
func (r *AccountRegistry) InstructorAccount(ctx context.Context, instructorID, currency string) (*models.Account, error) {
	return r.GetOrCreateAccount(ctx, &instructorID, models.AccountKindInstructor, currency)
}

// UserAccount returns the user's account for currency.
func (r *AccountRegistry) UserAccount(ctx context.Context, userID, currency string) (*models.Account, error) {
	return r.GetOrCreateAccount(ctx, &userID, models.AccountKindUser, currency)
}

// GetAccount loads an account by ID.
func (r *AccountRegistry) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return r.accounts.GetByID(ctx, id)
}

func (r *AccountRegistry) resolutionError(ownerID *string, kind models.AccountKind, currency string, err error) error {
	owner := ""
	if ownerID != nil {
		owner = *ownerID
	}
	r.log.WithError(err).WithFields(logrus.Fields{
		"kind":     kind,
		"owner_id": owner,
		"currency": currency,
	}).Error("ledger account resolution failed")
	return &AccountResolutionError{Kind: string(kind), OwnerID: owner, Currency: currency, Err: err}
}
