package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/internal/metrics"
	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/repository"
)

// Auditor receives one record per posted, replayed or failed transfer.
type Auditor interface {
	LogTransfer(refID, idempotencyKey, currency string, gross int64, status string)
	LogError(idempotencyKey string, err error)
	LogOperation(refID, operation, details string)
}

// SplitTransferRequest names the three accounts and the amounts of one sale.
type SplitTransferRequest struct {
	BuyerAccountID      string          `json:"buyerAccountId" validate:"required"`
	InstructorAccountID string          `json:"instructorAccountId" validate:"required"`
	PlatformAccountID   string          `json:"platformAccountId" validate:"required"`
	GrossAmount         int64           `json:"grossAmount"`
	PlatformFeeAmount   int64           `json:"platformFeeAmount"`
	Currency            string          `json:"currency" validate:"required,len=3"`
	ProductID           string          `json:"productId" validate:"max=128"`
	IdempotencyKey      string          `json:"idempotencyKey" validate:"required,max=255"`
	Metadata            models.Metadata `json:"metadata,omitempty"`
}

// TransferEngine posts balanced, atomic, idempotent transfers.
type TransferEngine struct {
	accounts  repository.AccountRepository
	entries   repository.EntryRepository
	validator *ValidationHelper
	audit     Auditor
	metrics   *metrics.Collector
	log       logrus.FieldLogger
	now       func() time.Time
}

// replayMatch reports whether a stored transfer answers the request being retried.
type replayMatch func(t *models.Transfer) bool

func isPurchase(t *models.Transfer) bool { return t.RefType == models.RefTypePurchase }

func isReversalOf(refID string) replayMatch {
	return func(t *models.Transfer) bool {
		return t.RefType == models.RefTypeReversal && t.ReversesRefID != nil && *t.ReversesRefID == refID
	}
}

// NewTransferEngine creates a new transfer engine
func NewTransferEngine(accounts repository.AccountRepository, entries repository.EntryRepository, audit Auditor, m *metrics.Collector, log logrus.FieldLogger) *TransferEngine {
	return &TransferEngine{
		accounts:  accounts,
		entries:   entries,
		validator: NewValidationHelper(),
		audit:     audit,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// SplitTransfer records a collected payment as buyer -gross, platform +fee and
// instructor +(gross-fee) under one ref. A repeated idempotency key returns
// the purchase already posted for it; a key held by a reversal is rejected
// with ErrIdempotencyKeyConflict. Any returned error means nothing was
// committed.
func (e *TransferEngine) SplitTransfer(ctx context.Context, req SplitTransferRequest) (*models.TransferResult, error) {
	if err := e.validator.ValidateStruct(&req); err != nil {
		e.metrics.TransferFailed("validation")
		return nil, fmt.Errorf("invalid split transfer: %w", err)
	}
	if err := checkSplitAmounts(req.GrossAmount, req.PlatformFeeAmount); err != nil {
		e.fail(req.IdempotencyKey, "unbalanced", err)
		return nil, err
	}
	if req.BuyerAccountID == req.InstructorAccountID ||
		req.BuyerAccountID == req.PlatformAccountID ||
		req.InstructorAccountID == req.PlatformAccountID {
		err := fmt.Errorf("%w: split transfer needs three distinct accounts", ErrInvalidAccount)
		e.fail(req.IdempotencyKey, "invalid_account", err)
		return nil, err
	}
	currency, err := NormalizeCurrency(req.Currency)
	if err != nil {
		e.fail(req.IdempotencyKey, "invalid_account", err)
		return nil, err
	}

	if result, err := e.findExisting(ctx, req.IdempotencyKey, isPurchase); err != nil || result != nil {
		if result != nil {
			e.warnOnMismatch(result, currency, req.GrossAmount, req.PlatformFeeAmount)
		}
		return result, err
	}

	if err := e.checkAccounts(ctx, currency, req.BuyerAccountID, req.PlatformAccountID, req.InstructorAccountID); err != nil {
		e.fail(req.IdempotencyKey, "invalid_account", err)
		return nil, err
	}

	now := e.now().UTC()
	refID := uuid.NewString()
	net := req.GrossAmount - req.PlatformFeeAmount

	transfer := &models.Transfer{
		RefID:             refID,
		IdempotencyKey:    req.IdempotencyKey,
		RefType:           models.RefTypePurchase,
		Currency:          currency,
		GrossAmount:       req.GrossAmount,
		PlatformFeeAmount: req.PlatformFeeAmount,
		ProductID:         req.ProductID,
		CreatedAt:         now,
	}
	legs := []struct {
		accountID string
		amount    int64
		direction models.Direction
		role      string
	}{
		{req.BuyerAccountID, -req.GrossAmount, models.DirectionDebit, "buyer"},
		{req.PlatformAccountID, req.PlatformFeeAmount, models.DirectionCredit, "platform_fee"},
		{req.InstructorAccountID, net, models.DirectionCredit, "instructor_net"},
	}

	entries := make([]*models.Entry, 0, len(legs))
	for _, leg := range legs {
		meta := req.Metadata.Clone()
		if meta == nil {
			meta = models.Metadata{}
		}
		meta["role"] = leg.role
		if req.ProductID != "" {
			meta["product_id"] = req.ProductID
		}
		entries = append(entries, &models.Entry{
			ID:             uuid.NewString(),
			AccountID:      leg.accountID,
			Amount:         leg.amount,
			Direction:      leg.direction,
			Currency:       currency,
			RefType:        models.RefTypePurchase,
			RefID:          refID,
			IdempotencyKey: req.IdempotencyKey,
			Metadata:       meta,
			CreatedAt:      now,
		})
	}

	return e.post(ctx, transfer, entries, isPurchase)
}

// ReverseTransfer posts the negation of an earlier transfer under a new ref.
// Entries are never edited; a ref can be reversed once. Retrying with the
// same key returns the reversal already posted, but only if it reverses refID.
func (e *TransferEngine) ReverseTransfer(ctx context.Context, refID, idempotencyKey string) (*models.TransferResult, error) {
	if refID == "" || idempotencyKey == "" {
		return nil, fmt.Errorf("%w: ref id and idempotency key are required", ErrInvalidReversal)
	}

	match := isReversalOf(refID)
	if result, err := e.findExisting(ctx, idempotencyKey, match); err != nil || result != nil {
		return result, err
	}

	original, originalEntries, err := e.entries.FindTransferByRefID(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("reverse %s: %w", refID, err)
	}
	if original.RefType == models.RefTypeReversal {
		return nil, fmt.Errorf("%w: %s is itself a reversal", ErrInvalidReversal, refID)
	}

	now := e.now().UTC()
	reversalRef := uuid.NewString()
	reverses := original.RefID

	transfer := &models.Transfer{
		RefID:             reversalRef,
		IdempotencyKey:    idempotencyKey,
		RefType:           models.RefTypeReversal,
		Currency:          original.Currency,
		GrossAmount:       original.GrossAmount,
		PlatformFeeAmount: original.PlatformFeeAmount,
		ProductID:         original.ProductID,
		ReversesRefID:     &reverses,
		CreatedAt:         now,
	}

	entries := make([]*models.Entry, 0, len(originalEntries))
	for _, oe := range originalEntries {
		meta := oe.Metadata.Clone()
		if meta == nil {
			meta = models.Metadata{}
		}
		meta["reverses_entry_id"] = oe.ID
		entries = append(entries, &models.Entry{
			ID:             uuid.NewString(),
			AccountID:      oe.AccountID,
			Amount:         -oe.Amount,
			Direction:      oe.Direction.Opposite(),
			Currency:       oe.Currency,
			RefType:        models.RefTypeReversal,
			RefID:          reversalRef,
			IdempotencyKey: idempotencyKey,
			Metadata:       meta,
			CreatedAt:      now,
		})
	}

	result, err := e.post(ctx, transfer, entries, match)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: %s was already reversed", ErrInvalidReversal, refID)
	}
	if err == nil && !result.Replayed {
		e.audit.LogOperation(result.RefID, "REVERSAL", "reverses "+refID)
	}
	return result, err
}

// post writes the transfer and settles an idempotency race in favour of
// whichever caller committed first.
func (e *TransferEngine) post(ctx context.Context, transfer *models.Transfer, entries []*models.Entry, match replayMatch) (*models.TransferResult, error) {
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	if sum != 0 {
		err := &UnbalancedTransferError{
			GrossAmount:       transfer.GrossAmount,
			PlatformFeeAmount: transfer.PlatformFeeAmount,
			Reason:            fmt.Sprintf("entries sum to %d", sum),
		}
		e.fail(transfer.IdempotencyKey, "unbalanced", err)
		return nil, err
	}

	err := e.entries.PostTransfer(ctx, transfer, entries)
	if errors.Is(err, repository.ErrDuplicate) {
		result, findErr := e.findExisting(ctx, transfer.IdempotencyKey, match)
		if findErr != nil {
			return nil, findErr
		}
		if result != nil {
			return result, nil
		}
		e.fail(transfer.IdempotencyKey, "duplicate", err)
		return nil, err
	}
	if err != nil {
		e.fail(transfer.IdempotencyKey, "store", err)
		return nil, fmt.Errorf("post transfer %s: %w", transfer.RefID, err)
	}

	e.log.WithFields(logrus.Fields{
		"ref_id":          transfer.RefID,
		"ref_type":        transfer.RefType,
		"idempotency_key": transfer.IdempotencyKey,
		"currency":        transfer.Currency,
		"gross":           transfer.GrossAmount,
		"platform_fee":    transfer.PlatformFeeAmount,
	}).Info("transfer posted")
	e.audit.LogTransfer(transfer.RefID, transfer.IdempotencyKey, transfer.Currency, transfer.GrossAmount, "POSTED")
	e.metrics.TransferPosted(transfer.RefType, transfer.Currency, transferFee(transfer))

	return buildResult(transfer, entries, false), nil
}

// findExisting returns (nil, nil) when no transfer carries key, and
// ErrIdempotencyKeyConflict when the transfer that does is not a match.
func (e *TransferEngine) findExisting(ctx context.Context, key string, match replayMatch) (*models.TransferResult, error) {
	transfer, entries, err := e.entries.FindTransferByIdempotencyKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		e.fail(key, "store", err)
		return nil, fmt.Errorf("check idempotency key %s: %w", key, err)
	}
	if !match(transfer) {
		err := fmt.Errorf("%w: key %s belongs to %s transfer %s", ErrIdempotencyKeyConflict, key, transfer.RefType, transfer.RefID)
		e.fail(key, "key_conflict", err)
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"ref_id":          transfer.RefID,
		"idempotency_key": key,
	}).Info("transfer already posted, returning original")
	e.audit.LogTransfer(transfer.RefID, key, transfer.Currency, transfer.GrossAmount, "REPLAYED")
	e.metrics.TransferReplayed(transfer.RefType)

	return buildResult(transfer, entries, true), nil
}

func (e *TransferEngine) checkAccounts(ctx context.Context, currency string, ids ...string) error {
	accounts, err := e.accounts.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load transfer accounts: %w", err)
	}

	found := make(map[string]*models.Account, len(accounts))
	for _, a := range accounts {
		found[a.ID] = a
	}
	for _, id := range ids {
		a, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: account %s does not exist", ErrInvalidAccount, id)
		}
		if a.Currency != currency {
			return fmt.Errorf("%w: account %s is %s, transfer is %s", ErrCurrencyMismatch, id, a.Currency, currency)
		}
	}
	return nil
}

func (e *TransferEngine) warnOnMismatch(result *models.TransferResult, currency string, gross, fee int64) {
	if result.Currency == currency && result.GrossAmount == gross && result.PlatformFeeAmount == fee {
		return
	}
	e.log.WithFields(logrus.Fields{
		"ref_id":          result.RefID,
		"idempotency_key": result.IdempotencyKey,
		"stored_gross":    result.GrossAmount,
		"requested_gross": gross,
		"stored_fee":      result.PlatformFeeAmount,
		"requested_fee":   fee,
	}).Warn("idempotency key replayed with different amounts, returning original transfer")
}

func (e *TransferEngine) fail(key, reason string, err error) {
	e.metrics.TransferFailed(reason)
	e.audit.LogError(key, err)
}

func checkSplitAmounts(gross, fee int64) error {
	switch {
	case gross < 0:
		return &UnbalancedTransferError{GrossAmount: gross, PlatformFeeAmount: fee, Reason: "gross amount is negative"}
	case fee < 0:
		return &UnbalancedTransferError{GrossAmount: gross, PlatformFeeAmount: fee, Reason: "platform fee is negative"}
	case fee > gross:
		return &UnbalancedTransferError{GrossAmount: gross, PlatformFeeAmount: fee, Reason: "platform fee exceeds gross"}
	}
	return nil
}

func transferFee(t *models.Transfer) int64 {
	if t.RefType == models.RefTypeReversal {
		return 0
	}
	return t.PlatformFeeAmount
}

func buildResult(t *models.Transfer, entries []*models.Entry, replayed bool) *models.TransferResult {
	return &models.TransferResult{
		RefID:               t.RefID,
		IdempotencyKey:      t.IdempotencyKey,
		RefType:             t.RefType,
		Currency:            t.Currency,
		GrossAmount:         t.GrossAmount,
		PlatformFeeAmount:   t.PlatformFeeAmount,
		InstructorNetAmount: t.GrossAmount - t.PlatformFeeAmount,
		Entries:             entries,
		Replayed:            replayed,
	}
}
