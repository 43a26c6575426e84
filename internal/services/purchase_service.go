package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/internal/models"
)

// PurchaseService turns a verified payment webhook into a fee split posted to
// the ledger.
type PurchaseService struct {
	registry  *AccountRegistry
	fees      *FeeCalculator
	engine    *TransferEngine
	validator *ValidationHelper
	log       logrus.FieldLogger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(registry *AccountRegistry, fees *FeeCalculator, engine *TransferEngine, log logrus.FieldLogger) *PurchaseService {
	return &PurchaseService{
		registry:  registry,
		fees:      fees,
		engine:    engine,
		validator: NewValidationHelper(),
		log:       log,
	}
}

// RecordPurchase is safe to call again with the same event: the second call
// returns the first call's transfer. On error nothing has been posted and the
// provider should retry.
func (s *PurchaseService) RecordPurchase(ctx context.Context, event models.PurchaseEvent) (*models.PurchaseReceipt, error) {
	if err := s.validator.ValidateStruct(&event); err != nil {
		return nil, fmt.Errorf("invalid purchase event: %w", err)
	}
	currency, err := NormalizeCurrency(event.Currency)
	if err != nil {
		return nil, err
	}

	buyer, err := s.registry.UserAccount(ctx, event.BuyerID, currency)
	if err != nil {
		return nil, err
	}
	instructor, err := s.registry.InstructorAccount(ctx, event.InstructorID, currency)
	if err != nil {
		return nil, err
	}
	platform, err := s.registry.PlatformAccount(ctx, currency)
	if err != nil {
		return nil, err
	}

	fee, err := s.fees.CalculateFee(ctx, event.InstructorID, event.GrossAmountCents)
	if err != nil {
		return nil, err
	}

	meta := event.Metadata.Clone()
	if meta == nil {
		meta = models.Metadata{}
	}
	meta["buyer_id"] = event.BuyerID
	meta["instructor_id"] = event.InstructorID
	meta["trust_score"] = fee.TrustScore
	meta["trust_tier"] = fee.Tier
	meta["fee_percentage"] = fee.FeePercentage

	result, err := s.engine.SplitTransfer(ctx, SplitTransferRequest{
		BuyerAccountID:      buyer.ID,
		InstructorAccountID: instructor.ID,
		PlatformAccountID:   platform.ID,
		GrossAmount:         event.GrossAmountCents,
		PlatformFeeAmount:   fee.PlatformFeeCents,
		Currency:            currency,
		ProductID:           event.ProductID,
		IdempotencyKey:      event.IdempotencyKey,
		Metadata:            meta,
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"idempotency_key": event.IdempotencyKey,
			"instructor_id":   event.InstructorID,
		}).Error("purchase not recorded")
		return nil, err
	}

	if result.Replayed {
		// Report the split that was actually posted, not today's quote.
		fee = postedFee(result, fee)
	}

	return &models.PurchaseReceipt{Fee: fee, Transfer: result}, nil
}

func postedFee(result *models.TransferResult, quoted *models.FeeCalculation) *models.FeeCalculation {
	posted := *quoted
	posted.GrossAmountCents = result.GrossAmount
	posted.PlatformFeeCents = result.PlatformFeeAmount
	posted.InstructorNetCents = result.InstructorNetAmount
	for _, e := range result.Entries {
		if e.Metadata == nil {
			continue
		}
		if score, ok := asInt(e.Metadata["trust_score"]); ok {
			posted.TrustScore = score
		}
		if tier, ok := e.Metadata["trust_tier"].(string); ok {
			posted.Tier = tier
		}
		if pct, ok := e.Metadata["fee_percentage"].(float64); ok {
			posted.FeePercentage = pct
		}
		break
	}
	return &posted
}

// asInt accepts both the in-process int and the float64 that comes back from
// a JSONB round trip.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
