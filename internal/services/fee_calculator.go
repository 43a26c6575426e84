package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/internal/metrics"
	"github.com/dynastyacademy/ledger/internal/models"
	"github.com/dynastyacademy/ledger/internal/trust"
)

const (
	TierUnverified = "Unverified"
	TierVerified   = "Verified"
	TierTrusted    = "Trusted"
	TierElite      = "Elite"
	TierLegendary  = "Legendary"

	// TierFlat labels a fee priced at the flat rate because trust-based
	// pricing is switched off. The trust score is still reported.
	TierFlat = "Flat"
)

// FeeTier is one row of the trust-to-fee table. MaxScore is inclusive.
type FeeTier struct {
	Name     string
	MinScore int
	MaxScore int
	Fee      decimal.Decimal
}

// feeTiers is ordered by ascending score. Fees never increase with trust.
var feeTiers = []FeeTier{
	{Name: TierUnverified, MinScore: 0, MaxScore: 199, Fee: decimal.RequireFromString("0.50")},
	{Name: TierVerified, MinScore: 200, MaxScore: 499, Fee: decimal.RequireFromString("0.35")},
	{Name: TierTrusted, MinScore: 500, MaxScore: 799, Fee: decimal.RequireFromString("0.25")},
	{Name: TierElite, MinScore: 800, MaxScore: 949, Fee: decimal.RequireFromString("0.15")},
	{Name: TierLegendary, MinScore: 950, MaxScore: 1000, Fee: decimal.RequireFromString("0.05")},
}

// FeeTiers returns a copy of the tier table.
func FeeTiers() []FeeTier {
	out := make([]FeeTier, len(feeTiers))
	copy(out, feeTiers)
	return out
}

func clampScore(score int) int {
	if score < trust.MinScore {
		return trust.MinScore
	}
	if score > trust.MaxScore {
		return trust.MaxScore
	}
	return score
}

func tierFor(score int) FeeTier {
	score = clampScore(score)
	for i := len(feeTiers) - 1; i >= 0; i-- {
		if score >= feeTiers[i].MinScore {
			return feeTiers[i]
		}
	}
	return feeTiers[0]
}

// PlatformFeeFor maps a trust score to the platform's share, e.g. 0.15.
func PlatformFeeFor(score int) float64 {
	return tierFor(score).Fee.InexactFloat64()
}

// GetTrustTier maps a trust score to its display label.
func GetTrustTier(score int) string {
	return tierFor(score).Name
}

// SplitAmount rounds the fee half-up to a whole minor unit and derives the
// net by subtraction, so fee + net == gross exactly.
func SplitAmount(gross int64, pct decimal.Decimal) (fee, net int64) {
	fee = decimal.NewFromInt(gross).Mul(pct).Round(0).IntPart()
	return fee, gross - fee
}

// CalculateEarningsPotential shows what gross would net at every tier.
func CalculateEarningsPotential(gross int64) []models.EarningsRow {
	if gross < 0 {
		gross = 0
	}
	rows := make([]models.EarningsRow, 0, len(feeTiers))
	for _, t := range feeTiers {
		fee, net := SplitAmount(gross, t.Fee)
		rows = append(rows, models.EarningsRow{
			Tier:               t.Name,
			MinScore:           t.MinScore,
			MaxScore:           t.MaxScore,
			FeePercentage:      t.Fee.InexactFloat64(),
			PlatformFeeCents:   fee,
			InstructorNetCents: net,
		})
	}
	return rows
}

// CalculateEarningsBoost compares the net at score's tier with the
// Unverified net for the same gross.
func CalculateEarningsBoost(score int, gross int64) models.EarningsBoost {
	if gross < 0 {
		gross = 0
	}
	current := tierFor(score)
	_, currentNet := SplitAmount(gross, current.Fee)
	_, baselineNet := SplitAmount(gross, feeTiers[0].Fee)

	extra := currentNet - baselineNet
	boost := decimal.Zero
	if baselineNet > 0 {
		boost = decimal.NewFromInt(extra).
			Div(decimal.NewFromInt(baselineNet)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return models.EarningsBoost{
		TrustScore:       clampScore(score),
		Tier:             current.Name,
		CurrentNetCents:  currentNet,
		BaselineNetCents: baselineNet,
		ExtraCents:       extra,
		BoostPercentage:  boost.InexactFloat64(),
	}
}

// FeeConfig holds the pricing switches read from config.
type FeeConfig struct {
	TrustBasedEnabled bool
	FlatPercentage    float64
	LookupTimeout     time.Duration
}

// FeeCalculator prices a sale from the instructor's trust score. It never
// fails because of the trust provider: lookups are time-bounded and any
// failure falls back to the flat rate.
type FeeCalculator struct {
	trust         trust.Provider
	trustBased    atomic.Bool
	flat          decimal.Decimal
	lookupTimeout time.Duration
	log           logrus.FieldLogger
	metrics       *metrics.Collector
}

// NewFeeCalculator creates a new fee calculator
func NewFeeCalculator(provider trust.Provider, cfg FeeConfig, log logrus.FieldLogger, m *metrics.Collector) *FeeCalculator {
	flat := decimal.NewFromFloat(cfg.FlatPercentage)
	if cfg.FlatPercentage <= 0 || cfg.FlatPercentage > 1 {
		flat = decimal.RequireFromString("0.30")
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	c := &FeeCalculator{
		trust:         provider,
		flat:          flat,
		lookupTimeout: timeout,
		log:           log,
		metrics:       m,
	}
	c.trustBased.Store(cfg.TrustBasedEnabled)
	return c
}

// SetTrustBasedEnabled flips the global override at runtime.
func (c *FeeCalculator) SetTrustBasedEnabled(enabled bool) {
	c.trustBased.Store(enabled)
}

// TrustBasedEnabled reports whether fees follow the trust tiers.
func (c *FeeCalculator) TrustBasedEnabled() bool {
	return c.trustBased.Load()
}

// CalculateFee splits grossCents into platform fee and instructor net.
func (c *FeeCalculator) CalculateFee(ctx context.Context, instructorID string, grossCents int64) (*models.FeeCalculation, error) {
	if grossCents < 0 {
		return nil, fmt.Errorf("%w: gross %d", ErrInvalidAmount, grossCents)
	}

	score, err := c.lookupScore(ctx, instructorID)
	if err != nil {
		c.log.WithError(err).WithField("instructor_id", instructorID).
			Warn("trust score unavailable, using flat platform fee")
		c.metrics.FeeFallback("provider_error")
		return c.flatCalculation(grossCents, 0, TierUnverified), nil
	}

	if !c.trustBased.Load() {
		c.metrics.FeeFallback("flag_disabled")
		return c.flatCalculation(grossCents, score, TierFlat), nil
	}

	tier := tierFor(score)
	fee, net := SplitAmount(grossCents, tier.Fee)
	return &models.FeeCalculation{
		GrossAmountCents:   grossCents,
		PlatformFeeCents:   fee,
		InstructorNetCents: net,
		FeePercentage:      tier.Fee.InexactFloat64(),
		TrustScore:         score,
		Tier:               tier.Name,
	}, nil
}

type scoreResult struct {
	score int
	err   error
}

// lookupScore returns once the provider answers or the lookup timeout passes,
// even if the provider ignores its context.
func (c *FeeCalculator) lookupScore(ctx context.Context, instructorID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	done := make(chan scoreResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- scoreResult{err: fmt.Errorf("trust provider panic: %v", r)}
			}
		}()
		score, err := c.trust.TrustScore(ctx, instructorID)
		done <- scoreResult{score: score, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return 0, res.err
		}
		return clampScore(res.score), nil
	case <-ctx.Done():
		return 0, fmt.Errorf("trust lookup for %s: %w", instructorID, ctx.Err())
	}
}

func (c *FeeCalculator) flatCalculation(gross int64, score int, tier string) *models.FeeCalculation {
	fee, net := SplitAmount(gross, c.flat)
	return &models.FeeCalculation{
		GrossAmountCents:   gross,
		PlatformFeeCents:   fee,
		InstructorNetCents: net,
		FeePercentage:      c.flat.InexactFloat64(),
		TrustScore:         score,
		Tier:               tier,
		Fallback:           true,
	}
}
