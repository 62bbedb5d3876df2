// Package pricing implements the fee-inclusive price calculation and the
// payout ledger expansion. All functions here are pure and safe for
// concurrent use; persistence lives in the order package.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
)

var (
	// ErrInvalidPolicy is returned when the percentage fees sum to one or
	// more of the final price, which leaves no room for a seller payout.
	ErrInvalidPolicy = errors.New("fee percentages sum to 100% or more")
	// ErrInvalidAsk is returned for a non-positive seller ask.
	ErrInvalidAsk = errors.New("seller ask must be positive")
	// ErrAmbiguousInverse is returned when a final price cannot be
	// reconciled to any seller ask under the given policy.
	ErrAmbiguousInverse = errors.New("final price has no self-consistent seller ask")
	// ErrLedgerMismatch is returned when the expanded ledger cannot be
	// reconciled against the supplied seller ask. It indicates corrupted
	// inputs or a bug, not a recoverable condition.
	ErrLedgerMismatch = errors.New("payout ledger does not reconcile")
)

var one = decimal.NewFromInt(1)

// FeePolicy captures every participant's cut for a single sale. Percent
// fields are fractions of the final price (0.15 means 15%). Policies are
// value types: they are copied onto orders at purchase time and never read
// back from live configuration.
type FeePolicy struct {
	AffiliatePercent  decimal.Decimal
	PlatformPercent   decimal.Decimal
	FundraiserPercent decimal.Decimal
	ProcessorPercent  decimal.Decimal
	ProcessorFixed    money.Money

	// ReferralOverridePercent is paid to whoever recruited the affiliate,
	// carved out of the platform share. It does not change the customer
	// price and is therefore excluded from FeeFraction.
	ReferralOverridePercent decimal.Decimal

	// LowPriceSurcharge is a flat platform fee charged when the seller ask
	// is at or below LowPriceThreshold.
	LowPriceSurcharge money.Money
	LowPriceThreshold money.Money
}

// FeeFraction is the combined share of the final price consumed by
// percentage fees.
func (p FeePolicy) FeeFraction() decimal.Decimal {
	return p.AffiliatePercent.
		Add(p.PlatformPercent).
		Add(p.FundraiserPercent).
		Add(p.ProcessorPercent)
}

// Validate rejects policies for which forward pricing is undefined.
func (p FeePolicy) Validate() error {
	for _, pct := range []decimal.Decimal{
		p.AffiliatePercent, p.PlatformPercent, p.FundraiserPercent,
		p.ProcessorPercent, p.ReferralOverridePercent,
	} {
		if pct.IsNegative() {
			return ErrInvalidPolicy
		}
	}
	if p.FeeFraction().GreaterThanOrEqual(one) {
		return ErrInvalidPolicy
	}
	// The override is funded from the platform share, so it can never
	// exceed it without driving the platform line negative.
	if p.ReferralOverridePercent.GreaterThan(p.PlatformPercent) {
		return ErrInvalidPolicy
	}
	if p.ProcessorFixed < 0 || p.LowPriceSurcharge < 0 || p.LowPriceThreshold < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// surchargeFor returns the flat surcharge owed for the given seller ask.
func (p FeePolicy) surchargeFor(ask money.Money) money.Money {
	if p.LowPriceSurcharge > 0 && ask <= p.LowPriceThreshold {
		return p.LowPriceSurcharge
	}
	return 0
}
