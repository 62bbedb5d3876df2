// Package catalog implements the import boundary between the third-party
// supplier feed and the pricing engine: raw supplier price in, seller ask
// and customer-facing price out.
package catalog

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/pricing"
	"github.com/beezio/backend-market/internal/supplier"
)

var (
	// ErrNoUsablePrice is returned when the supplier price cannot be
	// normalized to a positive amount; the item must be skipped, never
	// imported with a defaulted price.
	ErrNoUsablePrice = errors.New("supplier price not usable")
	// ErrInvalidMarkup is returned for a negative seller markup.
	ErrInvalidMarkup = errors.New("markup percent must not be negative")
)

var one = decimal.NewFromInt(1)

// Listing is the priced result of importing one supplier catalog item.
type Listing struct {
	Cost       money.Money // normalized supplier cost
	SellerAsk  money.Money // cost marked up plus shipping
	FinalPrice money.Money // customer-facing, all fees included
}

// Importer prices supplier catalog items for listing.
type Importer struct {
	Normalizer supplier.Normalizer
	Log        zerolog.Logger
}

// ComputeListing normalizes the raw supplier price, applies the seller's
// markup and optional shipping cost to form the ask, and runs the forward
// pricer. MarkupPercent is a fraction of the cost (0.5 means 50%).
func (i Importer) ComputeListing(rawPrice any, markupPercent decimal.Decimal, shipping money.Money, policy pricing.FeePolicy) (Listing, error) {
	if markupPercent.IsNegative() {
		return Listing{}, ErrInvalidMarkup
	}
	if shipping < 0 {
		shipping = 0
	}
	cost := i.Normalizer.Normalize(rawPrice)
	if cost <= 0 {
		return Listing{}, fmt.Errorf("raw price %v: %w", rawPrice, ErrNoUsablePrice)
	}
	ask := money.FromDecimal(money.ToDecimal(cost).Mul(one.Add(markupPercent))) + shipping
	final, err := pricing.Price(ask, policy)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Cost: cost, SellerAsk: ask, FinalPrice: final}, nil
}

// DecomposeListedPrice recovers the seller ask behind a price the supplier
// claims is already customer-facing. On ErrAmbiguousInverse the caller
// should treat the supplied price as authoritative without decomposition;
// the fallback is logged here so every such listing is auditable.
func (i Importer) DecomposeListedPrice(final money.Money, policy pricing.FeePolicy) (money.Money, error) {
	ask, err := pricing.AskFromPrice(final, policy)
	if err != nil {
		if errors.Is(err, pricing.ErrAmbiguousInverse) {
			i.Log.Warn().
				Int64("final_price", final).
				Msg("listed price has no self-consistent seller ask")
		}
		return 0, err
	}
	return ask, nil
}
