package pricing

import (
	"github.com/beezio/backend-market/internal/money"
)

// Price derives the customer-facing final price for a seller ask. Every
// percentage fee is defined as a fraction of the final price, so fees gross
// up instead of netting down: the seller's stated payout survives no matter
// how many participants are attached.
//
//	final = (ask + fixed) / (1 - feeFraction)
//
// where fixed is the processor flat fee plus the low-price surcharge when
// the ask falls at or below the threshold. The result is rounded half away
// from zero to the nearest cent, once.
func Price(ask money.Money, p FeePolicy) (money.Money, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if ask <= 0 {
		return 0, ErrInvalidAsk
	}
	fixed := p.ProcessorFixed + p.surchargeFor(ask)
	gross := money.ToDecimal(ask + fixed).Div(one.Sub(p.FeeFraction()))
	return money.FromDecimal(gross), nil
}

// AskFromPrice recovers the seller ask from a known final price. The
// surcharge is a step function of the ask, not the price, so the inverse is
// piecewise: it tries the with-surcharge candidate first and keeps whichever
// candidate is self-consistent with the surcharge it assumes.
//
// Prices produced by Price always invert cleanly; externally supplied prices
// (for example imported catalog prices claimed to already be customer-facing)
// may not, in which case ErrAmbiguousInverse is returned and the caller
// should treat the supplied price as authoritative without decomposition.
func AskFromPrice(final money.Money, p FeePolicy) (money.Money, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if final <= 0 {
		return 0, ErrAmbiguousInverse
	}
	keep := one.Sub(p.FeeFraction())
	a0 := money.FromDecimal(money.ToDecimal(final).Mul(keep).Sub(money.ToDecimal(p.ProcessorFixed)))
	if p.LowPriceSurcharge == 0 {
		if a0 > 0 {
			return a0, nil
		}
		return 0, ErrAmbiguousInverse
	}
	a1 := a0 - p.LowPriceSurcharge
	if a1 > 0 && a1 <= p.LowPriceThreshold {
		return a1, nil
	}
	if a0 > p.LowPriceThreshold {
		return a0, nil
	}
	return 0, ErrAmbiguousInverse
}
