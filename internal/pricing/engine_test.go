package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
)

func pct(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func basePolicy() FeePolicy {
	return FeePolicy{
		AffiliatePercent:        pct("0.20"),
		PlatformPercent:         pct("0.15"),
		FundraiserPercent:       pct("0"),
		ProcessorPercent:        pct("0.029"),
		ProcessorFixed:          30,
		ReferralOverridePercent: pct("0.05"),
		LowPriceSurcharge:       100,
		LowPriceThreshold:       2000,
	}
}

func TestPriceConcreteScenario(t *testing.T) {
	// $100.00 ask, 20% affiliate, 15% platform, 2.9% + $0.30 processor.
	// (100.00 + 0.30) / (1 - 0.379) = 161.513... -> $161.51.
	final, err := Price(100_00, basePolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final != 161_51 {
		t.Fatalf("expected final 16151, got %d", final)
	}
}

func TestRoundTripNoSurcharge(t *testing.T) {
	p := basePolicy()
	p.LowPriceSurcharge = 0
	asks := []money.Money{1, 99, 100, 999, 2000, 2001, 4999, 100_00, 1234_56, 99999_99, 10_000_000_00}
	for _, ask := range asks {
		final, err := Price(ask, p)
		if err != nil {
			t.Fatalf("price(%d): %v", ask, err)
		}
		got, err := AskFromPrice(final, p)
		if err != nil {
			t.Fatalf("inverse(%d): %v", final, err)
		}
		if got != ask {
			t.Fatalf("round trip: ask %d -> final %d -> ask %d", ask, final, got)
		}
	}
}

func TestRoundTripWithSurcharge(t *testing.T) {
	p := basePolicy()
	// Finals from asks inside (threshold, threshold+surcharge] have two
	// self-consistent preimages; everywhere else the round trip is exact.
	asks := []money.Money{1, 500, 1999, 2000, 2101, 5000, 100_00, 99999_99}
	for _, ask := range asks {
		final, err := Price(ask, p)
		if err != nil {
			t.Fatalf("price(%d): %v", ask, err)
		}
		got, err := AskFromPrice(final, p)
		if err != nil {
			t.Fatalf("inverse(%d): %v", final, err)
		}
		if got != ask {
			t.Fatalf("round trip: ask %d -> final %d -> ask %d", ask, final, got)
		}
	}
}

func TestSurchargeBoundary(t *testing.T) {
	p := basePolicy()
	atThreshold, err := Price(20_00, p)
	if err != nil {
		t.Fatalf("price at threshold: %v", err)
	}
	aboveThreshold, err := Price(20_01, p)
	if err != nil {
		t.Fatalf("price above threshold: %v", err)
	}
	if atThreshold != 34_30 {
		t.Fatalf("expected surcharged price 3430, got %d", atThreshold)
	}
	if aboveThreshold != 32_71 {
		t.Fatalf("expected non-surcharged price 3271, got %d", aboveThreshold)
	}
	if atThreshold <= aboveThreshold {
		t.Fatalf("surcharge should raise the price at the threshold: %d vs %d", atThreshold, aboveThreshold)
	}

	ask, err := AskFromPrice(atThreshold, p)
	if err != nil {
		t.Fatalf("inverse at threshold: %v", err)
	}
	if ask != 20_00 {
		t.Fatalf("expected ask 2000, got %d", ask)
	}

	// 20.01 sits in the two-preimage band: the inverse picks the
	// surcharge-side ask, which must still map back to the same price.
	ask, err = AskFromPrice(aboveThreshold, p)
	if err != nil {
		t.Fatalf("inverse above threshold: %v", err)
	}
	back, err := Price(ask, p)
	if err != nil {
		t.Fatalf("re-price %d: %v", ask, err)
	}
	if back != aboveThreshold {
		t.Fatalf("inverse returned %d which prices to %d, want %d", ask, back, aboveThreshold)
	}
}

func TestMonotonicity(t *testing.T) {
	const ask = 50_00
	base := basePolicy()
	baseFinal, err := Price(ask, base)
	if err != nil {
		t.Fatalf("base price: %v", err)
	}
	bump := pct("0.05")
	variants := map[string]FeePolicy{}

	p := base
	p.AffiliatePercent = p.AffiliatePercent.Add(bump)
	variants["affiliate"] = p

	p = base
	p.PlatformPercent = p.PlatformPercent.Add(bump)
	variants["platform"] = p

	p = base
	p.FundraiserPercent = p.FundraiserPercent.Add(bump)
	variants["fundraiser"] = p

	p = base
	p.ProcessorPercent = p.ProcessorPercent.Add(bump)
	variants["processor"] = p

	for name, variant := range variants {
		final, err := Price(ask, variant)
		if err != nil {
			t.Fatalf("%s price: %v", name, err)
		}
		if final <= baseFinal {
			t.Fatalf("raising %s percent should raise the price: %d vs base %d", name, final, baseFinal)
		}
	}
}

func TestPolicyRejection(t *testing.T) {
	p := basePolicy()
	p.PlatformPercent = pct("0.80")
	if _, err := Price(100_00, p); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}

	p = basePolicy()
	p.AffiliatePercent = pct("-0.01")
	if _, err := Price(100_00, p); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for negative percent, got %v", err)
	}

	p = basePolicy()
	p.ReferralOverridePercent = pct("0.20")
	if _, err := Price(100_00, p); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for override above platform share, got %v", err)
	}
}

func TestInvalidAsk(t *testing.T) {
	for _, ask := range []money.Money{0, -1, -100_00} {
		if _, err := Price(ask, basePolicy()); !errors.Is(err, ErrInvalidAsk) {
			t.Fatalf("ask %d: expected ErrInvalidAsk, got %v", ask, err)
		}
	}
}

func TestAmbiguousInverse(t *testing.T) {
	p := basePolicy()
	// 25 cents cannot cover the processor fixed fee, let alone a payout.
	if _, err := AskFromPrice(25, p); !errors.Is(err, ErrAmbiguousInverse) {
		t.Fatalf("expected ErrAmbiguousInverse, got %v", err)
	}
	if _, err := AskFromPrice(0, p); !errors.Is(err, ErrAmbiguousInverse) {
		t.Fatalf("expected ErrAmbiguousInverse for zero price, got %v", err)
	}
}
