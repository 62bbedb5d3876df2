package supplier

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/beezio/backend-market/internal/money"
)

func newNormalizer() Normalizer {
	return Normalizer{Log: zerolog.Nop()}
}

func TestNormalizeHeuristics(t *testing.T) {
	n := newNormalizer()
	cases := []struct {
		raw  any
		want money.Money
	}{
		{"1999", 1999},           // integer in the minor-unit band: cents
		{"19.99", 1999},          // decimal point: already major units
		{"12.50--15.00", 1250},   // range takes the first segment
		{"not a price", 0},       // unparseable falls back to zero
		{"999", 99900},           // below the band: major units
		{"1000000", 1_000_000},   // top of the band inclusive
		{"1000001", 100_000_100}, // above the band: major units
		{"$24.95", 2495},
		{"", 0},
		{"-5", 0},
		{float64(19.99), 1999},
		{float64(1999), 1999},
		{int64(1500), 1500},
		{42, 4200},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.raw); got != tc.want {
			t.Fatalf("Normalize(%v) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeTunableBounds(t *testing.T) {
	n := newNormalizer()
	n.MinorUnitLow = 100
	n.MinorUnitHigh = 500
	if got := n.Normalize("250"); got != 250 {
		t.Fatalf("expected 250 cents under widened band, got %d", got)
	}
	if got := n.Normalize("1999"); got != 1999_00 {
		t.Fatalf("expected major units outside narrowed band, got %d", got)
	}
}

func TestNormalizeObserveHook(t *testing.T) {
	var seen []string
	n := newNormalizer()
	n.Observe = func(h string) { seen = append(seen, h) }
	n.Normalize("1999")
	n.Normalize("19.99")
	n.Normalize("junk")
	want := []string{HeuristicMinorUnits, HeuristicMajorUnits, HeuristicUnparseable}
	if len(seen) != len(want) {
		t.Fatalf("expected %d observations, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observation %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}
