// Package supplier normalizes third-party catalog prices before they enter
// the pricing engine. The upstream feed is ambiguous about units: a value
// may be minor units, a decimal major-unit amount, or a ranged string.
package supplier

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
)

// Default bounds for the minor-unit heuristic: a bare integer inside this
// range is assumed to be cents. There is no confirmed ground truth for the
// boundary, so both ends are tunable through config and every decision is
// logged for audit.
const (
	DefaultMinorUnitLow  = 1_000
	DefaultMinorUnitHigh = 1_000_000
)

// Heuristic names used in logs and metrics.
const (
	HeuristicMinorUnits  = "minor_units"
	HeuristicMajorUnits  = "major_units"
	HeuristicUnparseable = "unparseable"
)

// Normalizer converts raw supplier price representations into minor units.
type Normalizer struct {
	MinorUnitLow  int64
	MinorUnitHigh int64
	Log           zerolog.Logger
	// Observe, when set, is called with the heuristic applied to each value.
	Observe func(heuristic string)
}

// Normalize converts a raw supplier price into minor units, best effort. It
// never fails: unparseable or non-positive input yields 0, which callers
// must treat as "no usable price, skip import".
func (n Normalizer) Normalize(raw any) money.Money {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = decimal.NewFromFloat(v).String()
	case int:
		text = decimal.NewFromInt(int64(v)).String()
	case int64:
		text = decimal.NewFromInt(v).String()
	default:
		return n.decide(raw, "", HeuristicUnparseable, 0)
	}

	// Ranged prices ("12.50--15.00") take the first segment.
	segment := strings.TrimSpace(text)
	if idx := strings.Index(segment, "--"); idx >= 0 {
		segment = strings.TrimSpace(segment[:idx])
	}
	segment = strings.TrimPrefix(segment, "$")

	d, err := decimal.NewFromString(segment)
	if err != nil || !d.IsPositive() {
		return n.decide(raw, segment, HeuristicUnparseable, 0)
	}

	// A bare integer inside the minor-unit band is assumed to be cents.
	if !strings.Contains(segment, ".") && d.IsInteger() {
		v := d.IntPart()
		if v >= n.minorLow() && v <= n.minorHigh() {
			return n.decide(raw, segment, HeuristicMinorUnits, money.Money(v))
		}
	}
	return n.decide(raw, segment, HeuristicMajorUnits, money.FromDecimal(d))
}

func (n Normalizer) decide(raw any, segment, heuristic string, cents money.Money) money.Money {
	if n.Observe != nil {
		n.Observe(heuristic)
	}
	n.Log.Debug().
		Interface("raw", raw).
		Str("segment", segment).
		Str("heuristic", heuristic).
		Int64("cents", cents).
		Msg("supplier_price_normalized")
	return cents
}

func (n Normalizer) minorLow() int64 {
	if n.MinorUnitLow > 0 {
		return n.MinorUnitLow
	}
	return DefaultMinorUnitLow
}

func (n Normalizer) minorHigh() int64 {
	if n.MinorUnitHigh > 0 {
		return n.MinorUnitHigh
	}
	return DefaultMinorUnitHigh
}
