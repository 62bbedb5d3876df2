package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
)

// Role identifies a payout beneficiary class.
type Role string

const (
	RoleSeller            Role = "seller"
	RoleAffiliate         Role = "affiliate"
	RoleReferralAffiliate Role = "referral_affiliate"
	RolePlatform          Role = "platform"
	RoleFundraiser        Role = "fundraiser"
	RoleProcessor         Role = "processor"
)

// Line is one beneficiary's exact cut of a sale.
type Line struct {
	Role          Role
	BeneficiaryID *uuid.UUID
	Amount        money.Money
	Memo          string
}

// Ledger is the full payout breakdown of a sale. Invariant: Sum() equals the
// final price times the quantity, to the cent.
type Ledger struct {
	Lines []Line
}

// Sum totals every line in minor units.
func (l Ledger) Sum() money.Money {
	var total money.Money
	for _, ln := range l.Lines {
		total += ln.Amount
	}
	return total
}

// Participants carries the optional beneficiary ids stamped onto ledger
// lines. Platform and processor lines have no beneficiary id.
type Participants struct {
	SellerID            *uuid.UUID
	AffiliateID         *uuid.UUID
	ReferralAffiliateID *uuid.UUID
	FundraiserID        *uuid.UUID
}

// BuildLedger expands a priced sale into per-participant payout lines for
// the given quantity. Each percentage fee is rounded at the multiplied
// amount, not per unit, so large quantities do not accumulate drift. The
// seller line is the residual of the final price after every other line:
// rounding each fee independently can leave a cent or two unassigned, and
// that remainder must land on exactly one line instead of being dropped.
//
// The residual is still reconciled against the supplied ask; a difference
// beyond what rounding can explain returns ErrLedgerMismatch.
func BuildLedger(final, ask money.Money, p FeePolicy, referralActive bool, qty int, who Participants) (Ledger, error) {
	if err := p.Validate(); err != nil {
		return Ledger{}, err
	}
	if ask <= 0 {
		return Ledger{}, ErrInvalidAsk
	}
	if final <= 0 || qty <= 0 {
		return Ledger{}, fmt.Errorf("build ledger: final=%d qty=%d: %w", final, qty, ErrLedgerMismatch)
	}

	gross := final * money.Money(qty)
	grossDec := money.ToDecimal(gross)

	affiliate := money.FromDecimal(grossDec.Mul(p.AffiliatePercent))
	fundraiser := money.FromDecimal(grossDec.Mul(p.FundraiserPercent))
	processor := money.FromDecimal(grossDec.Mul(p.ProcessorPercent)) + p.ProcessorFixed*money.Money(qty)

	surcharge := p.surchargeFor(ask) * money.Money(qty)
	platformGross := money.FromDecimal(grossDec.Mul(p.PlatformPercent)) + surcharge

	var referral money.Money
	if referralActive {
		referral = money.FromDecimal(grossDec.Mul(p.ReferralOverridePercent))
		if referral > platformGross {
			referral = platformGross
		}
	}
	platformNet := platformGross - referral

	seller := gross - affiliate - platformGross - fundraiser - processor
	if seller <= 0 {
		return Ledger{}, fmt.Errorf("seller residual %d not positive: %w", seller, ErrLedgerMismatch)
	}
	// The final price carries up to one cent of rounding per unit, and each
	// of the four percentage lines up to half a cent at the aggregate.
	tolerance := money.Money(qty) + 2
	if diff := seller - ask*money.Money(qty); diff > tolerance || diff < -tolerance {
		return Ledger{}, fmt.Errorf("seller residual %d differs from ask*qty %d beyond rounding: %w",
			seller, ask*money.Money(qty), ErrLedgerMismatch)
	}

	lines := []Line{{Role: RoleSeller, BeneficiaryID: who.SellerID, Amount: seller, Memo: "seller take-home"}}
	if affiliate > 0 {
		lines = append(lines, Line{Role: RoleAffiliate, BeneficiaryID: who.AffiliateID, Amount: affiliate, Memo: affiliateMemo(p)})
	}
	if referral > 0 {
		lines = append(lines, Line{Role: RoleReferralAffiliate, BeneficiaryID: who.ReferralAffiliateID, Amount: referral, Memo: "referral override carved from platform share"})
	}
	if platformNet > 0 {
		memo := "platform fee"
		if surcharge > 0 {
			memo = "platform fee incl. low-price surcharge"
		}
		lines = append(lines, Line{Role: RolePlatform, Amount: platformNet, Memo: memo})
	}
	if fundraiser > 0 {
		lines = append(lines, Line{Role: RoleFundraiser, BeneficiaryID: who.FundraiserID, Amount: fundraiser, Memo: "fundraiser share"})
	}
	if processor > 0 {
		lines = append(lines, Line{Role: RoleProcessor, Amount: processor, Memo: "payment processing"})
	}

	ledger := Ledger{Lines: lines}
	if ledger.Sum() != gross {
		return Ledger{}, fmt.Errorf("ledger sums to %d, want %d: %w", ledger.Sum(), gross, ErrLedgerMismatch)
	}
	return ledger, nil
}

func affiliateMemo(p FeePolicy) string {
	return fmt.Sprintf("affiliate commission %s%% of sale", p.AffiliatePercent.Mul(decimal.NewFromInt(100)).String())
}
