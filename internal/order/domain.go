// Package order persists priced orders and their payout ledgers. Orders are
// insert-only: financial fields are never updated in place, and corrections
// are modeled as new adjusting ledger rows.
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/pricing"
)

// Status values an order can be created with. NeedsReconciliation marks an
// order whose persisted ledger could not be confirmed and must not be
// treated as paid.
const (
	StatusPaid                = "PAID"
	StatusNeedsReconciliation = "NEEDS_RECONCILIATION"
)

// Order is the header row. The policy percentages in effect at purchase are
// snapshotted here so historical orders stay reproducible when platform
// defaults change.
type Order struct {
	ID                uuid.UUID
	BuyerID           *uuid.UUID
	Currency          string
	Subtotal          money.Money
	Shipping          money.Money
	Tax               money.Money
	Total             money.Money
	PlatformPercent   decimal.Decimal
	FundraiserPercent decimal.Decimal
	AffiliatePercent  decimal.Decimal
	Status            string
	CreatedAt         time.Time
}

// Line is one purchased product at the price the buyer saw, with the
// percentages in effect for that line at purchase time.
type Line struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductID         uuid.UUID
	Quantity          int32
	FinalPricePerUnit money.Money
	SellerAskPerUnit  money.Money
	AffiliatePercent  decimal.Decimal
	PlatformPercent   decimal.Decimal
	FundraiserPercent decimal.Decimal
}

// PayoutRow is one beneficiary's cut of an order, as persisted.
type PayoutRow struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	BeneficiaryID *uuid.UUID
	Role          pricing.Role
	Amount        money.Money
	Memo          string
	CreatedAt     time.Time
}
