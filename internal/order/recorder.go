package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/pricing"
)

// ErrPersistence wraps any storage failure while recording an order. The
// whole record operation is retryable; resuming partway is not.
var ErrPersistence = errors.New("order persistence failed")

// Recorder writes an order, its lines, and its payout ledger as one
// transaction. Either everything becomes visible or nothing does; a
// cancelled context aborts the transaction on rollback.
type Recorder struct {
	Pool *pgxpool.Pool
}

const (
	insertOrderSQL = `INSERT INTO orders
		(id, buyer_id, currency, subtotal, shipping, tax, total,
		 platform_percent_at_purchase, fundraiser_percent_at_purchase,
		 affiliate_percent_at_purchase, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11, $12)`

	insertLineSQL = `INSERT INTO order_lines
		(id, order_id, product_id, quantity, final_price_per_unit,
		 seller_ask_per_unit, affiliate_percent_at_purchase,
		 platform_percent_at_purchase, fundraiser_percent_at_purchase)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric)`

	insertPayoutSQL = `INSERT INTO payout_ledger
		(id, order_id, beneficiary_id, role, amount, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectPayoutSQL = `SELECT id, order_id, beneficiary_id, role, amount, memo, created_at
		FROM payout_ledger WHERE order_id = $1 ORDER BY created_at, id`
)

// Record persists the order header, then its lines, then its ledger rows.
// It refuses a ledger-less order and a ledger that does not sum to the
// order subtotal: such an order must never be considered paid.
func (r *Recorder) Record(ctx context.Context, o Order, lines []Line, rows []PayoutRow) (uuid.UUID, error) {
	if r == nil || r.Pool == nil {
		return uuid.Nil, fmt.Errorf("recorder not configured: %w", ErrPersistence)
	}
	if len(lines) == 0 || len(rows) == 0 {
		return uuid.Nil, fmt.Errorf("order %s has no lines or ledger: %w", o.ID, pricing.ErrLedgerMismatch)
	}
	var ledgerSum money.Money
	for _, row := range rows {
		ledgerSum += row.Amount
	}
	if ledgerSum != o.Subtotal {
		return uuid.Nil, fmt.Errorf("ledger sums to %d, order subtotal %d: %w", ledgerSum, o.Subtotal, pricing.ErrLedgerMismatch)
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, persistErr("begin", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.BuyerID, o.Currency, o.Subtotal, o.Shipping, o.Tax, o.Total,
		o.PlatformPercent.String(), o.FundraiserPercent.String(),
		o.AffiliatePercent.String(), o.Status, o.CreatedAt,
	); err != nil {
		return uuid.Nil, persistErr("insert order", err)
	}
	for _, ln := range lines {
		if _, err := tx.Exec(ctx, insertLineSQL,
			ln.ID, o.ID, ln.ProductID, ln.Quantity,
			ln.FinalPricePerUnit, ln.SellerAskPerUnit,
			ln.AffiliatePercent.String(), ln.PlatformPercent.String(),
			ln.FundraiserPercent.String(),
		); err != nil {
			return uuid.Nil, persistErr("insert order line", err)
		}
	}
	for _, row := range rows {
		if _, err := tx.Exec(ctx, insertPayoutSQL,
			row.ID, o.ID, row.BeneficiaryID, string(row.Role),
			row.Amount, row.Memo, row.CreatedAt,
		); err != nil {
			return uuid.Nil, persistErr("insert payout row", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, persistErr("commit", err)
	}
	return o.ID, nil
}

// RecordAdjustment appends a correcting ledger row to an existing order.
// History is never edited: a refund or reallocation is a new row, possibly
// with a negative amount.
func (r *Recorder) RecordAdjustment(ctx context.Context, orderID uuid.UUID, row PayoutRow) error {
	if r == nil || r.Pool == nil {
		return fmt.Errorf("recorder not configured: %w", ErrPersistence)
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if _, err := r.Pool.Exec(ctx, insertPayoutSQL,
		row.ID, orderID, row.BeneficiaryID, string(row.Role),
		row.Amount, row.Memo, row.CreatedAt,
	); err != nil {
		return persistErr("insert adjustment", err)
	}
	return nil
}

// LedgerRows returns every payout row of an order, adjustments included, in
// insertion order.
func (r *Recorder) LedgerRows(ctx context.Context, orderID uuid.UUID) ([]PayoutRow, error) {
	if r == nil || r.Pool == nil {
		return nil, fmt.Errorf("recorder not configured: %w", ErrPersistence)
	}
	dbRows, err := r.Pool.Query(ctx, selectPayoutSQL, orderID)
	if err != nil {
		return nil, persistErr("select payout rows", err)
	}
	defer dbRows.Close()

	var out []PayoutRow
	for dbRows.Next() {
		var row PayoutRow
		var role string
		if err := dbRows.Scan(&row.ID, &row.OrderID, &row.BeneficiaryID, &role, &row.Amount, &row.Memo, &row.CreatedAt); err != nil {
			return nil, persistErr("scan payout row", err)
		}
		row.Role = pricing.Role(role)
		out = append(out, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, persistErr("iterate payout rows", err)
	}
	return out, nil
}

func persistErr(stage string, err error) error {
	return fmt.Errorf("record order (%s): %w", stage, errors.Join(ErrPersistence, err))
}
