package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/order"
	"github.com/beezio/backend-market/internal/pricing"
)

type fakeRecorder struct {
	order order.Order
	lines []order.Line
	rows  []order.PayoutRow
	err   error
	calls int
}

func (f *fakeRecorder) Record(_ context.Context, o order.Order, lines []order.Line, rows []order.PayoutRow) (uuid.UUID, error) {
	f.calls++
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.order = o
	f.lines = lines
	f.rows = rows
	return o.ID, nil
}

func testPolicy() pricing.FeePolicy {
	return pricing.FeePolicy{
		AffiliatePercent:        decimal.RequireFromString("0.20"),
		PlatformPercent:         decimal.RequireFromString("0.15"),
		ProcessorPercent:        decimal.RequireFromString("0.029"),
		ProcessorFixed:          30,
		ReferralOverridePercent: decimal.RequireFromString("0.05"),
		LowPriceSurcharge:       100,
		LowPriceThreshold:       2000,
	}
}

func testLine(t *testing.T, ask money.Money, qty int) LineInput {
	t.Helper()
	p := testPolicy()
	final, err := pricing.Price(ask, p)
	if err != nil {
		t.Fatalf("price ask %d: %v", ask, err)
	}
	return LineInput{
		ProductID:       uuid.New(),
		Quantity:        qty,
		SellerAsk:       ask,
		QuotedUnitPrice: final,
		Policy:          p,
	}
}

func TestCreateRecordsReconciledOrder(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Rec: rec, Currency: "USD", Log: zerolog.Nop()}

	line := testLine(t, 10000, 1)
	if line.QuotedUnitPrice != 16151 {
		t.Fatalf("quoted unit price = %d, want 16151", line.QuotedUnitPrice)
	}
	out, err := svc.Create(context.Background(), Input{
		Lines:    []LineInput{line},
		Shipping: 500,
		Tax:      0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Status != order.StatusPaid {
		t.Fatalf("status = %q, want %q", out.Status, order.StatusPaid)
	}
	if out.Total != 16651 {
		t.Fatalf("total = %d, want 16651", out.Total)
	}
	if rec.order.Subtotal != 16151 {
		t.Fatalf("subtotal = %d, want 16151", rec.order.Subtotal)
	}
	if rec.order.Currency != "USD" {
		t.Fatalf("currency = %q, want USD", rec.order.Currency)
	}
	var ledgerSum money.Money
	for _, row := range rec.rows {
		ledgerSum += row.Amount
	}
	if ledgerSum != rec.order.Subtotal {
		t.Fatalf("ledger sum %d != subtotal %d", ledgerSum, rec.order.Subtotal)
	}
}

func TestCreateMultiLineSubtotal(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Rec: rec, Currency: "USD", Log: zerolog.Nop()}

	a := testLine(t, 10000, 2)
	b := testLine(t, 1500, 3)
	out, err := svc.Create(context.Background(), Input{Lines: []LineInput{a, b}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := a.QuotedUnitPrice*2 + b.QuotedUnitPrice*3
	if out.Total != want {
		t.Fatalf("total = %d, want %d", out.Total, want)
	}
	if len(rec.lines) != 2 {
		t.Fatalf("persisted %d lines, want 2", len(rec.lines))
	}
	var ledgerSum money.Money
	for _, row := range rec.rows {
		ledgerSum += row.Amount
	}
	if ledgerSum != want {
		t.Fatalf("ledger sum %d != subtotal %d", ledgerSum, want)
	}
}

func TestCreateRejectsStaleUnitPrice(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Rec: rec, Currency: "USD", Log: zerolog.Nop()}

	line := testLine(t, 10000, 1)
	line.QuotedUnitPrice-- // stale quote from before a fee change
	_, err := svc.Create(context.Background(), Input{Lines: []LineInput{line}})
	if !errors.Is(err, ErrTotalsMismatch) {
		t.Fatalf("err = %v, want ErrTotalsMismatch", err)
	}
	if rec.calls != 0 {
		t.Fatalf("recorder called %d times on mismatch, want 0", rec.calls)
	}
}

func TestCreateRejectsStaleTotal(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Rec: rec, Currency: "USD", Log: zerolog.Nop()}

	line := testLine(t, 10000, 1)
	_, err := svc.Create(context.Background(), Input{
		Lines:       []LineInput{line},
		Shipping:    500,
		QuotedTotal: 16151, // forgot shipping
	})
	if !errors.Is(err, ErrTotalsMismatch) {
		t.Fatalf("err = %v, want ErrTotalsMismatch", err)
	}
	if rec.calls != 0 {
		t.Fatalf("recorder called %d times on mismatch, want 0", rec.calls)
	}
}

func TestCreatePropagatesRecorderError(t *testing.T) {
	rec := &fakeRecorder{err: order.ErrPersistence}
	svc := &Service{Rec: rec, Currency: "USD", Log: zerolog.Nop()}

	line := testLine(t, 10000, 1)
	_, err := svc.Create(context.Background(), Input{Lines: []LineInput{line}})
	if !errors.Is(err, order.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := &Service{Rec: &fakeRecorder{}, Currency: "USD", Log: zerolog.Nop()}

	if _, err := svc.Create(context.Background(), Input{}); err == nil {
		t.Fatal("expected error for empty lines")
	}
	line := testLine(t, 10000, 1)
	line.Quantity = 0
	if _, err := svc.Create(context.Background(), Input{Lines: []LineInput{line}}); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	good := testLine(t, 10000, 1)
	if _, err := svc.Create(context.Background(), Input{Lines: []LineInput{good}, Shipping: -1}); err == nil {
		t.Fatal("expected error for negative shipping")
	}
}
