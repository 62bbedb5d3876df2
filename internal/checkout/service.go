package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/obs"
	"github.com/beezio/backend-market/internal/order"
	"github.com/beezio/backend-market/internal/pricing"
)

// ErrTotalsMismatch is returned when the totals the client quoted no longer
// match a fresh computation from the same asks and policy. The order is not
// recorded in that case; the client must re-quote.
var ErrTotalsMismatch = errors.New("checkout: quoted totals do not match recomputed totals")

// Recorder persists a reconciled order. Satisfied by order.Recorder.
type Recorder interface {
	Record(ctx context.Context, o order.Order, lines []order.Line, rows []order.PayoutRow) (uuid.UUID, error)
}

// LineInput is one product in the checkout session. QuotedUnitPrice is the
// price the buyer was shown; it is re-derived server side before commit.
type LineInput struct {
	ProductID       uuid.UUID
	Quantity        int
	SellerAsk       money.Money
	QuotedUnitPrice money.Money
	Policy          pricing.FeePolicy
	ReferralActive  bool
	Who             pricing.Participants
}

type Input struct {
	BuyerID     *uuid.UUID
	Currency    string
	Lines       []LineInput
	Shipping    money.Money
	Tax         money.Money
	QuotedTotal money.Money
}

type Output struct {
	OrderID uuid.UUID
	Status  string
	Total   money.Money
}

type Service struct {
	Rec      Recorder
	Currency string
	Log      zerolog.Logger
}

// Create reprices every line from its seller ask, verifies the client's
// quoted numbers against the fresh computation, builds the payout ledger,
// and records the order. Any drift between quote and recomputation aborts
// before anything is written.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Rec == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if len(in.Lines) == 0 {
		return Output{}, errors.New("checkout requires at least one line")
	}
	if in.Shipping < 0 || in.Tax < 0 {
		return Output{}, errors.New("shipping and tax must be non-negative")
	}

	currency := in.Currency
	if currency == "" {
		currency = s.Currency
	}

	orderID := uuid.New()
	var subtotal money.Money
	lines := make([]order.Line, 0, len(in.Lines))
	var rows []order.PayoutRow
	for i, li := range in.Lines {
		if li.Quantity <= 0 {
			return Output{}, fmt.Errorf("line %d: quantity must be positive", i)
		}
		final, err := pricing.Price(li.SellerAsk, li.Policy)
		if err != nil {
			s.count("rejected")
			return Output{}, fmt.Errorf("line %d: %w", i, err)
		}
		if final != li.QuotedUnitPrice {
			s.count("totals_mismatch")
			s.Log.Warn().
				Int("line", i).
				Int64("quoted", int64(li.QuotedUnitPrice)).
				Int64("recomputed", int64(final)).
				Msg("checkout unit price drifted from quote")
			return Output{}, fmt.Errorf("line %d: quoted %d, recomputed %d: %w", i, li.QuotedUnitPrice, final, ErrTotalsMismatch)
		}
		ledger, err := pricing.BuildLedger(final, li.SellerAsk, li.Policy, li.ReferralActive, li.Quantity, li.Who)
		if err != nil {
			if errors.Is(err, pricing.ErrLedgerMismatch) && obs.LedgerMismatchTotal != nil {
				obs.LedgerMismatchTotal.Inc()
			}
			s.count("rejected")
			return Output{}, fmt.Errorf("line %d: %w", i, err)
		}
		subtotal += final * money.Money(li.Quantity)
		lines = append(lines, order.Line{
			ID:                uuid.New(),
			OrderID:           orderID,
			ProductID:         li.ProductID,
			Quantity:          int32(li.Quantity),
			FinalPricePerUnit: final,
			SellerAskPerUnit:  li.SellerAsk,
			AffiliatePercent:  li.Policy.AffiliatePercent,
			PlatformPercent:   li.Policy.PlatformPercent,
			FundraiserPercent: li.Policy.FundraiserPercent,
		})
		for _, ln := range ledger.Lines {
			rows = append(rows, order.PayoutRow{
				ID:            uuid.New(),
				OrderID:       orderID,
				BeneficiaryID: ln.BeneficiaryID,
				Role:          ln.Role,
				Amount:        ln.Amount,
				Memo:          ln.Memo,
			})
		}
	}

	total := subtotal + in.Shipping + in.Tax
	if in.QuotedTotal != 0 && in.QuotedTotal != total {
		s.count("totals_mismatch")
		s.Log.Warn().
			Int64("quoted", int64(in.QuotedTotal)).
			Int64("recomputed", int64(total)).
			Msg("checkout total drifted from quote")
		return Output{}, fmt.Errorf("quoted total %d, recomputed %d: %w", in.QuotedTotal, total, ErrTotalsMismatch)
	}

	head := in.Lines[0].Policy
	o := order.Order{
		ID:                orderID,
		BuyerID:           in.BuyerID,
		Currency:          currency,
		Subtotal:          subtotal,
		Shipping:          in.Shipping,
		Tax:               in.Tax,
		Total:             total,
		PlatformPercent:   head.PlatformPercent,
		FundraiserPercent: head.FundraiserPercent,
		AffiliatePercent:  head.AffiliatePercent,
		Status:            order.StatusPaid,
	}
	id, err := s.Rec.Record(ctx, o, lines, rows)
	if err != nil {
		s.count("error")
		return Output{}, err
	}
	s.count("ok")
	return Output{OrderID: id, Status: o.Status, Total: total}, nil
}

func (s *Service) count(result string) {
	if obs.OrdersRecordedTotal != nil {
		obs.OrdersRecordedTotal.WithLabelValues(result).Inc()
	}
}
