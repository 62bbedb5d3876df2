package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/common"
	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/obs"
)

// PolicyJSON is the wire shape of a fee policy. Percent fields are decimal
// fractions serialized as strings so no precision is lost in transit;
// amounts are minor units.
type PolicyJSON struct {
	AffiliatePercent        string `json:"affiliatePercent" validate:"required"`
	PlatformPercent         string `json:"platformPercent" validate:"required"`
	FundraiserPercent       string `json:"fundraiserPercent"`
	ProcessorPercent        string `json:"processorPercent" validate:"required"`
	ProcessorFixed          int64  `json:"processorFixed" validate:"min=0"`
	ReferralOverridePercent string `json:"referralOverridePercent"`
	LowPriceSurcharge       int64  `json:"lowPriceSurcharge" validate:"min=0"`
	LowPriceThreshold       int64  `json:"lowPriceThreshold" validate:"min=0"`
}

// ToPolicy parses and validates the wire policy.
func (pj PolicyJSON) ToPolicy() (FeePolicy, error) {
	parse := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	var p FeePolicy
	var err error
	if p.AffiliatePercent, err = parse(pj.AffiliatePercent); err != nil {
		return FeePolicy{}, err
	}
	if p.PlatformPercent, err = parse(pj.PlatformPercent); err != nil {
		return FeePolicy{}, err
	}
	if p.FundraiserPercent, err = parse(pj.FundraiserPercent); err != nil {
		return FeePolicy{}, err
	}
	if p.ProcessorPercent, err = parse(pj.ProcessorPercent); err != nil {
		return FeePolicy{}, err
	}
	if p.ReferralOverridePercent, err = parse(pj.ReferralOverridePercent); err != nil {
		return FeePolicy{}, err
	}
	p.ProcessorFixed = pj.ProcessorFixed
	p.LowPriceSurcharge = pj.LowPriceSurcharge
	p.LowPriceThreshold = pj.LowPriceThreshold
	if err := p.Validate(); err != nil {
		return FeePolicy{}, err
	}
	return p, nil
}

type quoteRequest struct {
	SellerAsk      int64       `json:"sellerAsk" validate:"required,gt=0"`
	Quantity       int         `json:"quantity" validate:"min=0"`
	ReferralActive bool        `json:"referralActive"`
	Policy         *PolicyJSON `json:"policy" validate:"required"`
}

type inverseRequest struct {
	FinalPrice int64       `json:"finalPrice" validate:"required,gt=0"`
	Policy     *PolicyJSON `json:"policy" validate:"required"`
}

type ledgerLineJSON struct {
	Role        string `json:"role"`
	Amount      int64  `json:"amount"`
	AmountMajor string `json:"amountMajor"`
	Memo        string `json:"memo"`
}

// Handler exposes the quote endpoints of the service boundary.
type Handler struct {
	Validate *validator.Validate
	Log      zerolog.Logger
}

// Quote prices a seller ask and previews the payout ledger.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	policy, err := req.Policy.ToPolicy()
	if err != nil {
		h.countQuote("forward", "invalid_policy")
		common.WriteError(w, common.NewAppError("INVALID_POLICY", err.Error(), http.StatusUnprocessableEntity, err))
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	final, err := Price(req.SellerAsk, policy)
	if err != nil {
		h.writeQuoteError(w, "forward", err)
		return
	}
	ledger, err := BuildLedger(final, req.SellerAsk, policy, req.ReferralActive, qty, Participants{})
	if err != nil {
		h.writeQuoteError(w, "forward", err)
		return
	}
	h.countQuote("forward", "ok")
	lines := make([]ledgerLineJSON, 0, len(ledger.Lines))
	for _, ln := range ledger.Lines {
		lines = append(lines, ledgerLineJSON{
			Role:        string(ln.Role),
			Amount:      ln.Amount,
			AmountMajor: money.FormatMajor(ln.Amount),
			Memo:        ln.Memo,
		})
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"finalPrice":      final,
		"finalPriceMajor": money.FormatMajor(final),
		"quantity":        qty,
		"ledger":          lines,
		"ledgerTotal":     ledger.Sum(),
	})
}

// Inverse recovers the seller ask behind a customer-facing price.
func (h *Handler) Inverse(w http.ResponseWriter, r *http.Request) {
	var req inverseRequest
	if !h.decode(w, r, &req) {
		return
	}
	policy, err := req.Policy.ToPolicy()
	if err != nil {
		h.countQuote("inverse", "invalid_policy")
		common.WriteError(w, common.NewAppError("INVALID_POLICY", err.Error(), http.StatusUnprocessableEntity, err))
		return
	}
	ask, err := AskFromPrice(req.FinalPrice, policy)
	if err != nil {
		h.writeQuoteError(w, "inverse", err)
		return
	}
	h.countQuote("inverse", "ok")
	common.JSONData(w, http.StatusOK, map[string]any{
		"sellerAsk":      ask,
		"sellerAskMajor": money.FormatMajor(ask),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err))
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			common.WriteError(w, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err))
			return false
		}
	}
	return true
}

func (h *Handler) writeQuoteError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidPolicy):
		h.countQuote(op, "invalid_policy")
		common.WriteError(w, common.NewAppError("INVALID_POLICY", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrInvalidAsk):
		h.countQuote(op, "invalid_ask")
		common.WriteError(w, common.NewAppError("INVALID_ASK", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrAmbiguousInverse):
		h.countQuote(op, "ambiguous")
		common.WriteError(w, common.NewAppError("AMBIGUOUS_INVERSE", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrLedgerMismatch):
		h.countQuote(op, "ledger_mismatch")
		if obs.LedgerMismatchTotal != nil {
			obs.LedgerMismatchTotal.Inc()
		}
		h.Log.Error().Err(err).Msg("ledger reconciliation failed")
		common.WriteError(w, common.NewAppError("LEDGER_MISMATCH", "ledger reconciliation failed", http.StatusInternalServerError, err))
	default:
		h.countQuote(op, "error")
		common.WriteError(w, err)
	}
}

func (h *Handler) countQuote(op, result string) {
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(op, result).Inc()
	}
}
