package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/beezio/backend-market/internal/common"
	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/pricing"
)

type importRequest struct {
	// RawPrice is whatever the supplier feed carried: a string, a number,
	// a "low--high" range, or garbage. Ambiguity is resolved server side.
	RawPrice      any                 `json:"rawPrice"`
	MarkupPercent string              `json:"markupPercent"`
	Shipping      int64               `json:"shipping" validate:"min=0"`
	Policy        *pricing.PolicyJSON `json:"policy" validate:"required"`
}

type Handler struct {
	Imp      Importer
	Validate *validator.Validate
}

// ImportPrice turns a raw supplier price into a fully priced listing.
func (h *Handler) ImportPrice(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err))
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.WriteError(w, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err))
			return
		}
	}
	markup := decimal.Zero
	if req.MarkupPercent != "" {
		var err error
		markup, err = decimal.NewFromString(req.MarkupPercent)
		if err != nil {
			common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid markupPercent", http.StatusBadRequest, err))
			return
		}
	}
	policy, err := req.Policy.ToPolicy()
	if err != nil {
		common.WriteError(w, common.NewAppError("INVALID_POLICY", err.Error(), http.StatusUnprocessableEntity, err))
		return
	}
	listing, err := h.Imp.ComputeListing(req.RawPrice, markup, req.Shipping, policy)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoUsablePrice):
			common.WriteError(w, common.NewAppError("NO_USABLE_PRICE", "supplier price could not be interpreted", http.StatusUnprocessableEntity, err))
		case errors.Is(err, ErrInvalidMarkup):
			common.WriteError(w, common.NewAppError("INVALID_MARKUP", "markup must be non-negative", http.StatusUnprocessableEntity, err))
		case errors.Is(err, pricing.ErrInvalidAsk):
			common.WriteError(w, common.NewAppError("INVALID_ASK", err.Error(), http.StatusUnprocessableEntity, err))
		default:
			common.WriteError(w, err)
		}
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"cost":            listing.Cost,
		"costMajor":       money.FormatMajor(listing.Cost),
		"sellerAsk":       listing.SellerAsk,
		"sellerAskMajor":  money.FormatMajor(listing.SellerAsk),
		"finalPrice":      listing.FinalPrice,
		"finalPriceMajor": money.FormatMajor(listing.FinalPrice),
	})
}
