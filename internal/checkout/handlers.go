package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/beezio/backend-market/internal/common"
	"github.com/beezio/backend-market/internal/money"
	"github.com/beezio/backend-market/internal/order"
	"github.com/beezio/backend-market/internal/pricing"
)

type lineJSON struct {
	ProductID       string              `json:"productId" validate:"required,uuid4"`
	Quantity        int                 `json:"quantity" validate:"required,gt=0"`
	SellerAsk       int64               `json:"sellerAsk" validate:"required,gt=0"`
	QuotedUnitPrice int64               `json:"quotedUnitPrice" validate:"required,gt=0"`
	ReferralActive  bool                `json:"referralActive"`
	Policy          *pricing.PolicyJSON `json:"policy" validate:"required"`
	SellerID        *string             `json:"sellerId"`
	AffiliateID     *string             `json:"affiliateId"`
	FundraiserID    *string             `json:"fundraiserId"`
}

type createRequest struct {
	BuyerID     *string    `json:"buyerId"`
	Currency    string     `json:"currency"`
	Shipping    int64      `json:"shipping" validate:"min=0"`
	Tax         int64      `json:"tax" validate:"min=0"`
	QuotedTotal int64      `json:"quotedTotal"`
	Lines       []lineJSON `json:"lines" validate:"required,min=1,dive"`
}

type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
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
	in := Input{
		Currency:    req.Currency,
		Shipping:    req.Shipping,
		Tax:         req.Tax,
		QuotedTotal: req.QuotedTotal,
	}
	var err error
	if in.BuyerID, err = parseOptUUID(req.BuyerID); err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid buyerId", http.StatusBadRequest, err))
		return
	}
	for i, lj := range req.Lines {
		pid, err := uuid.Parse(lj.ProductID)
		if err != nil {
			common.WriteError(w, lineError("BAD_REQUEST", "invalid productId", http.StatusBadRequest, i, err))
			return
		}
		policy, err := lj.Policy.ToPolicy()
		if err != nil {
			common.WriteError(w, lineError("INVALID_POLICY", err.Error(), http.StatusUnprocessableEntity, i, err))
			return
		}
		li := LineInput{
			ProductID:       pid,
			Quantity:        lj.Quantity,
			SellerAsk:       lj.SellerAsk,
			QuotedUnitPrice: lj.QuotedUnitPrice,
			Policy:          policy,
			ReferralActive:  lj.ReferralActive,
		}
		if li.Who.SellerID, err = parseOptUUID(lj.SellerID); err != nil {
			common.WriteError(w, lineError("BAD_REQUEST", "invalid sellerId", http.StatusBadRequest, i, err))
			return
		}
		if li.Who.AffiliateID, err = parseOptUUID(lj.AffiliateID); err != nil {
			common.WriteError(w, lineError("BAD_REQUEST", "invalid affiliateId", http.StatusBadRequest, i, err))
			return
		}
		if li.Who.FundraiserID, err = parseOptUUID(lj.FundraiserID); err != nil {
			common.WriteError(w, lineError("BAD_REQUEST", "invalid fundraiserId", http.StatusBadRequest, i, err))
			return
		}
		in.Lines = append(in.Lines, li)
	}
	out, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]any{
		"orderId":    out.OrderID.String(),
		"status":     out.Status,
		"total":      out.Total,
		"totalMajor": money.FormatMajor(out.Total),
	})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTotalsMismatch):
		common.WriteError(w, common.NewAppError("TOTALS_MISMATCH", err.Error(), http.StatusConflict, err))
	case errors.Is(err, pricing.ErrInvalidPolicy):
		common.WriteError(w, common.NewAppError("INVALID_POLICY", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, pricing.ErrInvalidAsk):
		common.WriteError(w, common.NewAppError("INVALID_ASK", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, pricing.ErrLedgerMismatch):
		common.WriteError(w, common.NewAppError("LEDGER_MISMATCH", "ledger reconciliation failed", http.StatusInternalServerError, err))
	case errors.Is(err, order.ErrPersistence):
		common.WriteError(w, common.NewAppError("STORE_UNAVAILABLE", "order store unavailable", http.StatusServiceUnavailable, err))
	default:
		common.WriteError(w, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err))
	}
}

func lineError(code, message string, status, line int, err error) *common.AppError {
	return &common.AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
		Details:    map[string]any{"line": line},
	}
}

func parseOptUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
