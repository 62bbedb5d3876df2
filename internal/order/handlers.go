package order

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beezio/backend-market/internal/common"
	"github.com/beezio/backend-market/internal/money"
)

// Handler exposes read access to persisted payout ledgers.
type Handler struct {
	Rec *Recorder
}

type payoutRowJSON struct {
	ID            string    `json:"id"`
	BeneficiaryID *string   `json:"beneficiaryId,omitempty"`
	Role          string    `json:"role"`
	Amount        int64     `json:"amount"`
	AmountMajor   string    `json:"amountMajor"`
	Memo          string    `json:"memo"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Ledger returns every payout row of an order, adjustments included.
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Rec == nil {
		common.WriteError(w, common.NewAppError("INTERNAL", "order service not configured", http.StatusInternalServerError, nil))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid order id", http.StatusBadRequest, err))
		return
	}
	rows, err := h.Rec.LedgerRows(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			common.WriteError(w, common.NewAppError("PERSISTENCE", "ledger unavailable", http.StatusServiceUnavailable, err))
			return
		}
		common.WriteError(w, err)
		return
	}
	if len(rows) == 0 {
		common.WriteError(w, common.NewAppError("NOT_FOUND", "order has no ledger", http.StatusNotFound, nil))
		return
	}
	out := make([]payoutRowJSON, 0, len(rows))
	var total money.Money
	for _, row := range rows {
		j := payoutRowJSON{
			ID:          row.ID.String(),
			Role:        string(row.Role),
			Amount:      row.Amount,
			AmountMajor: money.FormatMajor(row.Amount),
			Memo:        row.Memo,
			CreatedAt:   row.CreatedAt,
		}
		if row.BeneficiaryID != nil {
			s := row.BeneficiaryID.String()
			j.BeneficiaryID = &s
		}
		out = append(out, j)
		total += row.Amount
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"orderId": id.String(),
		"rows":    out,
		"total":   total,
	})
}
