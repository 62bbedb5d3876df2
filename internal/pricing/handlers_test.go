package pricing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func newHandler() *Handler {
	return &Handler{Validate: validator.New(), Log: zerolog.Nop()}
}

const policyBody = `{
	"affiliatePercent": "0.20",
	"platformPercent": "0.15",
	"processorPercent": "0.029",
	"processorFixed": 30,
	"referralOverridePercent": "0.05",
	"lowPriceSurcharge": 100,
	"lowPriceThreshold": 2000
}`

func TestQuoteEndpoint(t *testing.T) {
	h := newHandler()
	body := `{"sellerAsk": 10000, "policy": ` + policyBody + `}`
	rr := httptest.NewRecorder()
	h.Quote(rr, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			FinalPrice  int64 `json:"finalPrice"`
			LedgerTotal int64 `json:"ledgerTotal"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.FinalPrice != 16151 {
		t.Fatalf("finalPrice = %d, want 16151", resp.Data.FinalPrice)
	}
	if resp.Data.LedgerTotal != 16151 {
		t.Fatalf("ledgerTotal = %d, want 16151", resp.Data.LedgerTotal)
	}
}

func TestInverseEndpoint(t *testing.T) {
	h := newHandler()
	body := `{"finalPrice": 16151, "policy": ` + policyBody + `}`
	rr := httptest.NewRecorder()
	h.Inverse(rr, httptest.NewRequest(http.MethodPost, "/quotes/inverse", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			SellerAsk int64 `json:"sellerAsk"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.SellerAsk != 10000 {
		t.Fatalf("sellerAsk = %d, want 10000", resp.Data.SellerAsk)
	}
}

func TestQuoteEndpointRejectsBadPolicy(t *testing.T) {
	h := newHandler()
	body := `{"sellerAsk": 10000, "policy": {
		"affiliatePercent": "0.60",
		"platformPercent": "0.40",
		"processorPercent": "0.029"
	}}`
	rr := httptest.NewRecorder()
	h.Quote(rr, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestInverseEndpointAmbiguous(t *testing.T) {
	h := newHandler()
	body := `{"finalPrice": 25, "policy": ` + policyBody + `}`
	rr := httptest.NewRecorder()
	h.Inverse(rr, httptest.NewRequest(http.MethodPost, "/quotes/inverse", strings.NewReader(body)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "AMBIGUOUS_INVERSE") {
		t.Fatalf("expected AMBIGUOUS_INVERSE code, got %s", rr.Body.String())
	}
}

func TestQuoteEndpointRejectsGarbage(t *testing.T) {
	h := newHandler()
	rr := httptest.NewRecorder()
	h.Quote(rr, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader("{not json")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
