package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"minco/internal/service"
	"minco/internal/store"
)

func newTestService(t *testing.T) *service.CapitalService {
	t.Helper()
	return &service.CapitalService{
		Store: &store.Multi{
			Backends:      []store.Backend{store.NewMemory()},
			InitialEquity: decimal.NewFromInt(15),
		},
		InitialEquity: decimal.NewFromInt(15),
		Goals:         []decimal.Decimal{decimal.NewFromInt(20), decimal.NewFromInt(30)},
		SaveInterval:  time.Second,
	}
}

func newTestRouter(h interface{ Register(*gin.Engine) }) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateRejectsBadSecret(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(&CapitalHandler{Capital: svc, Secret: "letmein"})

	w := doJSON(t, r, http.MethodPost, "/api/capital", `{"secret":"wrong","amount":42}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", w.Code)
	}

	// The reject must not have mutated the ledger.
	w = doJSON(t, r, http.MethodGet, "/api/capital", "")
	var snap struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Amount.Cmp(decimal.NewFromInt(15)) != 0 {
		t.Fatalf("amount=%s want untouched 15", snap.Amount)
	}
}

func TestUpdateRejectsBadAmount(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(&CapitalHandler{Capital: svc, Secret: "letmein"})

	for _, body := range []string{
		`{"secret":"letmein"}`,
		`{"secret":"letmein","amount":"abc"}`,
		`{"secret":"letmein","amount":-5}`,
	} {
		w := doJSON(t, r, http.MethodPost, "/api/capital", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d want 400", body, w.Code)
		}
	}
}

func TestUpdateReturnsSnapshotAndGoals(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(&CapitalHandler{Capital: svc, Secret: "letmein"})

	w := doJSON(t, r, http.MethodPost, "/api/capital", `{"secret":"letmein","amount":22,"tradingStatus":"2 longs"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d want 200, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Amount        decimal.Decimal `json:"amount"`
			TradingStatus string          `json:"tradingStatus"`
			NewGoals      int             `json:"newGoals"`
			Persisted     bool            `json:"persisted"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("code=%d", resp.Code)
	}
	if resp.Data.Amount.Cmp(decimal.NewFromInt(22)) != 0 {
		t.Fatalf("amount=%s want 22", resp.Data.Amount)
	}
	if resp.Data.TradingStatus != "2 longs" {
		t.Fatalf("status=%q", resp.Data.TradingStatus)
	}
	if resp.Data.NewGoals != 1 {
		t.Fatalf("newGoals=%d want 1 (crossed 20)", resp.Data.NewGoals)
	}
	if !resp.Data.Persisted {
		t.Fatalf("persisted=false with a working backend")
	}
}

func TestLiveSyncFallbackRead(t *testing.T) {
	r := newTestRouter(&LiveSyncHandler{InitialEquity: decimal.NewFromInt(15)})

	w := doJSON(t, r, http.MethodGet, "/api/live-sync", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d want 200 even when degraded", w.Code)
	}
	var snap struct {
		TradingStatus string `json:"tradingStatus"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != "fallback" || snap.TradingStatus != "Connection Error - Using Fallback" {
		t.Fatalf("snapshot=%+v want fallback markers", snap)
	}
}

func TestLiveSyncUpdateMapsFieldNames(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(&LiveSyncHandler{Capital: svc})

	w := doJSON(t, r, http.MethodPost, "/api/live-sync", `{"equity":18,"liveProfit":0.5,"status":"1 long"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Amount          decimal.Decimal `json:"amount"`
			LiveTradeProfit decimal.Decimal `json:"liveTradeProfit"`
			TradingStatus   string          `json:"tradingStatus"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Amount.Cmp(decimal.NewFromInt(18)) != 0 {
		t.Fatalf("amount=%s want 18", resp.Data.Amount)
	}
	if resp.Data.LiveTradeProfit.Cmp(decimal.NewFromFloat(0.5)) != 0 {
		t.Fatalf("live=%s want 0.5", resp.Data.LiveTradeProfit)
	}
	if resp.Data.TradingStatus != "1 long" {
		t.Fatalf("status=%q", resp.Data.TradingStatus)
	}
}

func TestLiveSyncUpdateRequiresEquity(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(&LiveSyncHandler{Capital: svc})

	w := doJSON(t, r, http.MethodPost, "/api/live-sync", `{"status":"1 long"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", w.Code)
	}
}
