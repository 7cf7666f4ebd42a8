package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"minco/internal/repository"
	"minco/internal/service"
)

// CapitalHandler serves the ledger's read and update surface.
type CapitalHandler struct {
	Capital *service.CapitalService
	Repo    repository.Repository
	Secret  string
}

func (h *CapitalHandler) Register(r *gin.Engine) {
	g := r.Group("/api/capital")
	g.GET("", h.read)
	g.POST("", h.update)
	g.GET("/history", h.history)
}

// capitalSnapshot is the flat read shape the dashboard and the MT5 side
// both consume.
type capitalSnapshot struct {
	service.Snapshot
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *CapitalHandler) read(c *gin.Context) {
	if h.Capital == nil {
		Error(c, http.StatusInternalServerError, "capital service unavailable", nil)
		return
	}
	snap := h.Capital.Read(c.Request.Context())
	c.JSON(http.StatusOK, capitalSnapshot{
		Snapshot:  snap,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

type updateCapitalRequest struct {
	Secret          string           `json:"secret"`
	Amount          *decimal.Decimal `json:"amount"`
	LiveTradeProfit *decimal.Decimal `json:"liveTradeProfit"`
	TradingStatus   *string          `json:"tradingStatus"`
}

type updateCapitalResponse struct {
	service.Snapshot
	service.UpdateResult
}

func (h *CapitalHandler) update(c *gin.Context) {
	if h.Capital == nil {
		Error(c, http.StatusInternalServerError, "capital service unavailable", nil)
		return
	}
	var req updateCapitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: expected {secret, amount, liveTradeProfit?, tradingStatus?}", nil)
		return
	}
	if h.Secret == "" || req.Secret != h.Secret {
		Error(c, http.StatusUnauthorized, "invalid secret", nil)
		return
	}
	if req.Amount == nil {
		Error(c, http.StatusBadRequest, "amount is required", nil)
		return
	}

	snap, result, err := h.Capital.Update(c.Request.Context(), service.UpdateInput{
		Amount:     *req.Amount,
		LiveProfit: req.LiveTradeProfit,
		Status:     req.TradingStatus,
	})
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, updateCapitalResponse{Snapshot: snap, UpdateResult: result}, nil)
}

type dailyRecordItem struct {
	Day          string          `json:"day"`
	StartEquity  decimal.Decimal `json:"startEquity"`
	EndEquity    decimal.Decimal `json:"endEquity"`
	Profit       decimal.Decimal `json:"profit"`
	IsCurrentDay bool            `json:"isCurrentDay"`
	LastUpdate   time.Time       `json:"lastUpdate"`
}

func (h *CapitalHandler) history(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "archive unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 90)

	var since *time.Time
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be YYYY-MM-DD", nil)
			return
		}
		since = &t
	}
	asc := strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")

	rows, err := h.Repo.ListDailyRecords(c.Request.Context(), repository.ListDailyRecordsParams{
		Since: since,
		Limit: limit,
		Asc:   asc,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}

	items := make([]dailyRecordItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, dailyRecordItem{
			Day:          r.Day,
			StartEquity:  r.StartEquity,
			EndEquity:    r.EndEquity,
			Profit:       r.Profit,
			IsCurrentDay: r.IsCurrentDay,
			LastUpdate:   r.LastUpdate,
		})
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func intQuery(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
