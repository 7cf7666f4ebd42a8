package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"minco/internal/service"
)

// LiveSyncHandler is the MT5-facing compatibility surface. The EA sends
// equity/liveProfit/status field names; everything else in the body is
// ignored. Reads degrade to a safe fallback snapshot instead of erroring
// so the dashboard keeps rendering.
type LiveSyncHandler struct {
	Capital       *service.CapitalService
	Logger        *zap.Logger
	InitialEquity decimal.Decimal
}

func (h *LiveSyncHandler) Register(r *gin.Engine) {
	g := r.Group("/api/live-sync")
	g.GET("", h.read)
	g.POST("", h.update)
}

func (h *LiveSyncHandler) read(c *gin.Context) {
	if h.Capital == nil {
		h.fallback(c, "capital service unavailable")
		return
	}
	snap := h.Capital.Read(c.Request.Context())
	c.JSON(http.StatusOK, capitalSnapshot{
		Snapshot:  snap,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// fallback keeps the read path alive with safe defaults when the service
// cannot answer.
func (h *LiveSyncHandler) fallback(c *gin.Context, reason string) {
	if h.Logger != nil {
		h.Logger.Warn("live-sync degraded to fallback", zap.String("reason", reason))
	}
	now := time.Now().UTC()
	c.JSON(http.StatusOK, capitalSnapshot{
		Snapshot: service.Snapshot{
			Amount:        h.InitialEquity,
			TradingStatus: "Connection Error - Using Fallback",
			LastUpdate:    now,
			GoalsAchieved: map[string]time.Time{},
			DataSource:    "fallback",
		},
		Status:    "fallback",
		Timestamp: now,
	})
}

type liveSyncRequest struct {
	Secret      string           `json:"secret"`
	Equity      *decimal.Decimal `json:"equity"`
	LiveProfit  *decimal.Decimal `json:"liveProfit"`
	Status      *string          `json:"status"`
	DailyProfit *decimal.Decimal `json:"dailyProfit"`
}

func (h *LiveSyncHandler) update(c *gin.Context) {
	if h.Capital == nil {
		Error(c, http.StatusInternalServerError, "capital service unavailable", nil)
		return
	}
	var req liveSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body: expected {equity, liveProfit?, status?, dailyProfit?}", nil)
		return
	}
	if req.Equity == nil {
		Error(c, http.StatusBadRequest, "equity is required", nil)
		return
	}

	var status *string
	if req.Status != nil && *req.Status != "" {
		status = req.Status
	}
	snap, result, err := h.Capital.Update(c.Request.Context(), service.UpdateInput{
		Amount:              *req.Equity,
		LiveProfit:          req.LiveProfit,
		Status:              status,
		ReportedDailyProfit: req.DailyProfit,
	})
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, updateCapitalResponse{Snapshot: snap, UpdateResult: result}, nil)
}
