package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"minco/internal/aggregator"
)

type AggregatorHandler struct {
	Aggregator *aggregator.Aggregator
}

func (h *AggregatorHandler) Register(r *gin.Engine) {
	r.GET("/api/aggregator/status", h.status)
}

type feedStatus struct {
	Feed   string          `json:"feed"`
	Equity decimal.Decimal `json:"equity"`
	Live   decimal.Decimal `json:"live"`
	Status string          `json:"status"`
	At     time.Time       `json:"at"`
}

type aggregatorStatus struct {
	Feeds       []feedStatus               `json:"feeds"`
	Combined    *aggregator.Combined       `json:"combined,omitempty"`
	LastForward *aggregator.ForwardOutcome `json:"lastForward,omitempty"`
}

func (h *AggregatorHandler) status(c *gin.Context) {
	if h.Aggregator == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}

	reports := h.Aggregator.Feeds()
	feeds := make([]feedStatus, 0, len(reports))
	for _, r := range reports {
		feeds = append(feeds, feedStatus{
			Feed:   r.Feed,
			Equity: r.Equity,
			Live:   r.Live,
			Status: r.Status,
			At:     r.At,
		})
	}

	out := aggregatorStatus{Feeds: feeds}
	if combined, ok := h.Aggregator.Combined(); ok {
		out.Combined = &combined
	}
	out.LastForward = h.Aggregator.LastOutcome()

	Ok(c, out, map[string]any{"count": len(feeds)})
}
