package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"minco/internal/aggregator"
	"minco/internal/notify"
)

// WebhookHandler receives Telegram bot updates carrying per-pair equity
// reports and feeds them into the aggregator. Equity messages look like
//
//	PAIR:EURUSD|EQUITY:123.45|DAILY:1.20|LIVE:0.50|STATUS:2 longs
//
// PAIR and EQUITY are mandatory; the rest is optional. Anything that is
// not an equity message is acknowledged and dropped.
type WebhookHandler struct {
	Aggregator *aggregator.Aggregator
	Telegram   *notify.TelegramSender
	ChatID     string
	Logger     *zap.Logger
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/webhook/telegram", h.receive)
}

type telegramUpdate struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

func (h *WebhookHandler) receive(c *gin.Context) {
	if h.Aggregator == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	var upd telegramUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		Error(c, http.StatusBadRequest, "invalid telegram update", nil)
		return
	}

	text := strings.TrimSpace(upd.Message.Text)
	if !isEquityMessage(text) {
		// Commands, chatter, edits: acknowledge so Telegram stops retrying.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	report, err := parseEquityMessage(text)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("malformed equity message", zap.Error(err))
		}
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.Aggregator.Record(report); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("feed report received",
			zap.String("feed", report.Feed),
			zap.String("equity", report.Equity.String()))
	}

	h.ack(upd.Message.Chat.ID, report)

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"pair":     report.Feed,
		"feeds":    len(h.Aggregator.Feeds()),
	})
}

// ack confirms receipt back into the originating chat. Best effort and
// off the request path.
func (h *WebhookHandler) ack(chatID int64, r aggregator.Report) {
	if h.Telegram == nil {
		return
	}
	target := h.ChatID
	if target == "" && chatID != 0 {
		target = strconv.FormatInt(chatID, 10)
	}
	if target == "" {
		return
	}

	msg := fmt.Sprintf(
		"✅ <b>Data Received (%s)</b>\n"+
			"💰 Equity: <b>%s€</b>\n"+
			"📈 Daily: <b>%s€</b>\n"+
			"📊 Live: <b>%s€</b>\n"+
			"🎯 Status: <code>%s</code>",
		r.Feed,
		r.Equity.StringFixed(2),
		signedFixed(r.Daily),
		signedFixed(r.Live),
		r.Status,
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Telegram.Send(ctx, target, msg); err != nil && h.Logger != nil {
			h.Logger.Warn("telegram ack failed", zap.Error(err))
		}
	}()
}

func signedFixed(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.Sign() >= 0 {
		return "+" + s
	}
	return s
}

func isEquityMessage(text string) bool {
	return strings.Contains(text, "EQUITY:")
}

func parseEquityMessage(text string) (aggregator.Report, error) {
	var r aggregator.Report
	var haveEquity bool

	for _, seg := range strings.Split(text, "|") {
		key, value, ok := strings.Cut(seg, ":")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "PAIR":
			r.Feed = value
		case "EQUITY":
			d, err := decimal.NewFromString(value)
			if err != nil {
				return aggregator.Report{}, fmt.Errorf("invalid EQUITY value %q", value)
			}
			r.Equity = d
			haveEquity = true
		case "DAILY":
			if d, err := decimal.NewFromString(value); err == nil {
				r.Daily = d
			}
		case "LIVE":
			if d, err := decimal.NewFromString(value); err == nil {
				r.Live = d
			}
		case "STATUS":
			r.Status = value
		}
	}

	if r.Feed == "" {
		return aggregator.Report{}, fmt.Errorf("equity message missing PAIR segment")
	}
	if !haveEquity {
		return aggregator.Report{}, fmt.Errorf("equity message missing EQUITY segment")
	}
	return r, nil
}
