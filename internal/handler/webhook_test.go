package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"minco/internal/aggregator"
)

func telegramBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"message": map[string]any{
			"chat": map[string]any{"id": 1234},
			"text": text,
		},
	})
	return string(b)
}

func newWebhookAggregator() *aggregator.Aggregator {
	return &aggregator.Aggregator{
		Debounce: time.Second,
		FeedTTL:  10 * time.Minute,
		Schedule: func(d time.Duration, fn func()) func() bool {
			return func() bool { return false }
		},
	}
}

func TestWebhookRecordsEquityMessage(t *testing.T) {
	agg := newWebhookAggregator()
	r := newTestRouter(&WebhookHandler{Aggregator: agg})

	w := doJSON(t, r, http.MethodPost, "/webhook/telegram",
		telegramBody("PAIR:EURUSD|EQUITY:123.45|DAILY:1.20|LIVE:0.50|STATUS:2 longs"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	feeds := agg.Feeds()
	if len(feeds) != 1 || feeds[0].Feed != "EURUSD" {
		t.Fatalf("feeds=%+v", feeds)
	}
	if feeds[0].Equity.Cmp(decimal.NewFromFloat(123.45)) != 0 {
		t.Fatalf("equity=%s", feeds[0].Equity)
	}
	if feeds[0].Status != "2 longs" {
		t.Fatalf("status=%q", feeds[0].Status)
	}
}

func TestWebhookAcksNonEquityMessage(t *testing.T) {
	agg := newWebhookAggregator()
	r := newTestRouter(&WebhookHandler{Aggregator: agg})

	w := doJSON(t, r, http.MethodPost, "/webhook/telegram", telegramBody("/start"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d want 200 ack", w.Code)
	}
	if len(agg.Feeds()) != 0 {
		t.Fatalf("non-equity message was recorded")
	}
}

func TestWebhookRejectsMalformedEquityMessage(t *testing.T) {
	agg := newWebhookAggregator()
	r := newTestRouter(&WebhookHandler{Aggregator: agg})

	for _, text := range []string{
		"EQUITY:123.45|DAILY:1.20",        // no PAIR
		"PAIR:EURUSD|EQUITY:not-a-number", // bad value
	} {
		w := doJSON(t, r, http.MethodPost, "/webhook/telegram", telegramBody(text))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("text %q: status=%d want 400", text, w.Code)
		}
	}
}

func TestParseEquityMessageStatusKeepsColons(t *testing.T) {
	r, err := parseEquityMessage("PAIR:GOLD|EQUITY:50|STATUS:hedged: 2 legs")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Status != "hedged: 2 legs" {
		t.Fatalf("status=%q", r.Status)
	}
	if !r.Daily.IsZero() || !r.Live.IsZero() {
		t.Fatalf("optional fields should default to zero")
	}
}
