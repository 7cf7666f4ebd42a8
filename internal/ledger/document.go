// Package ledger holds the single-account equity document and the pure
// state transitions over it: day rollover, daily profit, milestone goals.
// No I/O happens here; persistence and transport live elsewhere.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateKey renders a timestamp as the UTC calendar date used to key
// dailyHistory and currentDay.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GoalKey is the canonical map key for a goal threshold.
func GoalKey(g decimal.Decimal) string {
	return g.String()
}

// DailyRecord is one calendar day of equity history. The current day's
// record is mutated in place until rollover finalizes it.
type DailyRecord struct {
	StartEquity decimal.Decimal `json:"startEquity"`
	EndEquity   decimal.Decimal `json:"endEquity"`
	Profit      decimal.Decimal `json:"profit"`
	// ReportedDailyProfit keeps the value the feed claimed, for audit only.
	// The engine's own computation is always authoritative.
	ReportedDailyProfit *decimal.Decimal `json:"reportedDailyProfit,omitempty"`
	LastUpdate          time.Time        `json:"lastUpdate"`
	IsCurrentDay        bool             `json:"isCurrentDay"`
}

// Document is the singleton ledger state for one trading account.
type Document struct {
	Equity           decimal.Decimal `json:"equity"`
	DailyStartEquity decimal.Decimal `json:"dailyStartEquity"`
	CurrentDay       string          `json:"currentDay"`
	DailyProfit      decimal.Decimal `json:"dailyProfit"`
	LiveProfit       decimal.Decimal `json:"liveProfit"`
	Status           string          `json:"status"`

	// HasEverReceivedData gates the first-update seeding path: until a real
	// update arrives, dailyProfit is forced to zero and defaults are not
	// treated as trading history.
	HasEverReceivedData bool `json:"hasEverReceivedData"`

	DailyHistory  map[string]*DailyRecord `json:"dailyHistory"`
	GoalsAchieved map[string]time.Time    `json:"goalsAchieved"`

	InitialEquity        decimal.Decimal `json:"initialEquity"`
	TotalUpdatesReceived int64           `json:"totalUpdatesReceived"`
	LastUpdate           time.Time       `json:"lastUpdate"`
	SystemStartTime      time.Time       `json:"systemStartTime"`
}

// New returns a default-initialized document for a deployment that has
// never received data.
func New(initialEquity decimal.Decimal, now time.Time) *Document {
	return &Document{
		Equity:           initialEquity,
		DailyStartEquity: initialEquity,
		CurrentDay:       DateKey(now),
		Status:           "No positions",
		DailyHistory:     map[string]*DailyRecord{},
		GoalsAchieved:    map[string]time.Time{},
		InitialEquity:    initialEquity,
		SystemStartTime:  now.UTC(),
	}
}

// Normalize fills in fields that may be absent in documents persisted by
// older versions. Unknown persisted fields are dropped by the decoder;
// missing ones fall back to usable defaults here.
func (d *Document) Normalize(initialEquity decimal.Decimal, now time.Time) {
	if d.DailyHistory == nil {
		d.DailyHistory = map[string]*DailyRecord{}
	}
	if d.GoalsAchieved == nil {
		d.GoalsAchieved = map[string]time.Time{}
	}
	if d.CurrentDay == "" {
		d.CurrentDay = DateKey(now)
	}
	if d.InitialEquity.IsZero() {
		d.InitialEquity = initialEquity
	}
	if d.SystemStartTime.IsZero() {
		d.SystemStartTime = now.UTC()
	}
	if d.Status == "" {
		d.Status = "No positions"
	}
}

// Valid reports whether a decoded document is usable as prior state.
// Anything that fails here is treated as "no prior state" by the loader.
func (d *Document) Valid() bool {
	if d == nil {
		return false
	}
	if d.CurrentDay != "" {
		if _, err := time.Parse("2006-01-02", d.CurrentDay); err != nil {
			return false
		}
	}
	if d.Equity.IsNegative() {
		return false
	}
	return true
}

// TotalProfit is equity relative to the deployment's initial baseline.
func (d *Document) TotalProfit() decimal.Decimal {
	return d.Equity.Sub(d.InitialEquity)
}
