package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Update carries one validated equity report. Optional fields left nil keep
// their prior values on the document.
type Update struct {
	Equity              decimal.Decimal
	LiveProfit          *decimal.Decimal
	Status              *string
	ReportedDailyProfit *decimal.Decimal
}

// ApplyResult describes what an update changed beyond the document itself.
type ApplyResult struct {
	NewGoals   []decimal.Decimal
	DayChanged bool
}

// Rollover advances the document to today's calendar date. Equity is never
// touched: the previous day's record is finalized, today's baseline becomes
// the carried-forward equity. Returns true when the day actually changed.
func (d *Document) Rollover(today string) bool {
	if d.CurrentDay == today {
		return false
	}

	if d.HasEverReceivedData {
		if prev, ok := d.DailyHistory[d.CurrentDay]; ok {
			prev.EndEquity = d.Equity
			prev.Profit = d.Equity.Sub(prev.StartEquity)
			prev.IsCurrentDay = false
		}
		d.DailyHistory[today] = &DailyRecord{
			StartEquity:  d.Equity,
			EndEquity:    d.Equity,
			IsCurrentDay: true,
		}
	}

	d.DailyStartEquity = d.Equity
	d.CurrentDay = today
	return true
}

// ComputeDailyProfit derives today's profit. It is never taken from a
// caller; see the audit-only ReportedDailyProfit field.
func (d *Document) ComputeDailyProfit() decimal.Decimal {
	if !d.HasEverReceivedData {
		return decimal.Zero
	}
	if rec, ok := d.DailyHistory[d.CurrentDay]; ok {
		return d.Equity.Sub(rec.StartEquity)
	}
	return d.Equity.Sub(d.DailyStartEquity)
}

// RecordGoals marks every ladder threshold newly reached by newEquity.
// A goal is timestamped once and never rewritten; the returned slice keeps
// the ladder's ascending order and is empty when nothing new was crossed.
func (d *Document) RecordGoals(newEquity decimal.Decimal, ladder []decimal.Decimal, now time.Time) []decimal.Decimal {
	var crossed []decimal.Decimal
	for _, g := range ladder {
		if newEquity.Cmp(g) < 0 {
			continue
		}
		key := GoalKey(g)
		if _, done := d.GoalsAchieved[key]; done {
			continue
		}
		d.GoalsAchieved[key] = now.UTC()
		crossed = append(crossed, g)
	}
	return crossed
}

// Apply runs one full update through the engine: first-update seeding, day
// rollover, equity write, goal detection, daily-profit recomputation and
// audit bookkeeping, in that order.
func (d *Document) Apply(u Update, ladder []decimal.Decimal, now time.Time) ApplyResult {
	today := DateKey(now)

	if !d.HasEverReceivedData {
		// First real data point seeds the daily baseline so the first
		// report never shows phantom profit against the default equity.
		d.DailyStartEquity = u.Equity
		d.HasEverReceivedData = true
		d.DailyHistory[today] = &DailyRecord{
			StartEquity:  u.Equity,
			EndEquity:    u.Equity,
			IsCurrentDay: true,
		}
		d.CurrentDay = today
	}

	dayChanged := d.Rollover(today)

	d.Equity = u.Equity
	newGoals := d.RecordGoals(u.Equity, ladder, now)
	d.DailyProfit = d.ComputeDailyProfit()

	if u.LiveProfit != nil {
		d.LiveProfit = *u.LiveProfit
	}
	if u.Status != nil && *u.Status != "" {
		d.Status = *u.Status
	}

	if rec, ok := d.DailyHistory[today]; ok {
		rec.EndEquity = u.Equity
		rec.Profit = d.DailyProfit
		rec.LastUpdate = now.UTC()
		if u.ReportedDailyProfit != nil {
			v := *u.ReportedDailyProfit
			rec.ReportedDailyProfit = &v
		}
	}

	d.TotalUpdatesReceived++
	d.LastUpdate = now.UTC()

	return ApplyResult{NewGoals: newGoals, DayChanged: dayChanged}
}

// LadderFromFloats builds the goal ladder from configuration values,
// dropping non-positive entries and keeping ascending order.
func LadderFromFloats(values []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			continue
		}
		out = append(out, decimal.NewFromFloat(v))
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Cmp(out[j-1]) < 0; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
