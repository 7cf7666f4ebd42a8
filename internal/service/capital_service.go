package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"minco/internal/ledger"
	"minco/internal/store"
)

// ErrInvalidAmount rejects updates whose equity is missing, unparsable or
// negative. Nothing is mutated or persisted on this path.
var ErrInvalidAmount = errors.New("amount must be a finite non-negative number")

// UpdateInput is one validated-at-the-edge equity report.
type UpdateInput struct {
	Amount              decimal.Decimal
	LiveProfit          *decimal.Decimal
	Status              *string
	ReportedDailyProfit *decimal.Decimal
}

// UpdateResult reports the side effects of an update beyond the snapshot.
type UpdateResult struct {
	NewGoals   int  `json:"newGoals"`
	Persisted  bool `json:"persisted"`
	DayChanged bool `json:"dayChanged"`
}

// DebugInfo mirrors the audit block the read endpoint has always exposed.
type DebugInfo struct {
	HasEverReceivedData  bool            `json:"hasEverReceivedData"`
	DailyStartEquity     decimal.Decimal `json:"dailyStartEquity"`
	CurrentDay           string          `json:"currentDay"`
	TotalUpdatesReceived int64           `json:"totalUpdatesReceived"`
	SystemStartTime      time.Time       `json:"systemStartTime"`
}

// Snapshot is the read-only projection returned to callers. Maps are
// copies; a caller can never mutate the cached document through one.
type Snapshot struct {
	Amount          decimal.Decimal               `json:"amount"`
	DailyProfit     decimal.Decimal               `json:"dailyProfit"`
	TotalProfit     decimal.Decimal               `json:"totalProfit"`
	LiveTradeProfit decimal.Decimal               `json:"liveTradeProfit"`
	TradingStatus   string                        `json:"tradingStatus"`
	LastUpdate      time.Time                     `json:"lastUpdate"`
	GoalsAchieved   map[string]time.Time          `json:"goalsAchieved"`
	DailyHistory    map[string]ledger.DailyRecord `json:"dailyHistory"`
	DataSource      string                        `json:"dataSource"`
	Debug           DebugInfo                     `json:"debug"`
}

// CapitalService owns the cached ledger document for this process. It is
// constructed once in main and injected into every ingress adapter; the
// mutex serializes document access across concurrent requests.
type CapitalService struct {
	Store         *store.Multi
	Logger        *zap.Logger
	InitialEquity decimal.Decimal
	Goals         []decimal.Decimal
	SaveInterval  time.Duration
	Now           func() time.Time

	mu       sync.Mutex
	doc      *ledger.Document
	lastSave time.Time
}

func (s *CapitalService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CapitalService) saveInterval() time.Duration {
	if s.SaveInterval > 0 {
		return s.SaveInterval
	}
	return 10 * time.Second
}

// ensureDoc lazily loads or initializes the document. Callers hold s.mu.
func (s *CapitalService) ensureDoc(ctx context.Context) {
	if s.doc != nil {
		return
	}
	now := s.now()
	if s.Store != nil {
		if doc, ok := s.Store.Load(ctx, now); ok {
			s.doc = doc
			return
		}
	}
	s.doc = ledger.New(s.InitialEquity, now)
	if s.Logger != nil {
		s.Logger.Info("ledger initialized with defaults",
			zap.String("equity", s.InitialEquity.String()))
	}
}

// saveLocked persists the cached document, best effort. Callers hold s.mu.
func (s *CapitalService) saveLocked(ctx context.Context) bool {
	if s.Store == nil {
		return false
	}
	ok := s.Store.Save(ctx, s.doc)
	if ok {
		s.lastSave = s.now()
	} else if s.Logger != nil {
		s.Logger.Warn("ledger not persisted, all backends failed")
	}
	return ok
}

// Read returns the current snapshot, running day rollover first so a quiet
// account still rolls its baseline at midnight. Persists only when the day
// actually changed.
func (s *CapitalService) Read(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDoc(ctx)

	now := s.now()
	changed := s.doc.Rollover(ledger.DateKey(now))
	s.doc.DailyProfit = s.doc.ComputeDailyProfit()
	if changed {
		s.saveLocked(ctx)
		if s.Logger != nil {
			s.Logger.Info("day rollover",
				zap.String("day", s.doc.CurrentDay),
				zap.String("dailyStartEquity", s.doc.DailyStartEquity.String()))
		}
	}
	return s.snapshotLocked()
}

// Update validates and applies one equity report. Persistence is throttled:
// it happens when the minimum interval elapsed, or unconditionally on a day
// change or a newly achieved goal. A persistence failure never fails the
// update; the in-memory document stays authoritative for this process.
func (s *CapitalService) Update(ctx context.Context, in UpdateInput) (Snapshot, UpdateResult, error) {
	if in.Amount.IsNegative() {
		return Snapshot{}, UpdateResult{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDoc(ctx)

	now := s.now()
	applied := s.doc.Apply(ledger.Update{
		Equity:              in.Amount,
		LiveProfit:          in.LiveProfit,
		Status:              in.Status,
		ReportedDailyProfit: in.ReportedDailyProfit,
	}, s.Goals, now)

	result := UpdateResult{
		NewGoals:   len(applied.NewGoals),
		DayChanged: applied.DayChanged,
	}
	if len(applied.NewGoals) > 0 && s.Logger != nil {
		for _, g := range applied.NewGoals {
			s.Logger.Info("goal achieved", zap.String("goal", g.String()))
		}
	}

	if applied.DayChanged || len(applied.NewGoals) > 0 || now.Sub(s.lastSave) >= s.saveInterval() {
		result.Persisted = s.saveLocked(ctx)
	}

	return s.snapshotLocked(), result, nil
}

// Flush forces a save of the cached document. Used by the periodic cron
// job and on shutdown; a no-op before first access.
func (s *CapitalService) Flush(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return false
	}
	return s.saveLocked(ctx)
}

func (s *CapitalService) snapshotLocked() Snapshot {
	d := s.doc

	goals := make(map[string]time.Time, len(d.GoalsAchieved))
	for k, v := range d.GoalsAchieved {
		goals[k] = v
	}
	history := make(map[string]ledger.DailyRecord, len(d.DailyHistory))
	for k, v := range d.DailyHistory {
		history[k] = *v
	}

	source := "initial"
	if d.HasEverReceivedData {
		source = "persistent"
	}

	return Snapshot{
		Amount:          d.Equity,
		DailyProfit:     d.DailyProfit,
		TotalProfit:     d.TotalProfit(),
		LiveTradeProfit: d.LiveProfit,
		TradingStatus:   d.Status,
		LastUpdate:      d.LastUpdate,
		GoalsAchieved:   goals,
		DailyHistory:    history,
		DataSource:      source,
		Debug: DebugInfo{
			HasEverReceivedData:  d.HasEverReceivedData,
			DailyStartEquity:     d.DailyStartEquity,
			CurrentDay:           d.CurrentDay,
			TotalUpdatesReceived: d.TotalUpdatesReceived,
			SystemStartTime:      d.SystemStartTime,
		},
	}
}
