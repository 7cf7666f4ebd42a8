package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"minco/internal/ledger"
)

// Multi fans the document out to every backend and loads from the first
// one holding a usable copy. Backend errors degrade, they never propagate:
// Save reports false only when every location refused the write, Load
// reports false only when no location has valid prior state.
type Multi struct {
	Backends []Backend
	Logger   *zap.Logger

	// InitialEquity backfills documents persisted before the field existed.
	InitialEquity decimal.Decimal
}

// Load walks the backends in priority order and returns the first stored
// document that decodes and validates. Corrupted or partial content is
// skipped with a warning, the same as absence.
func (m *Multi) Load(ctx context.Context, now time.Time) (*ledger.Document, bool) {
	for _, b := range m.Backends {
		data, found, err := b.Load(ctx)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("store load failed", zap.String("backend", b.Name()), zap.Error(err))
			}
			continue
		}
		if !found {
			continue
		}
		var doc ledger.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("store content unparsable, skipping", zap.String("backend", b.Name()), zap.Error(err))
			}
			continue
		}
		if !doc.Valid() {
			if m.Logger != nil {
				m.Logger.Warn("store content invalid, skipping", zap.String("backend", b.Name()))
			}
			continue
		}
		doc.Normalize(m.InitialEquity, now)
		if m.Logger != nil {
			m.Logger.Info("ledger loaded", zap.String("backend", b.Name()))
		}
		return &doc, true
	}
	return nil, false
}

// Save writes the document everywhere it can. True means at least one
// backend accepted the write.
func (m *Multi) Save(ctx context.Context, doc *ledger.Document) bool {
	data, err := json.Marshal(doc)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("ledger marshal failed", zap.Error(err))
		}
		return false
	}
	ok := false
	for _, b := range m.Backends {
		if err := b.Save(ctx, data); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("store save failed", zap.String("backend", b.Name()), zap.Error(err))
			}
			continue
		}
		ok = true
	}
	return ok
}
