package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"minco/internal/models"
	"minco/internal/repository"
)

// HistoryArchiver copies the in-document daily history and goal trail into
// sqlite tables. The document map stays the hot copy; the archive survives
// it and serves the history endpoint for ranges the map no longer holds.
type HistoryArchiver struct {
	Capital *CapitalService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (s *HistoryArchiver) RunOnce(ctx context.Context) error {
	if s == nil || s.Capital == nil || s.Repo == nil {
		return nil
	}
	snap := s.Capital.Read(ctx)

	rows := make([]models.DailyRecordRow, 0, len(snap.DailyHistory))
	for day, rec := range snap.DailyHistory {
		rows = append(rows, models.DailyRecordRow{
			Day:          day,
			StartEquity:  rec.StartEquity,
			EndEquity:    rec.EndEquity,
			Profit:       rec.Profit,
			IsCurrentDay: rec.IsCurrentDay,
			LastUpdate:   rec.LastUpdate,
		})
	}
	if err := s.Repo.UpsertDailyRecords(ctx, rows); err != nil {
		return err
	}

	for key, at := range snap.GoalsAchieved {
		goal, err := decimal.NewFromString(key)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skipping unparsable goal key", zap.String("key", key))
			}
			continue
		}
		if err := s.Repo.InsertGoalEventIfAbsent(ctx, &models.GoalEvent{
			Goal:       goal,
			AchievedAt: at,
		}); err != nil {
			return err
		}
	}

	if s.Logger != nil {
		s.Logger.Debug("history archived",
			zap.Int("days", len(rows)),
			zap.Int("goals", len(snap.GoalsAchieved)))
	}
	return nil
}
