package repository

import (
	"context"
	"time"

	"minco/internal/models"
)

// Repository is the archive storage behind the history archiver and the
// history read endpoint.
type Repository interface {
	UpsertDailyRecords(ctx context.Context, items []models.DailyRecordRow) error
	ListDailyRecords(ctx context.Context, params ListDailyRecordsParams) ([]models.DailyRecordRow, error)

	// InsertGoalEventIfAbsent keeps goal rows write-once: an existing goal
	// is left untouched, timestamp included.
	InsertGoalEventIfAbsent(ctx context.Context, item *models.GoalEvent) error
	ListGoalEvents(ctx context.Context) ([]models.GoalEvent, error)
}

type ListDailyRecordsParams struct {
	Since *time.Time
	Limit int
	Asc   bool
}
