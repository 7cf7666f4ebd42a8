package gormrepository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"minco/internal/models"
	"minco/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertDailyRecords(ctx context.Context, items []models.DailyRecordRow) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"start_equity", "end_equity", "profit", "is_current_day", "last_update", "updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) ListDailyRecords(ctx context.Context, params repository.ListDailyRecordsParams) ([]models.DailyRecordRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.DailyRecordRow{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("day >= ?", params.Since.UTC().Format("2006-01-02"))
	}
	order := "day DESC"
	if params.Asc {
		order = "day ASC"
	}
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 365
	}
	var items []models.DailyRecordRow
	if err := query.Order(order).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertGoalEventIfAbsent(ctx context.Context, item *models.GoalEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "goal"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ListGoalEvents(ctx context.Context) ([]models.GoalEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.GoalEvent
	if err := s.db.WithContext(ctx).Order("goal ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
