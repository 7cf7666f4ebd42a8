package store

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"minco/internal/models"
)

// DB is the durable backend: the document serialized into one sqlite row.
type DB struct {
	Gorm *gorm.DB
	Key  string
}

func NewDB(gdb *gorm.DB, key string) *DB {
	return &DB{Gorm: gdb, Key: key}
}

func (s *DB) Name() string { return "db" }

func (s *DB) Load(ctx context.Context) ([]byte, bool, error) {
	if s == nil || s.Gorm == nil {
		return nil, false, nil
	}
	var row models.LedgerBlob
	err := s.Gorm.WithContext(ctx).Where("key = ?", s.Key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Value), true, nil
}

func (s *DB) Save(ctx context.Context, data []byte) error {
	if s == nil || s.Gorm == nil {
		return nil
	}
	row := models.LedgerBlob{Key: s.Key, Value: datatypes.JSON(data)}
	return s.Gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
