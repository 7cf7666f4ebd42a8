package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalEvent is the permanent audit row for one crossed milestone.
// Rows are insert-once: an existing goal is never rewritten.
type GoalEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Goal       decimal.Decimal `gorm:"type:numeric(30,10);not null;uniqueIndex"`
	AchievedAt time.Time       `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (GoalEvent) TableName() string {
	return "goal_events"
}
