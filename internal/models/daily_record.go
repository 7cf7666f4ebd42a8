package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRecordRow is the archived form of one calendar day of equity
// history, written by the history archiver as overflow storage for the
// in-document dailyHistory map.
type DailyRecordRow struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement"`
	Day string `gorm:"type:varchar(10);not null;uniqueIndex"`

	StartEquity decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	EndEquity   decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Profit      decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	IsCurrentDay bool      `gorm:"not null;default:false"`
	LastUpdate   time.Time ``

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (DailyRecordRow) TableName() string {
	return "daily_records"
}
