package models

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerBlob is the durable copy of the serialized ledger document, one row
// per document key.
type LedgerBlob struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Key   string         `gorm:"type:varchar(120);not null;uniqueIndex"`
	Value datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (LedgerBlob) TableName() string {
	return "ledger_blobs"
}
