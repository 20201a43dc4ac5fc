package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState is the per-resource extraction cursor. WatermarkTS only moves
// forward; it is written in the same transaction as the page it guards.
type SyncState struct {
	Resource      string         `gorm:"primaryKey;type:text;comment:resource type"`
	WatermarkTS   *time.Time     `gorm:"type:timestamptz;comment:updated_at high-water mark"`
	Cursor        *string        `gorm:"type:text;comment:in-flight page_info token"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz;comment:last successful page"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz;comment:last attempt"`
	LastError     *string        `gorm:"type:text;comment:last error message"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb;comment:last cycle stats"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
