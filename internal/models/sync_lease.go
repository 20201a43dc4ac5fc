package models

import "time"

// SyncLease serializes sync cycles per resource. A cycle holds the lease for
// its duration; a stale lease (expired TTL) can be taken over.
type SyncLease struct {
	Resource   string    `gorm:"primaryKey;type:text;comment:resource type"`
	Owner      string    `gorm:"type:text;not null;comment:holder identity"`
	AcquiredAt time.Time `gorm:"type:timestamptz;not null;comment:acquisition time"`
	ExpiresAt  time.Time `gorm:"type:timestamptz;not null;comment:lease deadline"`
}

func (SyncLease) TableName() string {
	return "sync_leases"
}
