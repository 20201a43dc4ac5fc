package db

import (
	"shopsync/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Customer{},
		&models.Order{},
		&models.Product{},
		&models.SyncState{},
		&models.SyncLease{},
		&models.AnonymizationRecord{},
	)
}
