package gormrepository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopsync/internal/models"
)

// These tests need real row-lock and per-statement visibility semantics, so
// they only run when SS_TEST_DB_DSN points at a Postgres instance.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SS_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("SS_TEST_DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Customer{}, &models.Order{}, &models.AnonymizationRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// An erasure record committed by another session while a page transaction is
// open, after the page upsert, must be visible to that transaction's check.
// This is the interleave where a first redact for a customer races the page
// that delivers the customer's PII.
func TestErasureCommittedDuringOpenPageIsVisible(t *testing.T) {
	db := openTestDB(t)
	store := New(db)
	ctx := context.Background()

	customerID := fmt.Sprintf("itest-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.Where("customer_id = ?", customerID).Delete(&models.AnonymizationRecord{})
		db.Where("id = ?", customerID).Delete(&models.Customer{})
	})

	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	defer tx.Rollback()

	email := "pii@example.com"
	now := time.Now().UTC()
	rows := []models.Customer{{
		ID:         customerID,
		Email:      &email,
		IngestedAt: now,
		RawJSON:    []byte(`{}`),
	}}
	if err := store.UpsertCustomersTx(ctx, tx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Second session: the redact commits while the page transaction is open.
	rec := models.AnonymizationRecord{
		CustomerID:        customerID,
		ProcessedEventIDs: []byte(`["evt-1"]`),
		AnonymizedAt:      &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("commit erasure record: %v", err)
	}

	anonymized, err := store.ListAnonymizedCustomerIDsTx(ctx, tx, []string{customerID})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(anonymized) != 1 || anonymized[0] != customerID {
		t.Fatalf("post-upsert check must see the committed record, got %v", anonymized)
	}

	// The page scrubs its own rows once the check flags them.
	customer, err := store.GetCustomerForUpdateTx(ctx, tx, customerID)
	if err != nil || customer == nil {
		t.Fatalf("load page row: %v %v", customer, err)
	}
	scrubbed := "scrubbed"
	customer.Email = &scrubbed
	if err := store.SaveCustomerTx(ctx, tx, customer); err != nil {
		t.Fatalf("save scrubbed row: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit: %v", err)
	}

	var stored models.Customer
	if err := db.Where("id = ?", customerID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Email == nil || *stored.Email != "scrubbed" {
		t.Fatalf("committed row still carries PII: %v", stored.Email)
	}
}

// The stale-lease takeover is a single atomic statement; two owners can never
// both hold a live lease.
func TestLeaseTakeoverRequiresExpiry(t *testing.T) {
	db := openTestDB(t)
	store := New(db)
	ctx := context.Background()

	resource := fmt.Sprintf("itest-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.Where("resource = ?", resource).Delete(&models.SyncLease{})
	})
	if err := db.AutoMigrate(&models.SyncLease{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	acquired, err := store.AcquireLease(ctx, resource, "owner-a", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("first acquire: %v %v", acquired, err)
	}
	acquired, err = store.AcquireLease(ctx, resource, "owner-b", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if acquired {
		t.Fatalf("live lease must not be taken over")
	}

	if err := db.Model(&models.SyncLease{}).
		Where("resource = ?", resource).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("expire lease: %v", err)
	}
	acquired, err = store.AcquireLease(ctx, resource, "owner-b", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("expired lease should be taken over: %v %v", acquired, err)
	}
}
