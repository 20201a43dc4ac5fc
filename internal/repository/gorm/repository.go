package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsync/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- domain rows -------------------------------------------------------------

// lwwGuard restricts an upsert to rows whose incoming source_updated_at is not
// older than the stored one; ties favor the incoming row. Out-of-order
// re-deliveries therefore never clobber newer data.
func lwwGuard(table string) clause.Where {
	return clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: table + ".source_updated_at IS NULL OR EXCLUDED.source_updated_at >= " + table + ".source_updated_at"},
	}}
}

func (s *Store) UpsertOrdersTx(ctx context.Context, tx *gorm.DB, items []models.Order) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id", "name", "email", "currency", "total_price",
			"financial_status", "processed_at", "source_created_at",
			"source_updated_at", "ingested_at", "raw_json",
		}),
		Where: lwwGuard("shop_orders"),
	}).Create(&items).Error
}

func (s *Store) UpsertCustomersTx(ctx context.Context, tx *gorm.DB, items []models.Customer) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "first_name", "last_name", "phone", "state",
			"orders_count", "total_spent", "source_created_at",
			"source_updated_at", "ingested_at", "raw_json",
		}),
		Where: lwwGuard("shop_customers"),
	}).Create(&items).Error
}

func (s *Store) UpsertProductsTx(ctx context.Context, tx *gorm.DB, items []models.Product) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "handle", "product_type", "vendor", "status",
			"source_created_at", "source_updated_at", "ingested_at", "raw_json",
		}),
		Where: lwwGuard("shop_products"),
	}).Create(&items).Error
}

// --- sync cursor -------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, resource string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).Where("resource = ?", resource).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	if tx == nil || state == nil {
		return nil
	}
	// GREATEST keeps the stored watermark when a replayed page carries an
	// older one; the cursor never moves backwards.
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"watermark_ts":    gorm.Expr("GREATEST(COALESCE(EXCLUDED.watermark_ts, sync_state.watermark_ts), COALESCE(sync_state.watermark_ts, EXCLUDED.watermark_ts))"),
			"cursor":          gorm.Expr("EXCLUDED.cursor"),
			"last_success_at": gorm.Expr("EXCLUDED.last_success_at"),
			"last_attempt_at": gorm.Expr("EXCLUDED.last_attempt_at"),
			"last_error":      gorm.Expr("EXCLUDED.last_error"),
			"stats_json":      gorm.Expr("EXCLUDED.stats_json"),
		}),
	}).Create(state).Error
}

func (s *Store) MarkSyncError(ctx context.Context, resource string, attemptAt time.Time, message string) error {
	if s == nil || s.db == nil {
		return nil
	}
	state := &models.SyncState{
		Resource:      resource,
		LastAttemptAt: &attemptAt,
		LastError:     &message,
	}
	// Attempt/error bookkeeping only; the watermark and cursor stay put.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_attempt_at": gorm.Expr("EXCLUDED.last_attempt_at"),
			"last_error":      gorm.Expr("EXCLUDED.last_error"),
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("resource asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// --- resource lease ----------------------------------------------------------

func (s *Store) AcquireLease(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	now := time.Now().UTC()
	lease := models.SyncLease{
		Resource:   resource,
		Owner:      owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"owner":       gorm.Expr("EXCLUDED.owner"),
			"acquired_at": gorm.Expr("EXCLUDED.acquired_at"),
			"expires_at":  gorm.Expr("EXCLUDED.expires_at"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "sync_leases.expires_at < ?", Vars: []interface{}{now}},
		}},
	}).Create(&lease)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ReleaseLease(ctx context.Context, resource, owner string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("resource = ? AND owner = ?", resource, owner).
		Delete(&models.SyncLease{}).Error
}

// --- anonymization -----------------------------------------------------------

// ListAnonymizedCustomerIDsTx runs inside the loader's page transaction,
// after the page upsert. Any record committed before this statement is seen
// under READ COMMITTED, and FOR SHARE keeps the seen records from being
// deleted underneath the scrub that follows. A redact arriving mid-page for a
// customer the page touched blocks on the row lock the upsert took instead.
func (s *Store) ListAnonymizedCustomerIDsTx(ctx context.Context, tx *gorm.DB, customerIDs []string) ([]string, error) {
	if tx == nil || len(customerIDs) == 0 {
		return nil, nil
	}
	var ids []string
	if err := tx.WithContext(ctx).
		Model(&models.AnonymizationRecord{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("customer_id IN ?", customerIDs).
		Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetAnonymizationForUpdateTx returns the customer's record locked FOR UPDATE,
// creating an empty one first if absent. The row lock serializes concurrent
// redact events for the same customer.
func (s *Store) GetAnonymizationForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) (*models.AnonymizationRecord, error) {
	if tx == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	seed := models.AnonymizationRecord{
		CustomerID:        customerID,
		ProcessedEventIDs: datatypes.JSON([]byte("[]")),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var rec models.AnonymizationRecord
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) SaveAnonymizationTx(ctx context.Context, tx *gorm.DB, rec *models.AnonymizationRecord) error {
	if tx == nil || rec == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(rec).Error
}

func (s *Store) GetCustomerForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) (*models.Customer, error) {
	if tx == nil {
		return nil, nil
	}
	var customer models.Customer
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", customerID).
		First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) SaveCustomerTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	if tx == nil || customer == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(customer).Error
}

func (s *Store) GetOrderForUpdateTx(ctx context.Context, tx *gorm.DB, orderID string) (*models.Order, error) {
	if tx == nil {
		return nil, nil
	}
	var order models.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListOrdersByCustomerForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) ([]models.Order, error) {
	if tx == nil {
		return nil, nil
	}
	var orders []models.Order
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) SaveOrderTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil || order == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(order).Error
}
