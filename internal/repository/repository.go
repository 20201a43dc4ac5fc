package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// Store is the transactional boundary around Postgres. Methods suffixed Tx
// must run inside an InTx callback so batch writes and cursor advances commit
// together.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	UpsertOrdersTx(ctx context.Context, tx *gorm.DB, items []models.Order) error
	UpsertCustomersTx(ctx context.Context, tx *gorm.DB, items []models.Customer) error
	UpsertProductsTx(ctx context.Context, tx *gorm.DB, items []models.Product) error

	GetSyncState(ctx context.Context, resource string) (*models.SyncState, error)
	SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error
	MarkSyncError(ctx context.Context, resource string, attemptAt time.Time, message string) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)

	AcquireLease(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, resource, owner string) error

	ListAnonymizedCustomerIDsTx(ctx context.Context, tx *gorm.DB, customerIDs []string) ([]string, error)
	GetAnonymizationForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) (*models.AnonymizationRecord, error)
	SaveAnonymizationTx(ctx context.Context, tx *gorm.DB, rec *models.AnonymizationRecord) error
	GetCustomerForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) (*models.Customer, error)
	SaveCustomerTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error
	GetOrderForUpdateTx(ctx context.Context, tx *gorm.DB, orderID string) (*models.Order, error)
	ListOrdersByCustomerForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) ([]models.Order, error)
	SaveOrderTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
}
