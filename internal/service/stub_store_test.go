package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

// stubStore is a test-only in-memory implementation of repository.Store. InTx
// holds the lock for the whole callback, which mirrors the per-key
// serialization the real store gets from row locks.
type stubStore struct {
	mu sync.Mutex

	customers map[string]models.Customer
	orders    map[string]models.Order
	products  map[string]models.Product
	states    map[string]models.SyncState
	leases    map[string]models.SyncLease
	anonymize map[string]models.AnonymizationRecord

	txErr      error
	upsertErr  error
	scrubCount int

	// afterUpsert fires once the page rows are written, before the erasure
	// check runs. Tests use it to commit a record at that exact point.
	afterUpsert func()
}

func newStubStore() *stubStore {
	return &stubStore{
		customers: map[string]models.Customer{},
		orders:    map[string]models.Order{},
		products:  map[string]models.Product{},
		states:    map[string]models.SyncState{},
		leases:    map[string]models.SyncLease{},
		anonymize: map[string]models.AnonymizationRecord{},
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

// lwwApplies mirrors the ON CONFLICT guard: stored without a source time is
// always replaced; otherwise the incoming row must not be older.
func lwwApplies(stored, incoming *time.Time) bool {
	if stored == nil {
		return true
	}
	return incoming != nil && !incoming.Before(*stored)
}

func (s *stubStore) UpsertOrdersTx(ctx context.Context, tx *gorm.DB, items []models.Order) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, item := range items {
		if existing, ok := s.orders[item.ID]; ok && !lwwApplies(existing.SourceUpdatedAt, item.SourceUpdatedAt) {
			continue
		}
		s.orders[item.ID] = item
	}
	if s.afterUpsert != nil {
		s.afterUpsert()
	}
	return nil
}

func (s *stubStore) UpsertCustomersTx(ctx context.Context, tx *gorm.DB, items []models.Customer) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, item := range items {
		if existing, ok := s.customers[item.ID]; ok && !lwwApplies(existing.SourceUpdatedAt, item.SourceUpdatedAt) {
			continue
		}
		s.customers[item.ID] = item
	}
	if s.afterUpsert != nil {
		s.afterUpsert()
	}
	return nil
}

func (s *stubStore) UpsertProductsTx(ctx context.Context, tx *gorm.DB, items []models.Product) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, item := range items {
		if existing, ok := s.products[item.ID]; ok && !lwwApplies(existing.SourceUpdatedAt, item.SourceUpdatedAt) {
			continue
		}
		s.products[item.ID] = item
	}
	return nil
}

func (s *stubStore) GetSyncState(ctx context.Context, resource string) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[resource]
	if !ok {
		return nil, nil
	}
	copied := state
	return &copied, nil
}

func (s *stubStore) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	stored, ok := s.states[state.Resource]
	next := *state
	if ok && stored.WatermarkTS != nil {
		// GREATEST: the watermark never regresses.
		if next.WatermarkTS == nil || next.WatermarkTS.Before(*stored.WatermarkTS) {
			next.WatermarkTS = stored.WatermarkTS
		}
	}
	s.states[state.Resource] = next
	return nil
}

func (s *stubStore) MarkSyncError(ctx context.Context, resource string, attemptAt time.Time, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[resource]
	state.Resource = resource
	state.LastAttemptAt = &attemptAt
	state.LastError = &message
	s.states[resource] = state
	return nil
}

func (s *stubStore) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncState, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, state)
	}
	return out, nil
}

func (s *stubStore) AcquireLease(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if lease, ok := s.leases[resource]; ok && lease.ExpiresAt.After(now) {
		return false, nil
	}
	s.leases[resource] = models.SyncLease{
		Resource:   resource,
		Owner:      owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	return true, nil
}

func (s *stubStore) ReleaseLease(ctx context.Context, resource, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lease, ok := s.leases[resource]; ok && lease.Owner == owner {
		delete(s.leases, resource)
	}
	return nil
}

func (s *stubStore) ListAnonymizedCustomerIDsTx(ctx context.Context, tx *gorm.DB, customerIDs []string) ([]string, error) {
	var out []string
	for _, id := range customerIDs {
		if _, ok := s.anonymize[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *stubStore) GetAnonymizationForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) (*models.AnonymizationRecord, error) {
	rec, ok := s.anonymize[customerID]
	if !ok {
		now := time.Now().UTC()
		rec = models.AnonymizationRecord{
			CustomerID:        customerID,
			ProcessedEventIDs: []byte("[]"),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		s.anonymize[customerID] = rec
	}
	copied := rec
	return &copied, nil
}

func (s *stubStore) SaveAnonymizationTx(ctx context.Context, tx *gorm.DB, rec *models.AnonymizationRecord) error {
	s.anonymize[rec.CustomerID] = *rec
	return nil
}

func (s *stubStore) GetCustomerForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) (*models.Customer, error) {
	customer, ok := s.customers[customerID]
	if !ok {
		return nil, nil
	}
	copied := customer
	return &copied, nil
}

func (s *stubStore) SaveCustomerTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error {
	s.scrubCount++
	s.customers[customer.ID] = *customer
	return nil
}

func (s *stubStore) GetOrderForUpdateTx(ctx context.Context, tx *gorm.DB, orderID string) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := order
	return &copied, nil
}

func (s *stubStore) ListOrdersByCustomerForUpdateTx(ctx context.Context, tx *gorm.DB, customerID string) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.CustomerID != nil && *order.CustomerID == customerID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *stubStore) SaveOrderTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	s.orders[order.ID] = *order
	return nil
}
