package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"shopsync/internal/client/shopify"
	"shopsync/internal/config"
	"shopsync/internal/models"
	"shopsync/internal/repository"
)

// Source is the upstream read boundary, satisfied by *shopify.Client.
type Source interface {
	ListOrders(ctx context.Context, q shopify.ListQuery) ([]shopify.Order, string, error)
	ListCustomers(ctx context.Context, q shopify.ListQuery) ([]shopify.Customer, string, error)
	ListProducts(ctx context.Context, q shopify.ListQuery) ([]shopify.Product, string, error)
}

type SyncService struct {
	Store  repository.Store
	Source Source
	Logger *zap.Logger
	Config config.SyncConfig
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusAborted   = "aborted"
)

type ResourceResult struct {
	Resource  string     `json:"resource"`
	Status    string     `json:"status"`
	Pages     int        `json:"pages"`
	Records   int        `json:"records"`
	Watermark *time.Time `json:"watermark,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type CycleReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Results    []ResourceResult `json:"results"`
}

// RunCycle drives one extraction->load cycle per resource, in order. One
// resource failing never aborts the others; a resource whose lease is held
// elsewhere is skipped. The whole cycle runs under the configured wall-clock
// budget, and resources left over when it expires report as aborted.
func (s *SyncService) RunCycle(ctx context.Context, resources []string) (CycleReport, error) {
	if len(resources) == 0 {
		resources = s.Config.Resources
	}
	resources, err := normalizeResources(resources)
	if err != nil {
		return CycleReport{}, err
	}
	if s.Config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.CycleTimeout)
		defer cancel()
	}

	report := CycleReport{StartedAt: time.Now().UTC()}
	for _, resource := range resources {
		if ctx.Err() != nil {
			report.Results = append(report.Results, ResourceResult{
				Resource: resource,
				Status:   StatusAborted,
				Error:    "cycle budget exhausted",
			})
			continue
		}
		report.Results = append(report.Results, s.syncResource(ctx, resource))
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func (s *SyncService) syncResource(ctx context.Context, resource string) ResourceResult {
	result := ResourceResult{Resource: resource}

	owner := uuid.NewString()
	acquired, err := s.Store.AcquireLease(ctx, resource, owner, s.leaseTTL())
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}
	if !acquired {
		if s.Logger != nil {
			s.Logger.Info("sync skipped, lease held", zap.String("resource", resource))
		}
		result.Status = StatusSkipped
		result.Error = "another cycle holds the lease"
		return result
	}
	defer func() {
		if err := s.Store.ReleaseLease(context.WithoutCancel(ctx), resource, owner); err != nil && s.Logger != nil {
			s.Logger.Warn("lease release failed", zap.String("resource", resource), zap.Error(err))
		}
	}()

	since, err := s.resumePoint(ctx, resource)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	pages, records, watermark, err := s.runPages(ctx, resource, since, nil)
	result.Pages = pages
	result.Records = records
	result.Watermark = watermark
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("sync failed", zap.String("resource", resource), zap.Error(err))
		}
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}
	result.Status = StatusSucceeded
	if s.Logger != nil {
		s.Logger.Info("sync ok",
			zap.String("resource", resource),
			zap.Int("pages", pages),
			zap.Int("records", records),
		)
	}
	return result
}

// resumePoint returns the stored watermark, or the configured start date for a
// resource never synced before.
func (s *SyncService) resumePoint(ctx context.Context, resource string) (time.Time, error) {
	state, err := s.Store.GetSyncState(ctx, resource)
	if err != nil {
		return time.Time{}, err
	}
	if state != nil && state.WatermarkTS != nil {
		return *state.WatermarkTS, nil
	}
	if s.Config.StartDate == "" {
		return time.Time{}, nil
	}
	start, err := time.Parse("2006-01-02", s.Config.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_date %q: %w", s.Config.StartDate, err)
	}
	return start.UTC(), nil
}

// runPages pulls pages from since (inclusive) until the upstream is drained or
// the page budget runs out. Every page commits its upserts and the cursor
// advance in one transaction; a partial failure leaves the cursor at the last
// committed page, and re-running from there re-delivers rows the idempotent
// upsert absorbs.
func (s *SyncService) runPages(ctx context.Context, resource string, since time.Time, until *time.Time) (int, int, *time.Time, error) {
	limit := s.Config.PageLimit
	if limit <= 0 {
		limit = 250
	}
	maxPages := s.Config.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}

	var (
		pages     int
		records   int
		watermark *time.Time
		pageInfo  string
	)
	for page := 0; page < maxPages; page++ {
		query := shopify.ListQuery{Limit: limit, PageInfo: pageInfo}
		if pageInfo == "" {
			sinceCopy := since
			query.UpdatedAtMin = &sinceCopy
			query.UpdatedAtMax = until
		}

		batch, err := s.fetchWithBackoff(ctx, resource, query)
		if err != nil {
			extractErr := &ExtractionError{Resource: resource, Watermark: &since, Err: err}
			s.writeSyncError(ctx, resource, extractErr)
			return pages, records, watermark, extractErr
		}
		if batch.count == 0 {
			break
		}

		now := time.Now().UTC()
		nextWatermark := maxTime(&since, batch.watermark)
		state := &models.SyncState{
			Resource:      resource,
			WatermarkTS:   nextWatermark,
			Cursor:        strPtr(batch.next),
			LastAttemptAt: &now,
			LastSuccessAt: &now,
			StatsJSON:     statsJSON(map[string]int{"records": batch.count, "page": page + 1}),
		}
		err = s.Store.InTx(ctx, func(tx *gorm.DB) error {
			if err := batch.persist(tx); err != nil {
				return err
			}
			return s.Store.SaveSyncStateTx(ctx, tx, state)
		})
		if err != nil {
			loadErr := &LoadError{Resource: resource, Err: err}
			s.writeSyncError(ctx, resource, loadErr)
			return pages, records, watermark, loadErr
		}

		pages++
		records += batch.count
		watermark = nextWatermark
		if batch.next == "" {
			break
		}
		pageInfo = batch.next
	}
	return pages, records, watermark, nil
}

// pageBatch is one fetched page mapped to rows, with its upsert deferred so it
// runs inside the page transaction.
type pageBatch struct {
	count     int
	watermark *time.Time
	next      string
	persist   func(tx *gorm.DB) error
}

func (s *SyncService) fetchWithBackoff(ctx context.Context, resource string, query shopify.ListQuery) (*pageBatch, error) {
	maxRetries := s.Config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		batch, err := s.fetchPage(ctx, resource, query)
		if err == nil {
			return batch, nil
		}
		var rateLimited *shopify.RateLimitError
		if !errors.As(err, &rateLimited) {
			return nil, err
		}
		lastErr = err
		backoff := rateLimited.RetryAfter
		if backoff <= 0 {
			backoff = time.Second
		}
		backoff *= time.Duration(1 << attempt)
		if backoff > time.Minute {
			backoff = time.Minute
		}
		if s.Logger != nil {
			s.Logger.Info("rate limited, backing off",
				zap.String("resource", resource),
				zap.Duration("backoff", backoff),
				zap.Int("attempt", attempt+1),
			)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("rate limit retries exhausted: %w", lastErr)
}

func (s *SyncService) fetchPage(ctx context.Context, resource string, query shopify.ListQuery) (*pageBatch, error) {
	now := time.Now().UTC()
	switch resource {
	case ResourceOrders:
		items, next, err := s.Source.ListOrders(ctx, query)
		if err != nil {
			return nil, err
		}
		rows := make([]models.Order, 0, len(items))
		var watermark *time.Time
		for _, item := range items {
			rows = append(rows, orderModel(item, now))
			watermark = maxTime(watermark, item.UpdatedAt)
		}
		return &pageBatch{
			count:     len(rows),
			watermark: watermark,
			next:      next,
			persist: func(tx *gorm.DB) error {
				if err := s.Store.UpsertOrdersTx(ctx, tx, rows); err != nil {
					return err
				}
				return s.scrubErasedOrders(ctx, tx, rows, now)
			},
		}, nil
	case ResourceCustomers:
		items, next, err := s.Source.ListCustomers(ctx, query)
		if err != nil {
			return nil, err
		}
		rows := make([]models.Customer, 0, len(items))
		var watermark *time.Time
		for _, item := range items {
			rows = append(rows, customerModel(item, now))
			watermark = maxTime(watermark, item.UpdatedAt)
		}
		return &pageBatch{
			count:     len(rows),
			watermark: watermark,
			next:      next,
			persist: func(tx *gorm.DB) error {
				if err := s.Store.UpsertCustomersTx(ctx, tx, rows); err != nil {
					return err
				}
				return s.scrubErasedCustomers(ctx, tx, rows, now)
			},
		}, nil
	case ResourceProducts:
		items, next, err := s.Source.ListProducts(ctx, query)
		if err != nil {
			return nil, err
		}
		rows := make([]models.Product, 0, len(items))
		var watermark *time.Time
		for _, item := range items {
			rows = append(rows, productModel(item, now))
			watermark = maxTime(watermark, item.UpdatedAt)
		}
		return &pageBatch{
			count:     len(rows),
			watermark: watermark,
			next:      next,
			persist: func(tx *gorm.DB) error {
				return s.Store.UpsertProductsTx(ctx, tx, rows)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported resource: %s", resource)
	}
}

// scrubErasedCustomers keeps erased customers erased across resyncs. It runs
// after the page upsert, inside the same transaction: the upsert has taken the
// row locks, so a redact racing this page either committed its record before
// the check here (and the page scrubs what it just wrote) or blocks on the
// customer row until the page commits (and scrubs the fresh values itself).
func (s *SyncService) scrubErasedCustomers(ctx context.Context, tx *gorm.DB, rows []models.Customer, now time.Time) error {
	if !s.Config.RescrubOnSync || len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	anonymized, err := s.Store.ListAnonymizedCustomerIDsTx(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, id := range anonymized {
		customer, err := s.Store.GetCustomerForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			continue
		}
		scrubCustomer(customer, now)
		if err := s.Store.SaveCustomerTx(ctx, tx, customer); err != nil {
			return err
		}
	}
	return nil
}

// scrubErasedOrders targets only the orders this page delivered; orders
// outside the page were already scrubbed when their customer's record was
// created.
func (s *SyncService) scrubErasedOrders(ctx context.Context, tx *gorm.DB, rows []models.Order, now time.Time) error {
	if !s.Config.RescrubOnSync || len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.CustomerID != nil {
			ids = append(ids, *row.CustomerID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	anonymized, err := s.Store.ListAnonymizedCustomerIDsTx(ctx, tx, ids)
	if err != nil {
		return err
	}
	if len(anonymized) == 0 {
		return nil
	}
	erased := make(map[string]struct{}, len(anonymized))
	for _, id := range anonymized {
		erased[id] = struct{}{}
	}
	for _, row := range rows {
		if row.CustomerID == nil {
			continue
		}
		if _, ok := erased[*row.CustomerID]; !ok {
			continue
		}
		order, err := s.Store.GetOrderForUpdateTx(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		if order == nil {
			continue
		}
		scrubOrder(order, now)
		if err := s.Store.SaveOrderTx(ctx, tx, order); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) writeSyncError(ctx context.Context, resource string, cause error) {
	if err := s.Store.MarkSyncError(context.WithoutCancel(ctx), resource, time.Now().UTC(), cause.Error()); err != nil && s.Logger != nil {
		s.Logger.Warn("record sync error failed", zap.String("resource", resource), zap.Error(err))
	}
}

func (s *SyncService) leaseTTL() time.Duration {
	if s.Config.LeaseTTL > 0 {
		return s.Config.LeaseTTL
	}
	return 15 * time.Minute
}

func statsJSON(stats map[string]int) datatypes.JSON {
	payload, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}
