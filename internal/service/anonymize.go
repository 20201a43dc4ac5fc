package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopsync/internal/repository"
)

// AnonymizeService applies GDPR erasure: irreversible field-level scrubbing of
// a customer and their orders, exactly once per customer, idempotent per
// webhook event.
type AnonymizeService struct {
	Store  repository.Store
	Logger *zap.Logger
}

// Anonymize runs one transaction: lock the customer's anonymization record
// (creating it first if absent), no-op if eventID was already applied, scrub
// on the first event ever, then record the event. Two guarantees come from
// the locks: the record's FOR UPDATE serializes concurrent events for the
// same customer once the record exists, and the FOR UPDATE on the customer
// row makes a first event wait behind any in-flight sync page touching that
// customer, whose own post-upsert check then covers the other ordering. A
// customer not yet synced still gets a record so the loader scrubs the late
// arrival. Any failure rolls everything back and is safe to retry.
func (a *AnonymizeService) Anonymize(ctx context.Context, customerID, eventID string) error {
	if customerID == "" {
		return &AnonymizationError{CustomerID: customerID, Err: fmt.Errorf("empty customer id")}
	}
	if eventID == "" {
		return &AnonymizationError{CustomerID: customerID, Err: fmt.Errorf("empty event id")}
	}

	var duplicate bool
	err := a.Store.InTx(ctx, func(tx *gorm.DB) error {
		rec, err := a.Store.GetAnonymizationForUpdateTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if rec.HasEvent(eventID) {
			duplicate = true
			return nil
		}

		now := time.Now().UTC()
		if rec.AnonymizedAt == nil {
			customer, err := a.Store.GetCustomerForUpdateTx(ctx, tx, customerID)
			if err != nil {
				return err
			}
			if customer != nil {
				scrubCustomer(customer, now)
				if err := a.Store.SaveCustomerTx(ctx, tx, customer); err != nil {
					return err
				}
			}
			orders, err := a.Store.ListOrdersByCustomerForUpdateTx(ctx, tx, customerID)
			if err != nil {
				return err
			}
			for i := range orders {
				scrubOrder(&orders[i], now)
				if err := a.Store.SaveOrderTx(ctx, tx, &orders[i]); err != nil {
					return err
				}
			}
			rec.AnonymizedAt = &now
		}

		rec.AddEvent(eventID)
		rec.UpdatedAt = now
		return a.Store.SaveAnonymizationTx(ctx, tx, rec)
	})
	if err != nil {
		return &AnonymizationError{CustomerID: customerID, Err: err}
	}
	if a.Logger != nil {
		if duplicate {
			a.Logger.Info("anonymization replayed, no-op",
				zap.String("customer_id", customerID),
				zap.String("event_id", eventID),
			)
		} else {
			a.Logger.Info("anonymization applied",
				zap.String("customer_id", customerID),
				zap.String("event_id", eventID),
			)
		}
	}
	return nil
}
