package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// AnonymizationRecord marks a customer as erased. Once AnonymizedAt is set,
// every PII field on the customer row and its orders has been scrubbed.
// ProcessedEventIDs is the set of webhook IDs already applied; replays of a
// recorded ID are no-ops.
type AnonymizationRecord struct {
	CustomerID        string         `gorm:"primaryKey;type:text;comment:Shopify customer ID"`
	ProcessedEventIDs datatypes.JSON `gorm:"type:jsonb;not null;comment:applied webhook IDs"`
	AnonymizedAt      *time.Time     `gorm:"type:timestamptz;comment:scrub commit time"`
	CreatedAt         time.Time      `gorm:"type:timestamptz;not null;comment:first event time"`
	UpdatedAt         time.Time      `gorm:"type:timestamptz;not null;comment:last event time"`
}

func (AnonymizationRecord) TableName() string {
	return "anonymization_records"
}

func (r *AnonymizationRecord) EventIDs() []string {
	if r == nil || len(r.ProcessedEventIDs) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(r.ProcessedEventIDs, &ids); err != nil {
		return nil
	}
	return ids
}

func (r *AnonymizationRecord) HasEvent(eventID string) bool {
	for _, id := range r.EventIDs() {
		if id == eventID {
			return true
		}
	}
	return false
}

func (r *AnonymizationRecord) AddEvent(eventID string) {
	if r == nil || eventID == "" || r.HasEvent(eventID) {
		return
	}
	ids := append(r.EventIDs(), eventID)
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	r.ProcessedEventIDs = datatypes.JSON(payload)
}
