package service

import (
	"fmt"
	"time"
)

// ExtractionError: upstream read failed for one resource; the cycle carries on
// with the next resource and the cursor stays put.
type ExtractionError struct {
	Resource  string
	Watermark *time.Time
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Watermark != nil {
		return fmt.Sprintf("extract %s from %s: %v", e.Resource, e.Watermark.Format(time.RFC3339), e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Resource, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// LoadError: the store rejected a page; the whole page transaction rolled back.
type LoadError struct {
	Resource string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// AnonymizationError: the scrub transaction failed and was rolled back; safe
// to retry thanks to the processed-event check.
type AnonymizationError struct {
	CustomerID string
	Err        error
}

func (e *AnonymizationError) Error() string {
	return fmt.Sprintf("anonymize customer %s: %v", e.CustomerID, e.Err)
}

func (e *AnonymizationError) Unwrap() error { return e.Err }
