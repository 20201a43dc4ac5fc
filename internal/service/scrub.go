package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"shopsync/internal/models"
)

// PII keys stripped from the raw payloads alongside the typed columns.
var (
	customerPIIKeys = []string{"email", "first_name", "last_name", "phone", "note", "default_address", "addresses"}
	orderPIIKeys    = []string{"email", "contact_email", "phone", "note", "customer", "billing_address", "shipping_address"}
)

// hashField is the irreversible replacement for a PII value: hex SHA-256 of
// the original. Deterministic, so repeated scrubs of already-scrubbed input
// are detectable in tests and audits.
func hashField(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func hashPtr(value *string) *string {
	if value == nil || *value == "" {
		return value
	}
	hashed := hashField(*value)
	return &hashed
}

// scrubJSON hashes string values and nulls structured values for the given
// keys. Unknown or absent keys are left alone; an unparseable payload is
// replaced wholesale rather than kept.
func scrubJSON(raw datatypes.JSON, keys []string) datatypes.JSON {
	if len(raw) == 0 {
		return raw
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return datatypes.JSON([]byte(`{"redacted":true}`))
	}
	for _, key := range keys {
		val, ok := doc[key]
		if !ok || val == nil {
			continue
		}
		if s, isString := val.(string); isString && s != "" {
			doc[key] = hashField(s)
		} else {
			doc[key] = nil
		}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return datatypes.JSON([]byte(`{"redacted":true}`))
	}
	return datatypes.JSON(payload)
}

func scrubCustomer(customer *models.Customer, now time.Time) {
	if customer == nil {
		return
	}
	customer.Email = hashPtr(customer.Email)
	customer.FirstName = hashPtr(customer.FirstName)
	customer.LastName = hashPtr(customer.LastName)
	customer.Phone = hashPtr(customer.Phone)
	customer.RawJSON = scrubJSON(customer.RawJSON, customerPIIKeys)
	customer.IngestedAt = now
}

func scrubOrder(order *models.Order, now time.Time) {
	if order == nil {
		return
	}
	order.Email = hashPtr(order.Email)
	order.RawJSON = scrubJSON(order.RawJSON, orderPIIKeys)
	order.IngestedAt = now
}
