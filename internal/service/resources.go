package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"shopsync/internal/client/shopify"
	"shopsync/internal/models"
)

// The closed set of resource types this pipeline knows how to sync. Dispatch
// is by tag, not payload shape.
const (
	ResourceOrders    = "orders"
	ResourceCustomers = "customers"
	ResourceProducts  = "products"
)

func knownResource(resource string) bool {
	switch resource {
	case ResourceOrders, ResourceCustomers, ResourceProducts:
		return true
	}
	return false
}

func normalizeResources(resources []string) ([]string, error) {
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if !knownResource(r) {
			return nil, fmt.Errorf("unsupported resource: %s", r)
		}
		out = append(out, r)
	}
	return out, nil
}

func orderModel(item shopify.Order, now time.Time) models.Order {
	var customerID *string
	if item.Customer != nil && item.Customer.ID != 0 {
		id := strconv.FormatInt(item.Customer.ID, 10)
		customerID = &id
	}
	return models.Order{
		ID:              strconv.FormatInt(item.ID, 10),
		CustomerID:      customerID,
		Name:            strPtr(item.Name),
		Email:           strPtr(item.Email),
		Currency:        strPtr(item.Currency),
		TotalPrice:      decimalPtr(item.TotalPrice),
		FinancialStatus: strPtr(item.FinancialStatus),
		ProcessedAt:     item.ProcessedAt,
		SourceCreatedAt: item.CreatedAt,
		SourceUpdatedAt: item.UpdatedAt,
		IngestedAt:      now,
		RawJSON:         rawJSON(item.Raw),
	}
}

func customerModel(item shopify.Customer, now time.Time) models.Customer {
	return models.Customer{
		ID:              strconv.FormatInt(item.ID, 10),
		Email:           strPtr(item.Email),
		FirstName:       strPtr(item.FirstName),
		LastName:        strPtr(item.LastName),
		Phone:           strPtr(item.Phone),
		State:           strPtr(item.State),
		OrdersCount:     item.OrdersCount,
		TotalSpent:      decimalPtr(item.TotalSpent),
		SourceCreatedAt: item.CreatedAt,
		SourceUpdatedAt: item.UpdatedAt,
		IngestedAt:      now,
		RawJSON:         rawJSON(item.Raw),
	}
}

func productModel(item shopify.Product, now time.Time) models.Product {
	return models.Product{
		ID:              strconv.FormatInt(item.ID, 10),
		Title:           item.Title,
		Handle:          strPtr(item.Handle),
		ProductType:     strPtr(item.ProductType),
		Vendor:          strPtr(item.Vendor),
		Status:          strPtr(item.Status),
		SourceCreatedAt: item.CreatedAt,
		SourceUpdatedAt: item.UpdatedAt,
		IngestedAt:      now,
		RawJSON:         rawJSON(item.Raw),
	}
}

func rawJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func decimalPtr(s string) *decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	val, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &val
}

func maxTime(a *time.Time, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || b.Before(*a) {
		return a
	}
	return b
}
