package shopify

import (
	"encoding/json"
	"time"
)

// The list types decode only the fields the loader types out into columns.
// Raw carries the undecoded upstream document for the jsonb column.

type Order struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Currency        string     `json:"currency"`
	TotalPrice      string     `json:"total_price"`
	FinancialStatus string     `json:"financial_status"`
	Customer        *Customer  `json:"customer"`
	ProcessedAt     *time.Time `json:"processed_at"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

type Customer struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	State       string     `json:"state"`
	OrdersCount int        `json:"orders_count"`
	TotalSpent  string     `json:"total_spent"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle"`
	ProductType string     `json:"product_type"`
	Vendor      string     `json:"vendor"`
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

// ListQuery selects an incremental window. After the first page, Shopify
// forbids filter params alongside page_info, so PageInfo supersedes the
// time bounds when set.
type ListQuery struct {
	Limit        int
	UpdatedAtMin *time.Time
	UpdatedAtMax *time.Time
	PageInfo     string
}
