package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Order struct {
	ID              string           `gorm:"primaryKey;type:text;comment:Shopify order ID"`
	CustomerID      *string          `gorm:"type:text;index;comment:owning customer ID"`
	Name            *string          `gorm:"type:text;comment:order name (#1001)"`
	Email           *string          `gorm:"type:text;comment:checkout email"`
	Currency        *string          `gorm:"type:text;comment:ISO currency code"`
	TotalPrice      *decimal.Decimal `gorm:"type:numeric(20,2);comment:order total"`
	FinancialStatus *string          `gorm:"type:text;comment:payment status"`
	ProcessedAt     *time.Time       `gorm:"type:timestamptz;comment:processed_at upstream"`
	SourceCreatedAt *time.Time       `gorm:"type:timestamptz;comment:created_at upstream"`
	SourceUpdatedAt *time.Time       `gorm:"type:timestamptz;index;comment:updated_at upstream"`
	IngestedAt      time.Time        `gorm:"type:timestamptz;not null;comment:last ingest time"`
	RawJSON         datatypes.JSON   `gorm:"type:jsonb;not null;comment:raw payload"`
}

func (Order) TableName() string {
	return "shop_orders"
}
