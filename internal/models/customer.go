package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Customer struct {
	ID              string           `gorm:"primaryKey;type:text;comment:Shopify customer ID"`
	Email           *string          `gorm:"type:text;index;comment:customer email"`
	FirstName       *string          `gorm:"type:text;comment:first name"`
	LastName        *string          `gorm:"type:text;comment:last name"`
	Phone           *string          `gorm:"type:text;comment:phone number"`
	State           *string          `gorm:"type:text;comment:account state"`
	OrdersCount     int              `gorm:"not null;default:0;comment:lifetime order count"`
	TotalSpent      *decimal.Decimal `gorm:"type:numeric(20,2);comment:lifetime spend"`
	SourceCreatedAt *time.Time       `gorm:"type:timestamptz;comment:created_at upstream"`
	SourceUpdatedAt *time.Time       `gorm:"type:timestamptz;index;comment:updated_at upstream"`
	IngestedAt      time.Time        `gorm:"type:timestamptz;not null;comment:last ingest time"`
	RawJSON         datatypes.JSON   `gorm:"type:jsonb;not null;comment:raw payload"`
}

func (Customer) TableName() string {
	return "shop_customers"
}
