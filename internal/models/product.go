package models

import (
	"time"

	"gorm.io/datatypes"
)

type Product struct {
	ID              string         `gorm:"primaryKey;type:text;comment:Shopify product ID"`
	Title           string         `gorm:"type:text;not null;comment:product title"`
	Handle          *string        `gorm:"type:text;uniqueIndex;comment:URL handle"`
	ProductType     *string        `gorm:"type:text;comment:product type"`
	Vendor          *string        `gorm:"type:text;comment:vendor name"`
	Status          *string        `gorm:"type:text;comment:active|archived|draft"`
	SourceCreatedAt *time.Time     `gorm:"type:timestamptz;comment:created_at upstream"`
	SourceUpdatedAt *time.Time     `gorm:"type:timestamptz;index;comment:updated_at upstream"`
	IngestedAt      time.Time      `gorm:"type:timestamptz;not null;comment:last ingest time"`
	RawJSON         datatypes.JSON `gorm:"type:jsonb;not null;comment:raw payload"`
}

func (Product) TableName() string {
	return "shop_products"
}
