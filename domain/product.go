package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CREATE TABLE public.products (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     sku         TEXT NOT NULL UNIQUE,
//     name        TEXT NOT NULL,
//     description TEXT,
//     category    TEXT,
//     base_price  NUMERIC(12,2) NOT NULL,
//     created_at  TIMESTAMPTZ DEFAULT NOW(),
//     updated_at  TIMESTAMPTZ
// );

type Product struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU         string          `gorm:"column:sku;type:text;not null;uniqueIndex" json:"sku"`
	Name        string          `gorm:"column:name;type:text;not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Category    string          `gorm:"column:category;type:text;index" json:"category"`
	BasePrice   decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null" json:"base_price"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
