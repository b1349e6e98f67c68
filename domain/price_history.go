package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CREATE TABLE public.price_history (
//     id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     product_id   BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
//     price        NUMERIC(12,2) NOT NULL,
//     discount_pct NUMERIC(5,2) NOT NULL,
//     reason       TEXT,
//     created_at   TIMESTAMPTZ DEFAULT NOW()
// );

// PriceHistory is a snapshot of a product's computed price, appended
// whenever a new priced result is stored, for trend analysis.
type PriceHistory struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   uint64          `gorm:"column:product_id;not null;index" json:"product_id"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	DiscountPct decimal.Decimal `gorm:"column:discount_pct;type:numeric(5,2);not null" json:"discount_pct"`
	Reason      string          `gorm:"column:reason;type:text" json:"reason"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}
