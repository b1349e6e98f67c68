package domain

import (
	"time"
)

// CREATE TABLE public.inventory_batches (
//     id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     product_id  BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
//     batch_code  TEXT,
//     quantity    INTEGER NOT NULL,
//     expiry_date DATE NOT NULL,
//     created_at  TIMESTAMPTZ DEFAULT NOW(),
//     updated_at  TIMESTAMPTZ
// );

type InventoryBatch struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  uint64    `gorm:"column:product_id;not null;index" json:"product_id"`
	BatchCode  string    `gorm:"column:batch_code;type:text" json:"batch_code"`
	Quantity   int       `gorm:"column:quantity;not null" json:"quantity"`
	ExpiryDate time.Time `gorm:"column:expiry_date;type:date;not null;index" json:"expiry_date"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (InventoryBatch) TableName() string {
	return "inventory_batches"
}

// DaysToExpiry is the whole number of calendar days from now until the batch
// expires. Negative when the batch is already past its expiry date.
func (b InventoryBatch) DaysToExpiry(now time.Time) int {
	expiry := time.Date(
		b.ExpiryDate.Year(), b.ExpiryDate.Month(), b.ExpiryDate.Day(),
		0, 0, 0, 0, time.UTC,
	)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return int(expiry.Sub(today).Hours() / 24)
}
