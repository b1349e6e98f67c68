package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CREATE TABLE public.batch_discounts (
//     id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     batch_id       BIGINT NOT NULL REFERENCES inventory_batches(id) ON DELETE CASCADE,
//     computed_price NUMERIC(12,2) NOT NULL,
//     discount_pct   NUMERIC(5,2) NOT NULL,
//     reason         TEXT NOT NULL,
//     valid_from     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//     valid_to       TIMESTAMPTZ,
//     expires_at     TIMESTAMPTZ,
//     ml_recommended BOOLEAN NOT NULL DEFAULT FALSE,
//     version        INTEGER NOT NULL,
//     context        JSONB,
//     created_at     TIMESTAMPTZ DEFAULT NOW()
// );
// CREATE UNIQUE INDEX batch_discounts_current_uq
//     ON batch_discounts (batch_id) WHERE valid_to IS NULL;

// BatchDiscount is a priced result for one inventory batch. A row is
// "current" while valid_to is NULL; recomputation supersedes the prior
// current row instead of updating or deleting it.
type BatchDiscount struct {
	ID            uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID       uint64            `gorm:"column:batch_id;not null;index" json:"batch_id"`
	ComputedPrice decimal.Decimal   `gorm:"column:computed_price;type:numeric(12,2);not null" json:"computed_price"`
	DiscountPct   decimal.Decimal   `gorm:"column:discount_pct;type:numeric(5,2);not null" json:"discount_pct"`
	Reason        string            `gorm:"column:reason;type:text;not null" json:"reason"`
	ValidFrom     time.Time         `gorm:"column:valid_from;not null" json:"valid_from"`
	ValidTo       *time.Time        `gorm:"column:valid_to" json:"valid_to"`
	ExpiresAt     *time.Time        `gorm:"column:expires_at" json:"expires_at"`
	MLRecommended bool              `gorm:"column:ml_recommended;not null;default:false" json:"ml_recommended"`
	Version       int               `gorm:"column:version;not null" json:"version"`
	Context       datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Batch *InventoryBatch `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
}

func (BatchDiscount) TableName() string {
	return "batch_discounts"
}

// IsCurrent reports whether the priced result is still the live one: not
// superseded, and its batch not past expiry. A current row can outlive its
// batch between maintenance passes; readers must not serve it.
func (d BatchDiscount) IsCurrent(now time.Time) bool {
	if d.ValidTo != nil && !d.ValidTo.After(now) {
		return false
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return false
	}
	return true
}
