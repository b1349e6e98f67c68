package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	GroupControl   = "CONTROL"
	GroupMLVariant = "ML_VARIANT"
)

// CREATE TABLE public.experiment_assignments (
//     product_id  BIGINT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
//     exp_group   TEXT NOT NULL,
//     assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
// );

// ExperimentAssignment maps a product to exactly one experiment group.
// The assignment is sticky: once written it is never reassigned.
type ExperimentAssignment struct {
	ProductID  uint64    `gorm:"column:product_id;primaryKey" json:"product_id"`
	Group      string    `gorm:"column:exp_group;not null" json:"group"`
	AssignedAt time.Time `gorm:"column:assigned_at;autoCreateTime" json:"assigned_at"`
}

func (ExperimentAssignment) TableName() string {
	return "experiment_assignments"
}

// CREATE TABLE public.experiment_metrics (
//     product_id  BIGINT NOT NULL,
//     exp_group   TEXT NOT NULL,
//     bucket      DATE NOT NULL,
//     impressions BIGINT NOT NULL DEFAULT 0,
//     conversions BIGINT NOT NULL DEFAULT 0,
//     revenue     NUMERIC(14,2) NOT NULL DEFAULT 0,
//     units       BIGINT NOT NULL DEFAULT 0,
//     PRIMARY KEY (product_id, exp_group, bucket)
// );

// ExperimentMetric holds aggregated counters per product, group and day.
// Reporting only; the pricing engine never reads these.
type ExperimentMetric struct {
	ProductID   uint64          `gorm:"column:product_id;primaryKey" json:"product_id"`
	Group       string          `gorm:"column:exp_group;primaryKey" json:"group"`
	Bucket      time.Time       `gorm:"column:bucket;type:date;primaryKey" json:"bucket"`
	Impressions int64           `gorm:"column:impressions;not null;default:0" json:"impressions"`
	Conversions int64           `gorm:"column:conversions;not null;default:0" json:"conversions"`
	Revenue     decimal.Decimal `gorm:"column:revenue;type:numeric(14,2);not null;default:0" json:"revenue"`
	Units       int64           `gorm:"column:units;not null;default:0" json:"units"`
}

func (ExperimentMetric) TableName() string {
	return "experiment_metrics"
}
