package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flexiprice/business/experiment"
	"flexiprice/business/pricing"
	"flexiprice/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExperimentRepository struct {
	DB *gorm.DB
}

var (
	_ experiment.AssignmentRepository = (*ExperimentRepository)(nil)
	_ experiment.MetricRepository     = (*ExperimentRepository)(nil)
	_ pricing.AssignmentRepository    = (*ExperimentRepository)(nil)
)

func NewExperimentRepository(db *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{DB: db}
}

func (r *ExperimentRepository) GetAssignment(ctx context.Context, productID uint64) (domain.ExperimentAssignment, bool, error) {
	var assignment domain.ExperimentAssignment

	err := r.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ExperimentAssignment{}, false, nil
	}
	if err != nil {
		return domain.ExperimentAssignment{}, false, fmt.Errorf("failed to find assignment: %w", err)
	}

	return assignment, true, nil
}

// SaveAssignment inserts the assignment; a concurrent insert for the same
// product wins silently, keeping assignments sticky.
func (r *ExperimentRepository) SaveAssignment(ctx context.Context, assignment *domain.ExperimentAssignment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(assignment).Error
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}

	return nil
}

// IncrementMetric upserts one (product, group, bucket) row, adding the
// deltas on conflict. Every call counts one impression.
func (r *ExperimentRepository) IncrementMetric(ctx context.Context, productID uint64, group string, bucket time.Time, conversions int, revenue decimal.Decimal, units int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	metric := domain.ExperimentMetric{
		ProductID:   productID,
		Group:       group,
		Bucket:      bucket,
		Impressions: 1,
		Conversions: int64(conversions),
		Revenue:     revenue,
		Units:       int64(units),
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "exp_group"}, {Name: "bucket"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"impressions": gorm.Expr("experiment_metrics.impressions + 1"),
				"conversions": gorm.Expr("experiment_metrics.conversions + ?", conversions),
				"revenue":     gorm.Expr("experiment_metrics.revenue + ?", revenue),
				"units":       gorm.Expr("experiment_metrics.units + ?", units),
			}),
		}).
		Create(&metric).Error
	if err != nil {
		return fmt.Errorf("failed to record experiment metric: %w", err)
	}

	return nil
}

func (r *ExperimentRepository) SummaryByGroup(ctx context.Context) ([]experiment.GroupSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var summaries []experiment.GroupSummary
	err := r.DB.WithContext(ctx).
		Model(&domain.ExperimentMetric{}).
		Select(`exp_group as "group", sum(impressions) as impressions, sum(conversions) as conversions, sum(revenue) as revenue, sum(units) as units`).
		Group("exp_group").
		Order("exp_group asc").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize experiment metrics: %w", err)
	}

	return summaries, nil
}
