package postgres

import (
	"context"
	"fmt"

	"flexiprice/domain"

	"gorm.io/gorm"
)

type PriceHistoryRepository struct {
	DB *gorm.DB
}

func NewPriceHistoryRepository(db *gorm.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{DB: db}
}

// FindByProduct returns the product's price timeline, newest first.
func (r *PriceHistoryRepository) FindByProduct(ctx context.Context, productID uint64, limit int) ([]domain.PriceHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var history []domain.PriceHistory
	err := r.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at desc").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	return history, nil
}

// DeleteOlderThan trims history rows past the retention window.
func (r *PriceHistoryRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).
		Where("created_at < now() - make_interval(days => ?)", days).
		Delete(&domain.PriceHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to trim price history: %w", res.Error)
	}

	return res.RowsAffected, nil
}
