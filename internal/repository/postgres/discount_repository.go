package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flexiprice/business/pricing"
	"flexiprice/business/scheduler"
	"flexiprice/domain"

	"gorm.io/gorm"
)

type DiscountRepository struct {
	DB *gorm.DB
}

var (
	_ pricing.DiscountRepository = (*DiscountRepository)(nil)
	_ scheduler.Maintainer       = (*DiscountRepository)(nil)
)

func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{DB: db}
}

// SaveNewCurrent inserts a new priced result and supersedes the prior
// current one for the same batch, in one transaction. Old rows are closed
// with valid_to, never deleted. The supersede is a conditional update on
// (id, version); losing the race returns pricing.ErrVersionConflict so the
// caller can retry against the fresh row.
func (r *DiscountRepository) SaveNewCurrent(ctx context.Context, discount *domain.BatchDiscount) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row is always a fresh insert; drop any identity left over
		// from an earlier rolled-back attempt.
		discount.ID = 0

		var prior domain.BatchDiscount
		err := tx.Where("batch_id = ? AND valid_to IS NULL", discount.BatchID).
			First(&prior).Error
		hasPrior := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read current discount: %w", err)
		}

		discount.Version = 1
		if hasPrior {
			discount.Version = prior.Version + 1
		}
		if discount.ValidFrom.IsZero() {
			discount.ValidFrom = time.Now()
		}

		// Close the prior row before inserting: the partial unique index
		// on (batch_id) WHERE valid_to IS NULL is checked per statement,
		// so two open rows must never coexist inside the transaction.
		if hasPrior {
			res := tx.Model(&domain.BatchDiscount{}).
				Where("id = ? AND version = ? AND valid_to IS NULL", prior.ID, prior.Version).
				Update("valid_to", discount.ValidFrom)
			if res.Error != nil {
				return fmt.Errorf("failed to supersede discount: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return pricing.ErrVersionConflict
			}
		}

		if err := tx.Create(discount).Error; err != nil {
			return fmt.Errorf("failed to insert discount: %w", err)
		}

		history := domain.PriceHistory{
			ProductID:   batchProductID(tx, discount.BatchID),
			Price:       discount.ComputedPrice,
			DiscountPct: discount.DiscountPct,
			Reason:      discount.Reason,
			CreatedAt:   discount.ValidFrom,
		}
		if history.ProductID != 0 {
			if err := tx.Create(&history).Error; err != nil {
				return fmt.Errorf("failed to record price history: %w", err)
			}
		}

		return nil
	})
}

func batchProductID(tx *gorm.DB, batchID uint64) uint64 {
	var productID uint64
	tx.Model(&domain.InventoryBatch{}).
		Select("product_id").
		Where("id = ?", batchID).
		Scan(&productID)
	return productID
}

func (r *DiscountRepository) FindCurrent(ctx context.Context, batchID uint64) (domain.BatchDiscount, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatchDiscount{}, false, fmt.Errorf("context error: %w", err)
	}

	var discount domain.BatchDiscount
	err := r.DB.WithContext(ctx).
		Where("batch_id = ? AND valid_to IS NULL", batchID).
		First(&discount).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BatchDiscount{}, false, nil
	}
	if err != nil {
		return domain.BatchDiscount{}, false, fmt.Errorf("failed to find current discount: %w", err)
	}

	return discount, true, nil
}

// History returns all priced results for a batch, newest first.
func (r *DiscountRepository) History(ctx context.Context, batchID uint64, limit int) ([]domain.BatchDiscount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var discounts []domain.BatchDiscount
	err := r.DB.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("version desc").
		Limit(limit).
		Find(&discounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load discount history: %w", err)
	}

	return discounts, nil
}

// ExpireStale closes out current priced results whose batches have passed
// their expiry timestamp. Rows are superseded, not deleted.
func (r *DiscountRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).Model(&domain.BatchDiscount{}).
		Where("valid_to IS NULL AND expires_at IS NOT NULL AND expires_at < ?", now).
		Update("valid_to", now)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire stale discounts: %w", res.Error)
	}

	return res.RowsAffected, nil
}
