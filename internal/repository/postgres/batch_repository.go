package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flexiprice/business/scheduler"
	"flexiprice/domain"

	"gorm.io/gorm"
)

type BatchRepository struct {
	DB *gorm.DB
}

var _ scheduler.BatchSource = (*BatchRepository)(nil)

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{DB: db}
}

func (r *BatchRepository) Create(ctx context.Context, batch *domain.InventoryBatch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

func (r *BatchRepository) FindByID(ctx context.Context, id uint64) (domain.InventoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return domain.InventoryBatch{}, fmt.Errorf("context error: %w", err)
	}

	var batch domain.InventoryBatch

	err := r.DB.WithContext(ctx).Preload("Product").First(&batch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InventoryBatch{}, domain.ErrBatchNotFound
		}
		return domain.InventoryBatch{}, fmt.Errorf("failed to find batch: %w", err)
	}

	return batch, nil
}

func (r *BatchRepository) FindAll(ctx context.Context) ([]domain.InventoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var batches []domain.InventoryBatch
	err := r.DB.WithContext(ctx).Preload("Product").Order("expiry_date asc").Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find batches: %w", err)
	}

	return batches, nil
}

func (r *BatchRepository) FindByProduct(ctx context.Context, productID uint64) ([]domain.InventoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var batches []domain.InventoryBatch
	err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("product_id = ?", productID).
		Order("expiry_date asc").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find batches for product: %w", err)
	}

	return batches, nil
}

// FindExpiring returns non-empty batches expiring within thresholdDays,
// soonest first, so a budget-cut recompute cycle has touched the most
// urgent stock already. Already-expired batches are included.
func (r *BatchRepository) FindExpiring(ctx context.Context, thresholdDays int) ([]domain.InventoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, thresholdDays)

	var batches []domain.InventoryBatch
	err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("quantity > 0 AND expiry_date <= ?", cutoff).
		Order("expiry_date asc").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring batches: %w", err)
	}

	return batches, nil
}

func (r *BatchRepository) Update(ctx context.Context, batch *domain.InventoryBatch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Save(batch).Error; err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	return nil
}

func (r *BatchRepository) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.InventoryBatch{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete batch: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrBatchNotFound
	}

	return nil
}
