package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flexiprice/domain"
	"flexiprice/pkg/logger"
)

// BatchRepository contract interface
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.InventoryBatch) error
	FindByID(ctx context.Context, id uint64) (domain.InventoryBatch, error)
	FindAll(ctx context.Context) ([]domain.InventoryBatch, error)
	FindByProduct(ctx context.Context, productID uint64) ([]domain.InventoryBatch, error)
	Update(ctx context.Context, batch *domain.InventoryBatch) error
	Delete(ctx context.Context, id uint64) error
}

type ProductReader interface {
	FindByID(ctx context.Context, id uint64) (domain.Product, error)
}

type batchService struct {
	batchRepo   BatchRepository
	productRepo ProductReader
}

func NewBatchService(batchRepo BatchRepository, productRepo ProductReader) *batchService {
	return &batchService{
		batchRepo:   batchRepo,
		productRepo: productRepo,
	}
}

func (s *batchService) GetAllBatches(ctx context.Context) ([]domain.InventoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	batches, err := s.batchRepo.FindAll(ctx)
	if err != nil {
		logger.Error("failed to find all batches", "error", err)
		return nil, err
	}

	return batches, nil
}

func (s *batchService) GetBatchByID(ctx context.Context, id uint64) (*domain.InventoryBatch, error) {
	if id == 0 {
		return nil, errors.New("invalid batch id")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to find batch by id", "id", id, "error", err)
		return nil, err
	}

	return &batch, nil
}

func (s *batchService) GetBatchesByProduct(ctx context.Context, productID uint64) ([]domain.InventoryBatch, error) {
	if productID == 0 {
		return nil, errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	return s.batchRepo.FindByProduct(ctx, productID)
}

func (s *batchService) CreateBatch(ctx context.Context, batch *domain.InventoryBatch) (*domain.InventoryBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	// Validation
	if batch.ProductID == 0 {
		logger.Error("invalid batch data: product id is required")
		return nil, errors.New("batch product id is required")
	}

	if batch.BatchCode == "" {
		logger.Error("invalid batch data: batch code is required")
		return nil, errors.New("batch code is required")
	}

	if batch.Quantity < 0 {
		logger.Error("invalid batch data: quantity is negative", "batch_code", batch.BatchCode)
		return nil, errors.New("batch quantity must not be negative")
	}

	if batch.ExpiryDate.IsZero() {
		logger.Error("invalid batch data: expiry date is required", "batch_code", batch.BatchCode)
		return nil, errors.New("batch expiry date is required")
	}

	if _, err := s.productRepo.FindByID(ctx, batch.ProductID); err != nil {
		logger.Error("batch references unknown product", "product_id", batch.ProductID)
		return nil, errors.New("batch references unknown product")
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		logger.Error("failed to create batch", "batch_code", batch.BatchCode, "error", err)
		return nil, err
	}

	return batch, nil
}

func (s *batchService) UpdateBatchQuantity(ctx context.Context, id uint64, quantity int) (*domain.InventoryBatch, error) {
	if id == 0 {
		return nil, errors.New("invalid batch id")
	}
	if quantity < 0 {
		return nil, errors.New("batch quantity must not be negative")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	batch.Quantity = quantity
	batch.UpdatedAt = time.Now()

	if err := s.batchRepo.Update(ctx, &batch); err != nil {
		logger.Error("failed to update batch quantity", "id", id, "error", err)
		return nil, err
	}

	return &batch, nil
}

func (s *batchService) DeleteBatch(ctx context.Context, id uint64) error {
	if id == 0 {
		return errors.New("invalid batch id")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return s.batchRepo.Delete(ctx, id)
}
