package product

import (
	"context"
	"errors"
	"fmt"

	"flexiprice/domain"
	"flexiprice/pkg/logger"
)

// ProductRepository contract interface
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uint64) (domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uint64) error
}

type productService struct {
	productRepo ProductRepository
}

func NewProductService(productRepo ProductRepository) *productService {
	return &productService{
		productRepo: productRepo,
	}
}

func (s *productService) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get all products")
		return nil, fmt.Errorf("context error: %w", err)
	}

	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		logger.Error("failed to find all products", "error", err)
		return nil, err
	}

	return products, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uint64) (*domain.Product, error) {
	if id == 0 {
		logger.Error("invalid product id")
		return nil, errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to find product by id", "id", id, "error", err)
		return nil, err
	}

	return &product, nil
}

func (s *productService) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	// Validation
	if product.SKU == "" {
		logger.Error("invalid product data: sku is required")
		return nil, errors.New("product sku is required")
	}

	if product.Name == "" {
		logger.Error("invalid product data: name is required")
		return nil, errors.New("product name is required")
	}

	if !product.BasePrice.IsPositive() {
		logger.Error("invalid product data: base price must be positive", "sku", product.SKU)
		return nil, errors.New("product base price must be positive")
	}

	if _, err := s.productRepo.FindBySKU(ctx, product.SKU); err == nil {
		logger.Error("product sku already exists", "sku", product.SKU)
		return nil, errors.New("product sku already exists")
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		logger.Error("failed to create product", "sku", product.SKU, "error", err)
		return nil, err
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == 0 {
		return nil, errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	existing, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		logger.Error("failed to find product for update", "id", product.ID, "error", err)
		return nil, err
	}

	if product.Name != "" {
		existing.Name = product.Name
	}
	if product.Description != "" {
		existing.Description = product.Description
	}
	if product.Category != "" {
		existing.Category = product.Category
	}
	if product.BasePrice.IsPositive() {
		existing.BasePrice = product.BasePrice
	}

	if err := s.productRepo.Update(ctx, &existing); err != nil {
		logger.Error("failed to update product", "id", product.ID, "error", err)
		return nil, err
	}

	return &existing, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uint64) error {
	if id == 0 {
		return errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete product", "id", id, "error", err)
		return err
	}

	return nil
}
