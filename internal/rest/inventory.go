package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"flexiprice/domain"
	"flexiprice/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type BatchService interface {
	GetAllBatches(ctx context.Context) ([]domain.InventoryBatch, error)
	GetBatchByID(ctx context.Context, id uint64) (*domain.InventoryBatch, error)
	GetBatchesByProduct(ctx context.Context, productID uint64) ([]domain.InventoryBatch, error)
	CreateBatch(ctx context.Context, batch *domain.InventoryBatch) (*domain.InventoryBatch, error)
	UpdateBatchQuantity(ctx context.Context, id uint64, quantity int) (*domain.InventoryBatch, error)
	DeleteBatch(ctx context.Context, id uint64) error
}

type BatchHandler struct {
	batchService BatchService
	validator    *validator.Validate
	timeout      time.Duration
}

func NewBatchHandler(batchService BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		validator:    validator.New(),
		timeout:      10 * time.Second,
	}
}

type CreateBatchRequest struct {
	ProductID  uint64 `json:"product_id" validate:"required"`
	BatchCode  string `json:"batch_code" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
	ExpiryDate string `json:"expiry_date" validate:"required"`
}

type UpdateBatchQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

func (h *BatchHandler) GetAllBatches(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if raw := c.QueryParam("product_id"); raw != "" {
		productID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid product id"})
		}

		batches, err := h.batchService.GetBatchesByProduct(ctx, productID)
		if err != nil {
			logger.Error("failed to get batches for product", "product_id", productID, "error", err)
			return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusOK, fres.Response.StatusOK(batches))
	}

	batches, err := h.batchService.GetAllBatches(ctx)
	if err != nil {
		logger.Error("failed to get all batches", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(batches))
}

func (h *BatchHandler) GetBatchByID(c echo.Context) error {
	batchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	batch, err := h.batchService.GetBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		logger.Error("failed to get batch", "id", batchID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(batch))
}

func (h *BatchHandler) CreateBatch(c echo.Context) error {
	var req CreateBatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "expiry_date must be YYYY-MM-DD"})
	}

	batch := &domain.InventoryBatch{
		ProductID:  req.ProductID,
		BatchCode:  req.BatchCode,
		Quantity:   req.Quantity,
		ExpiryDate: expiry,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	created, err := h.batchService.CreateBatch(ctx, batch)
	if err != nil {
		logger.Error("failed to create batch", "batch_code", req.BatchCode, "error", err)
		return c.JSON(http.StatusUnprocessableEntity, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(created))
}

func (h *BatchHandler) UpdateBatchQuantity(c echo.Context) error {
	batchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	var req UpdateBatchQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	updated, err := h.batchService.UpdateBatchQuantity(ctx, batchID, req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		logger.Error("failed to update batch quantity", "id", batchID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(updated))
}

func (h *BatchHandler) DeleteBatch(c echo.Context) error {
	batchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.batchService.DeleteBatch(ctx, batchID); err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		logger.Error("failed to delete batch", "id", batchID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("batch deleted successfully"))
}
