package rest

import (
	"context"
	"net/http"
	"time"

	"flexiprice/business/experiment"
	"flexiprice/domain"
	"flexiprice/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ExperimentService interface {
	Assign(ctx context.Context, productID uint64) (domain.ExperimentAssignment, error)
	BulkAssign(ctx context.Context, mlRatio float64) (int, error)
	RecordMetric(ctx context.Context, productID uint64, conversions int, revenue decimal.Decimal, units int) error
	Summary(ctx context.Context) ([]experiment.GroupSummary, error)
}

type ExperimentHandler struct {
	experimentService ExperimentService
	validator         *validator.Validate
	timeout           time.Duration
}

func NewExperimentHandler(experimentService ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{
		experimentService: experimentService,
		validator:         validator.New(),
		timeout:           10 * time.Second,
	}
}

type AssignRequest struct {
	ProductID uint64 `json:"product_id" validate:"required"`
}

type RecordMetricRequest struct {
	ProductID   uint64  `json:"product_id" validate:"required"`
	Conversions int     `json:"conversions" validate:"gte=0"`
	Revenue     float64 `json:"revenue" validate:"gte=0"`
	Units       int     `json:"units" validate:"gte=0"`
}

// Assign returns the product's sticky experiment group, creating it on
// first sight.
func (h *ExperimentHandler) Assign(c echo.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	assignment, err := h.experimentService.Assign(ctx, req.ProductID)
	if err != nil {
		logger.Error("failed to assign experiment group", "product_id", req.ProductID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(assignment))
}

type BulkAssignRequest struct {
	MLRatio float64 `json:"ml_ratio" validate:"gte=0,lte=1"`
}

// BulkAssign splits all unassigned products into groups at the given ratio.
func (h *ExperimentHandler) BulkAssign(c echo.Context) error {
	req := BulkAssignRequest{MLRatio: 0.5}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	assigned, err := h.experimentService.BulkAssign(ctx, req.MLRatio)
	if err != nil {
		logger.Error("bulk experiment assignment failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"new_assignments": assigned,
	}))
}

// RecordMetric accumulates one impression plus optional conversion data
// for the product's arm.
func (h *ExperimentHandler) RecordMetric(c echo.Context) error {
	var req RecordMetricRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	err := h.experimentService.RecordMetric(ctx, req.ProductID, req.Conversions, decimal.NewFromFloat(req.Revenue), req.Units)
	if err != nil {
		logger.Error("failed to record experiment metric", "product_id", req.ProductID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("metric recorded"))
}

// Summary aggregates both experiment arms.
func (h *ExperimentHandler) Summary(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	summary, err := h.experimentService.Summary(ctx)
	if err != nil {
		logger.Error("failed to summarize experiment", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}
