package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"flexiprice/business/pricing"
	"flexiprice/business/scheduler"
	"flexiprice/domain"
	"flexiprice/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type PricingService interface {
	Preview(ctx context.Context, batchID uint64) (domain.BatchDiscount, error)
	Compute(ctx context.Context, batchID uint64, useML bool) (domain.BatchDiscount, error)
}

type DiscountReader interface {
	FindCurrent(ctx context.Context, batchID uint64) (domain.BatchDiscount, bool, error)
	History(ctx context.Context, batchID uint64, limit int) ([]domain.BatchDiscount, error)
}

type RecomputeRunner interface {
	RecomputeAll(ctx context.Context, thresholdDays int) (scheduler.Summary, error)
	TriggerAsync(thresholdDays int) string
	Tasks() *scheduler.TaskRegistry
	Status() (string, scheduler.Summary)
}

type PricingHandler struct {
	pricingService PricingService
	discounts      DiscountReader
	runner         RecomputeRunner
	timeout        time.Duration
}

func NewPricingHandler(pricingService PricingService, discounts DiscountReader, runner RecomputeRunner) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		discounts:      discounts,
		runner:         runner,
		timeout:        10 * time.Second,
	}
}

func (h *PricingHandler) batchID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("batch_id"), 10, 64)
}

// Preview prices a batch without persisting anything.
func (h *PricingHandler) Preview(c echo.Context) error {
	batchID, err := h.batchID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	result, err := h.pricingService.Preview(ctx, batchID)
	if err != nil {
		return h.pricingError(c, batchID, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// Compute prices a batch and persists the result. ?use_ml=true opts into
// the ML recommendation path regardless of experiment assignment.
func (h *PricingHandler) Compute(c echo.Context) error {
	batchID, err := h.batchID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	useML, _ := strconv.ParseBool(c.QueryParam("use_ml"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	result, err := h.pricingService.Compute(ctx, batchID, useML)
	if err != nil {
		return h.pricingError(c, batchID, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(result))
}

func (h *PricingHandler) pricingError(c echo.Context, batchID uint64, err error) error {
	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, ResponseError{Message: err.Error()})
	}
	if errors.Is(err, domain.ErrBatchNotFound) {
		return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
	}

	logger.Error("pricing request failed", "batch_id", batchID, "error", err)
	return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
}

// RecomputeAll triggers a full-inventory recompute. With ?async=true the
// cycle runs in the background and the response carries a task id to poll.
func (h *PricingHandler) RecomputeAll(c echo.Context) error {
	thresholdDays := 0
	if raw := c.QueryParam("days_threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "days_threshold must be a positive integer"})
		}
		thresholdDays = parsed
	}

	if async, _ := strconv.ParseBool(c.QueryParam("async")); async {
		taskID := h.runner.TriggerAsync(thresholdDays)
		return c.JSON(http.StatusAccepted, map[string]interface{}{
			"message": "recompute cycle triggered",
			"task_id": taskID,
		})
	}

	summary, err := h.runner.RecomputeAll(c.Request().Context(), thresholdDays)
	if err != nil {
		if errors.Is(err, scheduler.ErrCycleRunning) {
			return c.JSON(http.StatusConflict, ResponseError{Message: err.Error()})
		}
		logger.Error("recompute cycle failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

// TaskStatus reports the state of an async recompute trigger.
func (h *PricingHandler) TaskStatus(c echo.Context) error {
	task, ok := h.runner.Tasks().Get(c.Param("task_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "task not found"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(task))
}

// SchedulerStatus reports the cycle state machine and the last summary.
func (h *PricingHandler) SchedulerStatus(c echo.Context) error {
	state, last := h.runner.Status()
	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"state":    state,
		"last_run": last,
	}))
}

// ActiveDiscount returns the current priced result for a batch.
func (h *PricingHandler) ActiveDiscount(c echo.Context) error {
	batchID, err := h.batchID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	discount, ok, err := h.discounts.FindCurrent(ctx, batchID)
	if err != nil {
		logger.Error("failed to load current discount", "batch_id", batchID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	// The maintenance pass closes out discounts for expired batches; a row
	// it has not reached yet must still not be served.
	if !ok || !discount.IsCurrent(time.Now()) {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "no active discount for batch"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(discount))
}

// DiscountHistory returns all priced results for a batch, newest first.
func (h *PricingHandler) DiscountHistory(c echo.Context) error {
	batchID, err := h.batchID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid batch id"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	history, err := h.discounts.History(ctx, batchID, limit)
	if err != nil {
		logger.Error("failed to load discount history", "batch_id", batchID, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(history))
}
