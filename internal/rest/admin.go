package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"flexiprice/business/pricing"
	"flexiprice/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type RuleReloader interface {
	Reload() error
	Current() *pricing.RuleSet
}

type AdminHandler struct {
	rules       RuleReloader
	recommender pricing.Recommender
	validator   *validator.Validate
	timeout     time.Duration
}

func NewAdminHandler(rules RuleReloader, recommender pricing.Recommender) *AdminHandler {
	return &AdminHandler{
		rules:       rules,
		recommender: recommender,
		validator:   validator.New(),
		timeout:     10 * time.Second,
	}
}

// ReloadRules re-reads the discount rule file and swaps the live set. A
// rejected file leaves the previous set serving.
func (h *AdminHandler) ReloadRules(c echo.Context) error {
	if err := h.rules.Reload(); err != nil {
		var cfgErr *pricing.ConfigError
		if errors.As(err, &cfgErr) {
			return c.JSON(http.StatusUnprocessableEntity, ResponseError{Message: err.Error()})
		}
		logger.Error("rule reload failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	rs := h.rules.Current()
	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"message":     "discount rules reloaded",
		"rules":       len(rs.Rules),
		"price_floor": rs.PriceFloor,
	}))
}

type RecommendRequest struct {
	BasePrice      float64 `json:"base_price" validate:"required,gt=0"`
	DaysToExpiry   int     `json:"days_to_expiry"`
	InventoryLevel int     `json:"inventory_level" validate:"gte=0"`
	Category       string  `json:"category"`
	TopK           int     `json:"top_k" validate:"gte=0,lte=20"`
}

// Recommend exposes the ML candidate ranking directly for inspection,
// without touching any stored prices.
func (h *AdminHandler) Recommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if h.recommender == nil {
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: "recommender is not configured"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap := pricing.Snapshot{
		DaysToExpiry:   req.DaysToExpiry,
		Category:       req.Category,
		InventoryLevel: req.InventoryLevel,
	}

	recs, err := h.recommender.Recommend(ctx, snap, decimal.NewFromFloat(req.BasePrice), req.TopK)
	if err != nil {
		if errors.Is(err, pricing.ErrScorerUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
		}
		logger.Error("recommendation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(recs))
}
