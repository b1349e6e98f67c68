package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flexiprice/domain"
	"flexiprice/pkg/logger"
	"flexiprice/pkg/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ErrScorerUnavailable is returned by the ML path when the scorer is
// missing, failing, or producing malformed probabilities. Callers fall
// back to the rule-based selection; storefront pricing never blocks on it.
var ErrScorerUnavailable = errors.New("purchase probability scorer unavailable")

// ErrVersionConflict signals that another writer superseded the current
// priced result between read and write. Safe to retry.
var ErrVersionConflict = errors.New("priced result version conflict")

// ValidationError marks malformed batch or product input. The affected
// batch is rejected; a recompute cycle continues with the rest.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid batch input: " + e.Msg
}

// ---- Repository contracts ----

type BatchRepository interface {
	FindByID(ctx context.Context, id uint64) (domain.InventoryBatch, error)
}

type DiscountRepository interface {
	SaveNewCurrent(ctx context.Context, discount *domain.BatchDiscount) error
	FindCurrent(ctx context.Context, batchID uint64) (domain.BatchDiscount, bool, error)
}

type AssignmentRepository interface {
	GetAssignment(ctx context.Context, productID uint64) (domain.ExperimentAssignment, bool, error)
}

// Recommendation is one scored candidate discount from the ML path.
type Recommendation struct {
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	Price           decimal.Decimal `json:"price"`
	Probability     float64         `json:"purchase_probability"`
	ExpectedRevenue decimal.Decimal `json:"expected_revenue"`
}

type Recommender interface {
	Recommend(ctx context.Context, snap Snapshot, basePrice decimal.Decimal, topK int) ([]Recommendation, error)
}

// ---- Service ----

// Service prices individual batches: rule evaluation, optional ML
// re-ranking, floor clamping, and persistence with supersede semantics.
type Service struct {
	batchRepo    BatchRepository
	discountRepo DiscountRepository
	assignRepo   AssignmentRepository
	evaluator    *Evaluator
	computer     *Computer
	recommender  Recommender
	now          func() time.Time
}

func NewService(
	batchRepo BatchRepository,
	discountRepo DiscountRepository,
	assignRepo AssignmentRepository,
	evaluator *Evaluator,
	recommender Recommender,
) *Service {
	return &Service{
		batchRepo:    batchRepo,
		discountRepo: discountRepo,
		assignRepo:   assignRepo,
		evaluator:    evaluator,
		computer:     NewComputer(),
		recommender:  recommender,
		now:          time.Now,
	}
}

// Preview prices a batch without persisting anything. Calling it twice
// with unchanged inputs yields the same result.
func (s *Service) Preview(ctx context.Context, batchID uint64) (domain.BatchDiscount, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatchDiscount{}, fmt.Errorf("context error: %w", err)
	}

	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return domain.BatchDiscount{}, err
	}

	return s.priceBatch(ctx, batch, s.useML(ctx, batch))
}

// Compute prices a batch and persists the result, superseding the prior
// current priced result for that batch. One retry on a version conflict
// with a concurrent writer.
func (s *Service) Compute(ctx context.Context, batchID uint64, useML bool) (domain.BatchDiscount, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatchDiscount{}, fmt.Errorf("context error: %w", err)
	}

	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return domain.BatchDiscount{}, err
	}

	return s.computeAndSave(ctx, batch, useML)
}

// ComputeBatch prices an already-loaded batch, deciding the ML path from
// the product's experiment assignment. Used by the recompute scheduler.
func (s *Service) ComputeBatch(ctx context.Context, batch domain.InventoryBatch) (domain.BatchDiscount, error) {
	return s.computeAndSave(ctx, batch, s.useML(ctx, batch))
}

func (s *Service) computeAndSave(ctx context.Context, batch domain.InventoryBatch, useML bool) (domain.BatchDiscount, error) {
	result, err := s.priceBatch(ctx, batch, useML)
	if err != nil {
		return domain.BatchDiscount{}, err
	}

	if err := s.discountRepo.SaveNewCurrent(ctx, &result); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			logger.Debug("version conflict on priced result, retrying", "batch_id", batch.ID)
			if err := s.discountRepo.SaveNewCurrent(ctx, &result); err != nil {
				return domain.BatchDiscount{}, fmt.Errorf("save priced result: %w", err)
			}
			return result, nil
		}
		return domain.BatchDiscount{}, fmt.Errorf("save priced result: %w", err)
	}

	return result, nil
}

// useML reports whether the batch's product sits in the ML variant group
// and a recommender is wired in.
func (s *Service) useML(ctx context.Context, batch domain.InventoryBatch) bool {
	if s.recommender == nil || s.assignRepo == nil {
		return false
	}

	assignment, ok, err := s.assignRepo.GetAssignment(ctx, batch.ProductID)
	if err != nil || !ok {
		return false
	}

	return assignment.Group == domain.GroupMLVariant
}

func (s *Service) priceBatch(ctx context.Context, batch domain.InventoryBatch, useML bool) (domain.BatchDiscount, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluateLatency.Observe(time.Since(start).Seconds())
	}()

	if batch.Product == nil {
		return domain.BatchDiscount{}, &ValidationError{Msg: fmt.Sprintf("batch %d has no product", batch.ID)}
	}
	if !batch.Product.BasePrice.IsPositive() {
		return domain.BatchDiscount{}, &ValidationError{Msg: fmt.Sprintf("product %d has non-positive base price", batch.ProductID)}
	}

	now := s.now()
	snap := Snapshot{
		DaysToExpiry:   batch.DaysToExpiry(now),
		Category:       batch.Product.Category,
		InventoryLevel: batch.Quantity,
	}

	sel := s.evaluator.Evaluate(snap)
	pct := sel.DiscountPct
	reason := sel.Reason
	mlRecommended := false

	trace := datatypes.JSONMap{
		"source":         "rules",
		"rule":           sel.RuleName,
		"days_to_expiry": snap.DaysToExpiry,
	}

	if useML {
		recs, err := s.recommender.Recommend(ctx, snap, batch.Product.BasePrice, 1)
		switch {
		case err != nil:
			metrics.ScorerFallbacksTotal.Inc()
			logger.Warn("recommender failed, falling back to rules",
				"batch_id", batch.ID, "error", err)
		case len(recs) > 0:
			pct = recs[0].DiscountPct
			reason = "ml recommendation"
			mlRecommended = true
			trace["source"] = "ml"
			trace["purchase_probability"] = recs[0].Probability
			trace["expected_revenue"] = recs[0].ExpectedRevenue.InexactFloat64()
		}
	}

	price, effectivePct := s.computer.Compute(batch.Product.BasePrice, pct, s.evaluator.Floor())

	expiresAt := time.Date(
		batch.ExpiryDate.Year(), batch.ExpiryDate.Month(), batch.ExpiryDate.Day(),
		23, 59, 59, 0, time.UTC,
	)

	return domain.BatchDiscount{
		BatchID:       batch.ID,
		ComputedPrice: price,
		DiscountPct:   effectivePct,
		Reason:        reason,
		ValidFrom:     now,
		ExpiresAt:     &expiresAt,
		MLRecommended: mlRecommended,
		Context:       trace,
	}, nil
}
