package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"flexiprice/domain"
	"flexiprice/pkg/logger"

	"github.com/shopspring/decimal"
)

// AssignmentRepository contract interface
type AssignmentRepository interface {
	GetAssignment(ctx context.Context, productID uint64) (domain.ExperimentAssignment, bool, error)
	SaveAssignment(ctx context.Context, assignment *domain.ExperimentAssignment) error
}

type MetricRepository interface {
	IncrementMetric(ctx context.Context, productID uint64, group string, bucket time.Time, conversions int, revenue decimal.Decimal, units int) error
	SummaryByGroup(ctx context.Context) ([]GroupSummary, error)
}

// GroupSummary aggregates one experiment arm across products.
type GroupSummary struct {
	Group       string          `json:"group"`
	Impressions int64           `json:"impressions"`
	Conversions int64           `json:"conversions"`
	Revenue     decimal.Decimal `json:"revenue"`
	Units       int64           `json:"units"`
}

type ProductLister interface {
	FindAll(ctx context.Context) ([]domain.Product, error)
}

type service struct {
	assignRepo  AssignmentRepository
	metricRepo  MetricRepository
	productRepo ProductLister

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(assignRepo AssignmentRepository, metricRepo MetricRepository, productRepo ProductLister) *service {
	return &service{
		assignRepo:  assignRepo,
		metricRepo:  metricRepo,
		productRepo: productRepo,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Assign returns the product's experiment group, creating a sticky 50/50
// assignment on first sight. A product never moves between groups.
func (s *service) Assign(ctx context.Context, productID uint64) (domain.ExperimentAssignment, error) {
	if productID == 0 {
		return domain.ExperimentAssignment{}, errors.New("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		return domain.ExperimentAssignment{}, fmt.Errorf("context error: %w", err)
	}

	existing, ok, err := s.assignRepo.GetAssignment(ctx, productID)
	if err != nil {
		return domain.ExperimentAssignment{}, err
	}
	if ok {
		return existing, nil
	}

	assignment := domain.ExperimentAssignment{
		ProductID:  productID,
		Group:      s.pickGroup(),
		AssignedAt: time.Now(),
	}

	if err := s.assignRepo.SaveAssignment(ctx, &assignment); err != nil {
		return domain.ExperimentAssignment{}, err
	}

	// A concurrent assign may have won the insert; the stored row is the
	// sticky truth either way.
	stored, ok, err := s.assignRepo.GetAssignment(ctx, productID)
	if err != nil || !ok {
		return assignment, nil
	}

	logger.Debug("experiment assignment", "product_id", productID, "group", stored.Group)

	return stored, nil
}

func (s *service) pickGroup() string {
	return s.pickGroupWithRatio(0.5)
}

func (s *service) pickGroupWithRatio(mlRatio float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < mlRatio {
		return domain.GroupMLVariant
	}
	return domain.GroupControl
}

// BulkAssign splits every product without an assignment into groups, putting
// roughly mlRatio of them on the ML variant. Existing assignments stay put.
// Returns the number of new assignments.
func (s *service) BulkAssign(ctx context.Context, mlRatio float64) (int, error) {
	if mlRatio < 0 || mlRatio > 1 {
		return 0, errors.New("ml ratio must be within [0,1]")
	}

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, p := range products {
		_, ok, err := s.assignRepo.GetAssignment(ctx, p.ID)
		if err != nil {
			return assigned, err
		}
		if ok {
			continue
		}

		assignment := domain.ExperimentAssignment{
			ProductID:  p.ID,
			Group:      s.pickGroupWithRatio(mlRatio),
			AssignedAt: time.Now(),
		}
		if err := s.assignRepo.SaveAssignment(ctx, &assignment); err != nil {
			return assigned, err
		}
		assigned++
	}

	logger.Info("bulk experiment assignment", "new_assignments", assigned, "ml_ratio", mlRatio)

	return assigned, nil
}

// RecordMetric accumulates impressions, conversions, revenue and units for
// a product's arm in a daily bucket.
func (s *service) RecordMetric(ctx context.Context, productID uint64, conversions int, revenue decimal.Decimal, units int) error {
	if productID == 0 {
		return errors.New("invalid product id")
	}
	if conversions < 0 || units < 0 || revenue.IsNegative() {
		return errors.New("metric values must not be negative")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	assignment, err := s.Assign(ctx, productID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	bucket := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return s.metricRepo.IncrementMetric(ctx, productID, assignment.Group, bucket, conversions, revenue, units)
}

// Summary aggregates both arms for comparison.
func (s *service) Summary(ctx context.Context) ([]GroupSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	return s.metricRepo.SummaryByGroup(ctx)
}
