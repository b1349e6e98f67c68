package experiment

import (
	"context"
	"testing"
	"time"

	"flexiprice/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAssignRepo struct {
	assignments map[uint64]domain.ExperimentAssignment
}

func newMemAssignRepo() *memAssignRepo {
	return &memAssignRepo{assignments: make(map[uint64]domain.ExperimentAssignment)}
}

func (m *memAssignRepo) GetAssignment(_ context.Context, productID uint64) (domain.ExperimentAssignment, bool, error) {
	a, ok := m.assignments[productID]
	return a, ok, nil
}

func (m *memAssignRepo) SaveAssignment(_ context.Context, a *domain.ExperimentAssignment) error {
	// First write wins, like the ON CONFLICT DO NOTHING insert.
	if _, ok := m.assignments[a.ProductID]; !ok {
		m.assignments[a.ProductID] = *a
	}
	return nil
}

type memMetricRepo struct {
	calls int
	last  struct {
		group       string
		conversions int
	}
}

func (m *memMetricRepo) IncrementMetric(_ context.Context, _ uint64, group string, _ time.Time, conversions int, _ decimal.Decimal, _ int) error {
	m.calls++
	m.last.group = group
	m.last.conversions = conversions
	return nil
}

func (m *memMetricRepo) SummaryByGroup(context.Context) ([]GroupSummary, error) {
	return []GroupSummary{{Group: domain.GroupControl}, {Group: domain.GroupMLVariant}}, nil
}

type memProductRepo struct {
	products []domain.Product
}

func (m *memProductRepo) FindAll(context.Context) ([]domain.Product, error) {
	return m.products, nil
}

func TestAssign_IsSticky(t *testing.T) {
	svc := NewService(newMemAssignRepo(), &memMetricRepo{}, &memProductRepo{})

	first, err := svc.Assign(context.Background(), 42)
	require.NoError(t, err)
	require.Contains(t, []string{domain.GroupControl, domain.GroupMLVariant}, first.Group)

	for i := 0; i < 20; i++ {
		again, err := svc.Assign(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, first.Group, again.Group)
	}
}

func TestBulkAssign_RespectsRatioBounds(t *testing.T) {
	svc := NewService(newMemAssignRepo(), &memMetricRepo{}, &memProductRepo{})

	_, err := svc.BulkAssign(context.Background(), -0.1)
	assert.Error(t, err)

	_, err = svc.BulkAssign(context.Background(), 1.1)
	assert.Error(t, err)
}

func TestBulkAssign_SkipsExistingAssignments(t *testing.T) {
	assigns := newMemAssignRepo()
	assigns.assignments[1] = domain.ExperimentAssignment{ProductID: 1, Group: domain.GroupControl}

	products := make([]domain.Product, 10)
	for i := range products {
		products[i] = domain.Product{ID: uint64(i + 1)}
	}

	svc := NewService(assigns, &memMetricRepo{}, &memProductRepo{products: products})

	assigned, err := svc.BulkAssign(context.Background(), 1.0)
	require.NoError(t, err)

	assert.Equal(t, 9, assigned)
	assert.Equal(t, domain.GroupControl, assigns.assignments[1].Group)
	for id := uint64(2); id <= 10; id++ {
		assert.Equal(t, domain.GroupMLVariant, assigns.assignments[id].Group)
	}
}

func TestRecordMetric_AssignsAndValidates(t *testing.T) {
	metrics := &memMetricRepo{}
	svc := NewService(newMemAssignRepo(), metrics, &memProductRepo{})

	err := svc.RecordMetric(context.Background(), 7, 1, decimal.NewFromFloat(3.50), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.calls)
	assert.Equal(t, 1, metrics.last.conversions)

	err = svc.RecordMetric(context.Background(), 7, -1, decimal.Zero, 0)
	assert.Error(t, err)

	err = svc.RecordMetric(context.Background(), 0, 0, decimal.Zero, 0)
	assert.Error(t, err)
}
