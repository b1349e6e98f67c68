package pricing

import (
	"context"
	"testing"
	"time"

	"flexiprice/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchRepo struct {
	batches map[uint64]domain.InventoryBatch
}

func (f *fakeBatchRepo) FindByID(_ context.Context, id uint64) (domain.InventoryBatch, error) {
	b, ok := f.batches[id]
	if !ok {
		return domain.InventoryBatch{}, domain.ErrBatchNotFound
	}
	return b, nil
}

type fakeDiscountRepo struct {
	saved        []domain.BatchDiscount
	conflictOnce bool
}

func (f *fakeDiscountRepo) SaveNewCurrent(_ context.Context, d *domain.BatchDiscount) error {
	if f.conflictOnce {
		f.conflictOnce = false
		return ErrVersionConflict
	}
	d.Version = len(f.saved) + 1
	f.saved = append(f.saved, *d)
	return nil
}

func (f *fakeDiscountRepo) FindCurrent(_ context.Context, batchID uint64) (domain.BatchDiscount, bool, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].BatchID == batchID {
			return f.saved[i], true, nil
		}
	}
	return domain.BatchDiscount{}, false, nil
}

type fakeAssignRepo struct {
	group string
}

func (f *fakeAssignRepo) GetAssignment(_ context.Context, productID uint64) (domain.ExperimentAssignment, bool, error) {
	if f.group == "" {
		return domain.ExperimentAssignment{}, false, nil
	}
	return domain.ExperimentAssignment{ProductID: productID, Group: f.group}, true, nil
}

type fakeRecommender struct {
	recs []Recommendation
	err  error
}

func (f *fakeRecommender) Recommend(context.Context, Snapshot, decimal.Decimal, int) ([]Recommendation, error) {
	return f.recs, f.err
}

func testBatch(daysOut int) domain.InventoryBatch {
	expiry := time.Now().UTC().AddDate(0, 0, daysOut)
	return domain.InventoryBatch{
		ID:         7,
		ProductID:  3,
		BatchCode:  "B-007",
		Quantity:   40,
		ExpiryDate: expiry,
		Product: &domain.Product{
			ID:        3,
			SKU:       "MILK-1L",
			Name:      "Whole Milk 1L",
			Category:  "dairy",
			BasePrice: dec("4.99"),
		},
	}
}

func newTestService(batches *fakeBatchRepo, discounts *fakeDiscountRepo, assigns *fakeAssignRepo, rec Recommender) *Service {
	return NewService(batches, discounts, assigns, NewEvaluator(NewStaticProvider(testRuleSet())), rec)
}

func TestPreview_DoesNotPersist(t *testing.T) {
	batches := &fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{7: testBatch(2)}}
	discounts := &fakeDiscountRepo{}
	svc := newTestService(batches, discounts, &fakeAssignRepo{}, nil)

	first, err := svc.Preview(context.Background(), 7)
	require.NoError(t, err)

	second, err := svc.Preview(context.Background(), 7)
	require.NoError(t, err)

	assert.Empty(t, discounts.saved)
	assert.True(t, first.ComputedPrice.Equal(second.ComputedPrice))
	assert.True(t, first.DiscountPct.Equal(second.DiscountPct))

	// 4.99 at the 60% tier rounds to 2.00.
	assert.True(t, first.ComputedPrice.Equal(dec("2.00")), "got %s", first.ComputedPrice)
	assert.Equal(t, "expires within 2 days", first.Reason)
}

func TestCompute_PersistsResult(t *testing.T) {
	batches := &fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{7: testBatch(2)}}
	discounts := &fakeDiscountRepo{}
	svc := newTestService(batches, discounts, &fakeAssignRepo{}, nil)

	result, err := svc.Compute(context.Background(), 7, false)
	require.NoError(t, err)

	require.Len(t, discounts.saved, 1)
	assert.True(t, result.DiscountPct.Equal(dec("60")))
	assert.False(t, result.MLRecommended)
	require.NotNil(t, result.ExpiresAt)
}

func TestCompute_RetriesOnVersionConflict(t *testing.T) {
	batches := &fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{7: testBatch(2)}}
	discounts := &fakeDiscountRepo{conflictOnce: true}
	svc := newTestService(batches, discounts, &fakeAssignRepo{}, nil)

	_, err := svc.Compute(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Len(t, discounts.saved, 1)
}

func TestCompute_MLPathUsesRecommendation(t *testing.T) {
	batches := &fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{7: testBatch(2)}}
	discounts := &fakeDiscountRepo{}
	rec := &fakeRecommender{recs: []Recommendation{{
		DiscountPct: dec("35"),
		Price:       dec("3.24"),
		Probability: 0.62,
	}}}
	svc := newTestService(batches, discounts, &fakeAssignRepo{}, rec)

	result, err := svc.Compute(context.Background(), 7, true)
	require.NoError(t, err)

	assert.True(t, result.MLRecommended)
	assert.True(t, result.DiscountPct.Equal(dec("35")))
	assert.Equal(t, "ml recommendation", result.Reason)
}

func TestCompute_ScorerFailureFallsBackToRules(t *testing.T) {
	batches := &fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{7: testBatch(2)}}
	discounts := &fakeDiscountRepo{}
	rec := &fakeRecommender{err: ErrScorerUnavailable}
	svc := newTestService(batches, discounts, &fakeAssignRepo{}, rec)

	result, err := svc.Compute(context.Background(), 7, true)
	require.NoError(t, err)

	// The batch still gets priced, off the ladder.
	assert.False(t, result.MLRecommended)
	assert.True(t, result.DiscountPct.Equal(dec("60")))
	assert.Len(t, discounts.saved, 1)
}

func TestComputeBatch_UsesExperimentAssignment(t *testing.T) {
	batches := &fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{7: testBatch(2)}}
	discounts := &fakeDiscountRepo{}
	rec := &fakeRecommender{recs: []Recommendation{{DiscountPct: dec("25"), Probability: 0.5}}}

	svc := newTestService(batches, discounts, &fakeAssignRepo{group: domain.GroupMLVariant}, rec)
	result, err := svc.ComputeBatch(context.Background(), testBatch(2))
	require.NoError(t, err)
	assert.True(t, result.MLRecommended)

	// Control group products never take the ML path.
	discounts2 := &fakeDiscountRepo{}
	svc = newTestService(batches, discounts2, &fakeAssignRepo{group: domain.GroupControl}, rec)
	result, err = svc.ComputeBatch(context.Background(), testBatch(2))
	require.NoError(t, err)
	assert.False(t, result.MLRecommended)
}

func TestPriceBatch_RejectsBadInput(t *testing.T) {
	discounts := &fakeDiscountRepo{}
	svc := newTestService(&fakeBatchRepo{batches: map[uint64]domain.InventoryBatch{}}, discounts, &fakeAssignRepo{}, nil)

	noProduct := testBatch(2)
	noProduct.Product = nil
	_, err := svc.ComputeBatch(context.Background(), noProduct)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	freebie := testBatch(2)
	freebie.Product.BasePrice = decimal.Zero
	_, err = svc.ComputeBatch(context.Background(), freebie)
	require.ErrorAs(t, err, &verr)

	assert.Empty(t, discounts.saved)
}
