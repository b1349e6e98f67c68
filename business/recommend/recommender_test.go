package recommend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"flexiprice/business/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	fn  func(features []float64) float64
	err error
}

func (s *stubScorer) Score(features []float64) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.fn(features), nil
}

func testProvider() *pricing.Provider {
	return pricing.NewStaticProvider(&pricing.RuleSet{
		Rules:      []pricing.DiscountRule{{Name: "any", DiscountPct: decimal.NewFromInt(10)}},
		PriceFloor: decimal.RequireFromString("0.20"),
	})
}

func testSnap() pricing.Snapshot {
	return pricing.Snapshot{DaysToExpiry: 3, Category: "dairy", InventoryLevel: 50}
}

func TestRecommend_RanksByExpectedRevenue(t *testing.T) {
	// Probability rises with discount strongly enough that a mid-grid
	// discount wins on expected revenue.
	scorer := &stubScorer{fn: func(f []float64) float64 {
		discount := f[3]
		p := 0.05 + discount*0.01
		if p > 1 {
			p = 1
		}
		return p
	}}

	engine := NewEngine(scorer, testProvider(), DefaultOptions())

	recs, err := engine.Recommend(context.Background(), testSnap(), decimal.NewFromInt(10), 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// Ranking is strictly non-increasing in expected revenue.
	for i := 1; i < len(recs); i++ {
		assert.True(t, recs[i-1].ExpectedRevenue.GreaterThanOrEqual(recs[i].ExpectedRevenue))
	}
}

func TestRecommend_ConstantProbabilityPrefersFullPrice(t *testing.T) {
	// Constant probability makes expected revenue decrease with discount,
	// so the undiscounted candidate must rank first.
	scorer := &stubScorer{fn: func([]float64) float64 { return 0.5 }}

	engine := NewEngine(scorer, testProvider(), DefaultOptions())

	recs, err := engine.Recommend(context.Background(), testSnap(), decimal.NewFromInt(10), 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// 0% discount keeps the highest price, hence the highest expected
	// revenue at constant probability.
	assert.True(t, recs[0].DiscountPct.IsZero(), "got %s", recs[0].DiscountPct)
}

func TestRecommend_FloorTieGoesToSmallestDiscount(t *testing.T) {
	// With a 0.50 floor every discount of 50% or more prices identically,
	// so constant probability across that region produces exact expected
	// revenue ties; the smallest discount must win them.
	provider := pricing.NewStaticProvider(&pricing.RuleSet{
		Rules:      []pricing.DiscountRule{{Name: "any", DiscountPct: decimal.NewFromInt(10)}},
		PriceFloor: decimal.RequireFromString("0.50"),
	})
	scorer := &stubScorer{fn: func(f []float64) float64 {
		if f[3] >= 50 {
			return 0.9
		}
		return 0.01
	}}

	engine := NewEngine(scorer, provider, DefaultOptions())
	recs, err := engine.Recommend(context.Background(), testSnap(), decimal.NewFromInt(10), 1)
	require.NoError(t, err)
	assert.True(t, recs[0].DiscountPct.Equal(decimal.NewFromInt(50)), "got %s", recs[0].DiscountPct)
}

func TestRecommend_FailsClosedWithoutScorer(t *testing.T) {
	engine := NewEngine(nil, testProvider(), DefaultOptions())

	_, err := engine.Recommend(context.Background(), testSnap(), decimal.NewFromInt(10), 3)
	assert.ErrorIs(t, err, pricing.ErrScorerUnavailable)
}

func TestRecommend_FailsClosedOnScorerError(t *testing.T) {
	engine := NewEngine(&stubScorer{err: errors.New("boom")}, testProvider(), DefaultOptions())

	_, err := engine.Recommend(context.Background(), testSnap(), decimal.NewFromInt(10), 3)
	assert.ErrorIs(t, err, pricing.ErrScorerUnavailable)
}

func TestRecommend_FailsClosedOnBadProbability(t *testing.T) {
	engine := NewEngine(&stubScorer{fn: func([]float64) float64 { return 1.7 }}, testProvider(), DefaultOptions())

	_, err := engine.Recommend(context.Background(), testSnap(), decimal.NewFromInt(10), 3)
	assert.ErrorIs(t, err, pricing.ErrScorerUnavailable)
}

func TestBuildVector_Deterministic(t *testing.T) {
	snap := testSnap()
	a := BuildVector(snap, decimal.NewFromInt(10), decimal.NewFromInt(25))
	b := BuildVector(snap, decimal.NewFromInt(10), decimal.NewFromInt(25))

	assert.Equal(t, a, b)
	assert.Len(t, a, len(FeatureNames()))
}

func TestBuildVector_ExpiredBatchSaturatesUrgency(t *testing.T) {
	expired := pricing.Snapshot{DaysToExpiry: -4, Category: "dairy", InventoryLevel: 10}
	dayZero := pricing.Snapshot{DaysToExpiry: 0, Category: "dairy", InventoryLevel: 10}

	a := BuildVector(expired, decimal.NewFromInt(10), decimal.NewFromInt(25))
	b := BuildVector(dayZero, decimal.NewFromInt(10), decimal.NewFromInt(25))

	// Only the raw days feature differs; every derived denominator clamps.
	assert.Equal(t, a[4:], b[4:])
	assert.Equal(t, float64(-4), a[1])
}

func TestLoadModel_RejectsFeatureDrift(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	artifact := `{
	  "feature_names": ["base_price", "bogus_feature"],
	  "weights": [0.1, 0.2],
	  "bias": 0.0
	}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))

	_, err := LoadModel(path)
	require.Error(t, err)
}

func TestModel_ScoreIsSigmoid(t *testing.T) {
	m := &Model{Weights: make([]float64, len(FeatureNames()))}

	p, err := m.Score(make([]float64, len(FeatureNames())))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)

	_, err = m.Score([]float64{1, 2})
	assert.Error(t, err)
}
