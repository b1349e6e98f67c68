package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func testRuleSet() *RuleSet {
	return &RuleSet{
		PriceFloor: dec("0.20"),
		Rules: []DiscountRule{
			{
				Name:            "critical",
				Reason:          "expires within 2 days",
				DiscountPct:     dec("60"),
				MaxDaysToExpiry: intPtr(2),
			},
			{
				Name:            "overstock-dairy",
				Reason:          "overstocked dairy",
				DiscountPct:     dec("30"),
				MaxDaysToExpiry: intPtr(10),
				MinInventory:    intPtr(100),
				categories:      map[string]struct{}{"dairy": {}},
			},
			{
				Name:            "near",
				Reason:          "expires within 10 days",
				DiscountPct:     dec("20"),
				MaxDaysToExpiry: intPtr(10),
			},
		},
	}
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	e := NewEvaluator(NewStaticProvider(testRuleSet()))

	// Two days out matches both "critical" and "near"; declared order
	// decides, not discount size.
	sel := e.Evaluate(Snapshot{DaysToExpiry: 2, Category: "produce", InventoryLevel: 10})

	assert.True(t, sel.Matched)
	assert.Equal(t, "critical", sel.RuleName)
	assert.True(t, sel.DiscountPct.Equal(dec("60")))
}

func TestEvaluate_CategoryAndInventoryConditions(t *testing.T) {
	e := NewEvaluator(NewStaticProvider(testRuleSet()))

	// Dairy with big inventory hits the category rule before the generic one.
	sel := e.Evaluate(Snapshot{DaysToExpiry: 8, Category: "Dairy", InventoryLevel: 150})
	assert.Equal(t, "overstock-dairy", sel.RuleName)

	// Same days but low inventory falls through to the generic rung.
	sel = e.Evaluate(Snapshot{DaysToExpiry: 8, Category: "dairy", InventoryLevel: 20})
	assert.Equal(t, "near", sel.RuleName)

	// Non-dairy never sees the category rule.
	sel = e.Evaluate(Snapshot{DaysToExpiry: 8, Category: "bakery", InventoryLevel: 500})
	assert.Equal(t, "near", sel.RuleName)
}

func TestEvaluate_NoMatchIsFullPrice(t *testing.T) {
	e := NewEvaluator(NewStaticProvider(testRuleSet()))

	sel := e.Evaluate(Snapshot{DaysToExpiry: 45, Category: "produce", InventoryLevel: 10})

	assert.False(t, sel.Matched)
	assert.True(t, sel.DiscountPct.IsZero())
	assert.Equal(t, NoRuleReason, sel.Reason)
}

func TestEvaluate_ExpiredBatchHitsMostAggressiveTier(t *testing.T) {
	e := NewEvaluator(NewStaticProvider(testRuleSet()))

	// Negative days is a valid value, not an error; it satisfies the
	// tightest max_days_to_expiry threshold.
	sel := e.Evaluate(Snapshot{DaysToExpiry: -3, Category: "produce", InventoryLevel: 10})

	require.True(t, sel.Matched)
	assert.Equal(t, "critical", sel.RuleName)
}

func TestEvaluate_NilRuleSet(t *testing.T) {
	e := NewEvaluator(NewStaticProvider(nil))

	sel := e.Evaluate(Snapshot{DaysToExpiry: 1})

	assert.False(t, sel.Matched)
	assert.True(t, sel.DiscountPct.Equal(decimal.Zero))
}
