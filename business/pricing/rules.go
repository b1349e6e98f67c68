package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Snapshot is the read-only view of a batch the evaluator works on.
type Snapshot struct {
	DaysToExpiry   int
	Category       string
	InventoryLevel int
}

// DiscountRule is one rung of the discount ladder. Each condition dimension
// is independently optional; absent dimensions always match. Conditions are
// parsed once at load, never at evaluation time.
type DiscountRule struct {
	Name        string
	Reason      string
	DiscountPct decimal.Decimal

	// days_to_expiry <= MaxDaysToExpiry, when set
	MaxDaysToExpiry *int
	// inventory_level >= MinInventory, when set
	MinInventory *int
	// nil means wildcard; keys are lowercased category names
	categories map[string]struct{}
}

// Matches applies the rule's conditions with AND semantics. Negative
// days-to-expiry is a regular value here: an expired batch falls through
// the <= comparison into the most aggressive tier, it is never an error.
func (r DiscountRule) Matches(snap Snapshot) bool {
	if r.MaxDaysToExpiry != nil && snap.DaysToExpiry > *r.MaxDaysToExpiry {
		return false
	}

	if r.MinInventory != nil && snap.InventoryLevel < *r.MinInventory {
		return false
	}

	return r.MatchesCategory(snap.Category)
}

// MatchesCategory reports whether the rule applies to the given category.
func (r DiscountRule) MatchesCategory(category string) bool {
	if r.categories == nil {
		return true
	}
	_, ok := r.categories[strings.ToLower(category)]
	return ok
}

// RuleSet is an immutable, validated, ordered rule ladder plus the global
// price floor. Reload replaces the whole set, never individual rules.
type RuleSet struct {
	Rules      []DiscountRule
	PriceFloor decimal.Decimal
}

// ConfigError marks a malformed rule set. Fatal at load: the process must
// refuse to serve pricing until the configuration is fixed.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "discount rules config: " + e.Msg
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func (rs *RuleSet) validate() error {
	if len(rs.Rules) == 0 {
		return configErrorf("rule list is empty")
	}

	hundred := decimal.NewFromInt(100)
	for i, r := range rs.Rules {
		if r.DiscountPct.IsNegative() || r.DiscountPct.GreaterThan(hundred) {
			return configErrorf("rule %q (index %d): discount_pct %s outside [0,100]", r.Name, i, r.DiscountPct)
		}
	}

	one := decimal.NewFromInt(1)
	if !rs.PriceFloor.IsPositive() || rs.PriceFloor.GreaterThan(one) {
		return configErrorf("price_floor_multiplier %s outside (0,1]", rs.PriceFloor)
	}

	return nil
}
