package pricing

import (
	"github.com/shopspring/decimal"
)

// NoRuleReason is returned when no rung of the ladder matches. Full price
// is a valid outcome, not an error.
const NoRuleReason = "no applicable rule"

// Selection is the evaluator's verdict for one snapshot.
type Selection struct {
	DiscountPct decimal.Decimal
	Reason      string
	RuleName    string
	Matched     bool
}

// Evaluator picks the applicable discount for a batch snapshot.
type Evaluator struct {
	provider *Provider
}

func NewEvaluator(provider *Provider) *Evaluator {
	return &Evaluator{provider: provider}
}

// Evaluate walks the ladder in declared order and returns the first match.
// Matches are never merged; a later, larger discount loses to an earlier,
// smaller one.
func (e *Evaluator) Evaluate(snap Snapshot) Selection {
	rs := e.provider.Current()
	if rs == nil {
		return Selection{DiscountPct: decimal.Zero, Reason: NoRuleReason}
	}

	for _, rule := range rs.Rules {
		if rule.Matches(snap) {
			return Selection{
				DiscountPct: rule.DiscountPct,
				Reason:      rule.Reason,
				RuleName:    rule.Name,
				Matched:     true,
			}
		}
	}

	return Selection{DiscountPct: decimal.Zero, Reason: NoRuleReason}
}

// Floor returns the current global price floor multiplier.
func (e *Evaluator) Floor() decimal.Decimal {
	rs := e.provider.Current()
	if rs == nil {
		return decimal.Zero
	}
	return rs.PriceFloor
}
