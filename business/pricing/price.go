package pricing

import (
	"flexiprice/pkg/logger"
	"flexiprice/pkg/metrics"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ClampDiscountPct forces a discount percentage into [0,100]. Out-of-range
// input from a misconfigured rule or an ML recommendation is clamped, not
// rejected; the caller decides how to surface the anomaly.
func ClampDiscountPct(pct decimal.Decimal) (decimal.Decimal, bool) {
	if pct.IsNegative() {
		return decimal.Zero, true
	}
	if pct.GreaterThan(hundred) {
		return hundred, true
	}
	return pct, false
}

// ComputePrice applies a discount percentage to a base price with the
// floor clamp: max(base*(1-pct/100), base*floor), rounded half-up to two
// decimal places. Assumes pct already in [0,100].
func ComputePrice(basePrice, pct, floor decimal.Decimal) decimal.Decimal {
	multiplier := one.Sub(pct.Div(hundred))
	price := basePrice.Mul(multiplier)

	floorPrice := basePrice.Mul(floor)
	if price.LessThan(floorPrice) {
		price = floorPrice
	}

	return price.Round(2)
}

// Computer is the instrumented price computation entry point used by the
// pricing service and the scheduler.
type Computer struct{}

func NewComputer() *Computer {
	return &Computer{}
}

// Compute clamps the discount, applies it against the floor and returns
// the final price together with the effective percentage. The returned
// price always satisfies base*floor <= price <= base for base > 0.
func (c *Computer) Compute(basePrice, pct, floor decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	clamped, wasClamped := ClampDiscountPct(pct)
	if wasClamped {
		metrics.DiscountClampedTotal.Inc()
		logger.Warn("discount percentage clamped", "requested", pct, "clamped", clamped)
	}

	return ComputePrice(basePrice, clamped, floor), clamped
}
