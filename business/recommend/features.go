package recommend

import (
	"hash/fnv"
	"strings"

	"flexiprice/business/pricing"

	"github.com/shopspring/decimal"
)

// Feature order is fixed. Training artifacts declare the same names in the
// same order, and LoadModel rejects any artifact that disagrees; a drifted
// vector scores garbage silently otherwise.
var featureNames = []string{
	"base_price",
	"days_to_expiry",
	"inventory_level",
	"discount_pct",
	"urgency_score",
	"discount_per_day",
	"inventory_risk",
	"high_urgency",
	"deep_discount",
	"discount_expiry_interaction",
	"price_discount_ratio",
	"category_hash",
}

// FeatureNames returns the canonical feature order.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// BuildVector turns one (batch snapshot, candidate discount) pair into the
// model's input vector. Same builder for training exports and inference.
func BuildVector(snap pricing.Snapshot, basePrice decimal.Decimal, discountPct decimal.Decimal) []float64 {
	base, _ := basePrice.Float64()
	discount, _ := discountPct.Float64()
	days := float64(snap.DaysToExpiry)
	inventory := float64(snap.InventoryLevel)

	// Expired batches carry negative days; denominators treat them like
	// day zero so urgency saturates instead of flipping sign.
	daysDenom := days + 1
	if daysDenom < 1 {
		daysDenom = 1
	}
	invDenom := inventory + 1
	if invDenom < 1 {
		invDenom = 1
	}

	urgency := (1/daysDenom)*10 + (1/invDenom)*100

	highUrgency := 0.0
	if snap.DaysToExpiry <= 2 {
		highUrgency = 1.0
	}

	deepDiscount := 0.0
	if discount >= 50 {
		deepDiscount = 1.0
	}

	return []float64{
		base,
		days,
		inventory,
		discount,
		urgency,
		discount / daysDenom,
		inventory / daysDenom,
		highUrgency,
		deepDiscount,
		discount * (1 / daysDenom),
		1 - discount/100,
		hashToUnit(strings.ToLower(snap.Category)),
	}
}

// hashToUnit maps a string into [0,1) deterministically.
func hashToUnit(s string) float64 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return float64(h.Sum32()) / float64(1<<32)
}
