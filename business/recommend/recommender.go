package recommend

import (
	"context"
	"fmt"
	"sort"

	"flexiprice/business/pricing"

	"github.com/shopspring/decimal"
)

// Options bound the candidate discount grid and the result size.
type Options struct {
	MinDiscount int
	MaxDiscount int
	Step        int
	TopK        int
	// UnitQty is the quantity assumed sold per purchase event when
	// projecting revenue. One unit unless sales data says otherwise.
	UnitQty int
}

func DefaultOptions() Options {
	return Options{
		MinDiscount: 0,
		MaxDiscount: 80,
		Step:        5,
		TopK:        3,
		UnitQty:     1,
	}
}

// Engine scores every candidate discount on the grid and ranks them by
// expected revenue. It implements pricing.Recommender.
type Engine struct {
	scorer   Scorer
	provider *pricing.Provider
	opts     Options
}

func NewEngine(scorer Scorer, provider *pricing.Provider, opts Options) *Engine {
	if opts.Step <= 0 {
		opts.Step = 5
	}
	if opts.UnitQty <= 0 {
		opts.UnitQty = 1
	}
	return &Engine{scorer: scorer, provider: provider, opts: opts}
}

// Recommend returns the top-k candidate discounts ranked by expected
// revenue, higher first, with ties broken toward the smaller discount so
// the grid walk order decides nothing. Fails closed: any scorer problem
// returns ErrScorerUnavailable and the caller falls back to the ladder.
func (e *Engine) Recommend(ctx context.Context, snap pricing.Snapshot, basePrice decimal.Decimal, topK int) ([]pricing.Recommendation, error) {
	if e.scorer == nil {
		return nil, pricing.ErrScorerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	floor := decimal.Zero
	if rs := e.provider.Current(); rs != nil {
		floor = rs.PriceFloor
	}

	unitQty := decimal.NewFromInt(int64(e.opts.UnitQty))

	candidates := make([]pricing.Recommendation, 0, (e.opts.MaxDiscount-e.opts.MinDiscount)/e.opts.Step+1)
	for d := e.opts.MinDiscount; d <= e.opts.MaxDiscount; d += e.opts.Step {
		pct := decimal.NewFromInt(int64(d))
		price := pricing.ComputePrice(basePrice, pct, floor)

		prob, err := e.scorer.Score(BuildVector(snap, basePrice, pct))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pricing.ErrScorerUnavailable, err)
		}
		if prob < 0 || prob > 1 {
			return nil, fmt.Errorf("%w: probability %v outside [0,1]", pricing.ErrScorerUnavailable, prob)
		}

		expected := decimal.NewFromFloat(prob).Mul(price).Mul(unitQty)

		candidates = append(candidates, pricing.Recommendation{
			DiscountPct:     pct,
			Price:           price,
			Probability:     prob,
			ExpectedRevenue: expected,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		cmp := candidates[i].ExpectedRevenue.Cmp(candidates[j].ExpectedRevenue)
		if cmp != 0 {
			return cmp > 0
		}
		return candidates[i].DiscountPct.LessThan(candidates[j].DiscountPct)
	})

	if topK <= 0 {
		topK = e.opts.TopK
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	return candidates[:topK], nil
}
