package pricing

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"flexiprice/pkg/logger"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	PriceFloorMultiplier float64    `yaml:"price_floor_multiplier"`
	Rules                []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name        string        `yaml:"name"`
	Reason      string        `yaml:"reason"`
	DiscountPct float64       `yaml:"discount_pct"`
	Conditions  conditionSpec `yaml:"conditions"`
}

type conditionSpec struct {
	MaxDaysToExpiry *int     `yaml:"max_days_to_expiry"`
	MinInventory    *int     `yaml:"min_inventory"`
	Categories      []string `yaml:"categories"`
}

// ParseRules parses and validates a YAML rule ladder.
func ParseRules(data []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("parse yaml: %v", err)}
	}

	rs := &RuleSet{
		PriceFloor: decimal.NewFromFloat(file.PriceFloorMultiplier),
		Rules:      make([]DiscountRule, 0, len(file.Rules)),
	}

	for _, spec := range file.Rules {
		rule := DiscountRule{
			Name:            spec.Name,
			Reason:          spec.Reason,
			DiscountPct:     decimal.NewFromFloat(spec.DiscountPct),
			MaxDaysToExpiry: spec.Conditions.MaxDaysToExpiry,
			MinInventory:    spec.Conditions.MinInventory,
		}

		if rule.Reason == "" {
			rule.Reason = rule.Name
		}

		rule.categories = parseCategories(spec.Conditions.Categories)

		rs.Rules = append(rs.Rules, rule)
	}

	if err := rs.validate(); err != nil {
		return nil, err
	}

	return rs, nil
}

// parseCategories lowercases the category set once at load. A nil result
// means wildcard: an empty list or an explicit "*" entry both match any
// category.
func parseCategories(cats []string) map[string]struct{} {
	if len(cats) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		if c == "*" {
			return nil
		}
		set[strings.ToLower(c)] = struct{}{}
	}

	return set
}

// Provider holds the current RuleSet behind an atomic pointer so reloads
// swap the whole set at once. Readers never observe a partial update.
type Provider struct {
	path    string
	current atomic.Pointer[RuleSet]
}

func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Load reads and validates the rule file, then publishes it. The previous
// set stays live if the new one fails validation.
func (p *Provider) Load() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return &ConfigError{Msg: fmt.Sprintf("read %s: %v", p.path, err)}
	}

	rs, err := ParseRules(data)
	if err != nil {
		return err
	}

	p.current.Store(rs)
	logger.Info("discount rules loaded", "path", p.path, "rules", len(rs.Rules), "price_floor", rs.PriceFloor)

	return nil
}

// Reload re-reads the rule file and swaps the set atomically.
func (p *Provider) Reload() error {
	return p.Load()
}

// Current returns the live rule set, nil before the first successful Load.
func (p *Provider) Current() *RuleSet {
	return p.current.Load()
}

// NewStaticProvider wraps an already-built rule set; used by tests and by
// callers that manage their own configuration source.
func NewStaticProvider(rs *RuleSet) *Provider {
	p := &Provider{}
	p.current.Store(rs)
	return p
}
