// Package fees computes the tiered commission charged on remittances.
package fees

import (
	"context"
	"fmt"

	"remesitas-go/internal/models"

	"github.com/shopspring/decimal"
)

// RuleSource supplies the active fee rules. *database.Service implements it.
type RuleSource interface {
	ActiveFeeRules(ctx context.Context) ([]models.FeeRule, error)
}

// Quote is the fee breakdown for one amount.
type Quote struct {
	Percent decimal.Decimal
	Fixed   decimal.Decimal
	Total   decimal.Decimal
	RuleId  string
}

type Calculator struct {
	rules RuleSource
}

func NewCalculator(rules RuleSource) *Calculator {
	return &Calculator{rules: rules}
}

// Compute selects the matching rule for amount and returns the fee
// breakdown. When several rules match, the narrowest range wins; an
// unbounded maximum counts as infinite width, and equal widths break the
// tie toward the lowest minimum. No matching rule means zero fee.
func (c *Calculator) Compute(ctx context.Context, amount decimal.Decimal) (Quote, error) {
	if !amount.IsPositive() {
		return Quote{}, fmt.Errorf("amount must be positive, got %s", amount.String())
	}

	rules, err := c.rules.ActiveFeeRules(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("unable to load fee rules: %w", err)
	}

	var best *models.FeeRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Matches(amount) {
			continue
		}
		if best == nil || narrower(rule, best) {
			best = rule
		}
	}

	if best == nil {
		return Quote{Percent: decimal.Zero, Fixed: decimal.Zero, Total: decimal.Zero}, nil
	}

	total := amount.Mul(best.Percent).Div(decimal.NewFromInt(100)).Add(best.Fixed)
	return Quote{
		Percent: best.Percent,
		Fixed:   best.Fixed,
		Total:   total,
		RuleId:  best.Id,
	}, nil
}

// narrower reports whether a beats b under the tie-break ordering.
func narrower(a, b *models.FeeRule) bool {
	switch {
	case a.Max == nil && b.Max == nil:
		return a.Min.LessThan(b.Min)
	case a.Max == nil:
		return false
	case b.Max == nil:
		return true
	}

	widthA := a.Max.Sub(a.Min)
	widthB := b.Max.Sub(b.Min)
	if widthA.Equal(widthB) {
		return a.Min.LessThan(b.Min)
	}
	return widthA.LessThan(widthB)
}
