package tax

import (
	"fmt"
	"sort"

	"taxengine/internal/model"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ComputeLevy charges a flat rate on the whole amount. The rate is picked by comparing
// the amount with the threshold; this is not marginal and never goes through the bands.
func ComputeLevy(rule model.LevyRule, amount decimal.Decimal) (decimal.Decimal, string) {
	rate := rule.RateAtOrAbove
	position := "at or above"
	if amount.LessThan(rule.ThresholdAmount) {
		rate = rule.RateBelow
		position = "below"
	}
	levy := amount.Mul(rate)
	return levy, fmt.Sprintf("%s: %s of %s (%s threshold %s) = %s",
		rule.Name, percent(rate), money(amount), position, money(rule.ThresholdAmount), money(levy))
}

// LeviesFor returns the rules charged for role, ordered by name
func LeviesFor(rules []model.LevyRule, role string) []model.LevyRule {
	out := lo.Filter(rules, func(r model.LevyRule, _ int) bool { return r.AppliesToRole(role) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
