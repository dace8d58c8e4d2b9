package tax

import (
	"fmt"

	"taxengine/internal/model"

	"github.com/shopspring/decimal"
)

// EvaluateBrackets computes marginal tax over ascending, contiguous bands.
// Each band taxes only the slice of amount between its bounds; an amount that sits
// exactly on a ceiling is taxed at the lower band's rate. No rounding happens here.
func EvaluateBrackets(bands []model.RateBand, amount decimal.Decimal) (decimal.Decimal, []string, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, nil, err
	}
	if err := model.ValidateBands(bands); err != nil {
		return decimal.Zero, nil, err
	}
	if amount.IsZero() {
		return decimal.Zero, []string{"amount is 0.00: exempt, no tax due"}, nil
	}

	tax := decimal.Zero
	steps := make([]string, 0, len(bands))
	for _, band := range bands {
		top := amount
		if !band.Unbounded() && band.UpperBound.LessThan(amount) {
			top = *band.UpperBound
		}
		slice := top.Sub(band.LowerBound)
		if slice.IsNegative() {
			slice = decimal.Zero
		}
		bandTax := slice.Mul(band.Rate)
		tax = tax.Add(bandTax)
		steps = append(steps, describeBand(band, slice, bandTax))

		if band.Unbounded() || amount.LessThanOrEqual(*band.UpperBound) {
			break
		}
	}
	return tax, steps, nil
}

func describeBand(band model.RateBand, slice, bandTax decimal.Decimal) string {
	if band.Unbounded() {
		return fmt.Sprintf("above %s at %s: %s x %s = %s",
			money(band.LowerBound), percent(band.Rate), money(slice), percent(band.Rate), money(bandTax))
	}
	return fmt.Sprintf("%s to %s at %s: %s x %s = %s",
		money(band.LowerBound), money(*band.UpperBound), percent(band.Rate), money(slice), percent(band.Rate), money(bandTax))
}
