package tax

import (
	"fmt"
	"strings"
	"unicode"

	"taxengine/internal/model"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// VATClassifier maps categories to exempt or taxable status for one policy version
type VATClassifier struct {
	categories   map[string]model.VATCategory
	standardRate decimal.Decimal
}

func NewVATClassifier(categories []model.VATCategory, standardRate decimal.Decimal) (*VATClassifier, error) {
	if err := model.ValidateVATCategories(categories); err != nil {
		return nil, err
	}
	byKey := lo.KeyBy(categories, func(c model.VATCategory) string { return model.NormalizeCategoryKey(c.CategoryKey) })
	return &VATClassifier{categories: byKey, standardRate: standardRate}, nil
}

// Classify returns the VAT due and its explanation. Exemption is checked before
// the business reclaim; unknown categories are errors, never defaulted.
func (c *VATClassifier) Classify(category string, amount decimal.Decimal, businessClaimant bool) (decimal.Decimal, string, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, "", err
	}
	key := model.NormalizeCategoryKey(category)
	if key == "" {
		return decimal.Zero, "", fmt.Errorf("%w: %s is required for vat", ErrMissingDiscriminator, DiscVATCategory)
	}

	cat, ok := c.categories[key]
	if !ok {
		if key != model.VATFallbackCategory {
			return decimal.Zero, "", fmt.Errorf("%w: '%s'", ErrUnknownVATCategory, key)
		}
		cat = model.VATCategory{CategoryKey: model.VATFallbackCategory}
	}

	switch {
	case cat.IsExempt:
		return decimal.Zero, fmt.Sprintf("%s is VAT-exempt", displayCategory(key)), nil
	case businessClaimant:
		return decimal.Zero, "Input VAT reclaimed for business", nil
	}
	return amount.Mul(c.standardRate), fmt.Sprintf("%s VAT applied", percent(c.standardRate)), nil
}

func displayCategory(key string) string {
	name := strings.ReplaceAll(key, "_", " ")
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
