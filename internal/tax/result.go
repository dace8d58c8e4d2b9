package tax

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Flags struct {
	SimplifiedReturn bool `json:"simplified_return"`
	AuditRequired    bool `json:"audit_required"`
}

// Component is one unrounded contribution to the total (base tax, a levy or a surcharge)
type Component struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// TaxResult is the engine output. TotalTax == BaseTax + LevyAmount holds exactly.
type TaxResult struct {
	Regime           Regime          `json:"regime"`
	TaxpayerRole     string          `json:"taxpayer_role"`
	PolicyVersion    string          `json:"policy_version"`
	Amount           decimal.Decimal `json:"amount"`
	TaxableAmount    decimal.Decimal `json:"taxable_amount"`
	BaseTax          decimal.Decimal `json:"base_tax"`
	LevyAmount       decimal.Decimal `json:"levy_amount"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	Components       []Component     `json:"components"`
	ExplanationSteps []string        `json:"explanation_steps"`
	Flags            Flags           `json:"flags"`
}

// Explanation joins the explanation steps in order
func (r *TaxResult) Explanation() string {
	return strings.Join(r.ExplanationSteps, "; ")
}

// resultBuilder accumulates unrounded amounts and ordered steps for one computation
type resultBuilder struct {
	res  TaxResult
	base decimal.Decimal
	levy decimal.Decimal
}

func newResultBuilder(regime Regime, role, version string, amount decimal.Decimal) *resultBuilder {
	return &resultBuilder{
		res: TaxResult{
			Regime:           regime,
			TaxpayerRole:     role,
			PolicyVersion:    version,
			Amount:           amount,
			TaxableAmount:    amount,
			Components:       []Component{},
			ExplanationSteps: []string{},
		},
		base: decimal.Zero,
		levy: decimal.Zero,
	}
}

func (b *resultBuilder) step(format string, args ...any) {
	b.res.ExplanationSteps = append(b.res.ExplanationSteps, fmt.Sprintf(format, args...))
}

func (b *resultBuilder) addBase(name string, amount decimal.Decimal, steps []string) {
	b.base = b.base.Add(amount)
	b.res.Components = append(b.res.Components, Component{Name: name, Amount: amount})
	b.res.ExplanationSteps = append(b.res.ExplanationSteps, steps...)
}

func (b *resultBuilder) addLevy(name string, amount decimal.Decimal, step string) {
	b.levy = b.levy.Add(amount)
	b.res.Components = append(b.res.Components, Component{Name: name, Amount: amount})
	b.res.ExplanationSteps = append(b.res.ExplanationSteps, step)
}

// finish rounds once: the total is rounded half-up to 2 dp, the reported base is rounded
// and the levy takes the remainder so the reported fields still sum exactly.
func (b *resultBuilder) finish() *TaxResult {
	total := b.base.Add(b.levy).Round(2)
	base := b.base.Round(2)
	b.res.TotalTax = total
	b.res.BaseTax = base
	b.res.LevyAmount = total.Sub(base)
	return &b.res
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var hundred = decimal.NewFromInt(100)

func percent(rate decimal.Decimal) string {
	return rate.Mul(hundred).String() + "%"
}
