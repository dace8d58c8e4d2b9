package tax

import (
	"context"
	"fmt"
	"time"

	"taxengine/internal/model"

	"github.com/shopspring/decimal"
)

// Engine resolves the regime for a request and runs its pipeline. It holds no mutable
// state; concurrent calls are safe as long as the store is.
type Engine struct {
	store ScheduleStore
}

func NewEngine(store ScheduleStore) *Engine {
	return &Engine{store: store}
}

// ComputeTax computes the liability for one request
func (e *Engine) ComputeTax(ctx context.Context, req TaxRequest) (*TaxResult, error) {
	parsed, err := ParseRequest(req)
	if err != nil {
		return nil, err
	}

	switch r := parsed.(type) {
	case PAYERequest:
		return e.computePAYE(ctx, r)
	case BusinessRequest:
		return e.computeBusiness(ctx, r)
	case VATRequest:
		return e.computeVAT(ctx, r)
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedRegime, req.Regime)
}

func (e *Engine) computePAYE(ctx context.Context, r PAYERequest) (*TaxResult, error) {
	schedule, err := e.loadSchedule(ctx, model.RolePersonal, r.AsOf)
	if err != nil {
		return nil, err
	}
	policy, err := NewPersonalPolicy(schedule)
	if err != nil {
		return nil, err
	}

	b := newResultBuilder(RegimePAYE, model.RolePersonal, policy.Version, r.Amount)

	// relief comes off before the bands are walked
	taxable, relieved := policy.TaxableIncome(r.Amount)
	b.res.TaxableAmount = taxable
	if relieved {
		b.step("rent relief of %s applied (income at or below %s): taxable income %s",
			money(policy.ReliefAmount), money(*policy.ReliefCeiling), money(taxable))
	}

	base, steps, err := EvaluateBrackets(policy.Bands, taxable)
	if err != nil {
		return nil, err
	}
	b.addBase("paye", base, steps)

	levyBase := r.Amount
	if policy.LevyBasis == model.LevyBasisPostRelief {
		levyBase = taxable
	}
	if err := e.applyLevies(ctx, b, policy.Version, model.RolePersonal, levyBase); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

func (e *Engine) computeBusiness(ctx context.Context, r BusinessRequest) (*TaxResult, error) {
	schedule, err := e.loadSchedule(ctx, model.RoleCompany, r.AsOf)
	if err != nil {
		return nil, err
	}
	policy, err := NewCompanyPolicy(schedule)
	if err != nil {
		return nil, err
	}
	size, err := policy.ResolveSize(r.BusinessSize)
	if err != nil {
		return nil, err
	}

	levyRole := model.RoleCompany
	if r.Regime == RegimeSmallBusiness {
		levyRole = model.RoleTrader
	}

	b := newResultBuilder(r.Regime, model.RoleCompany, policy.Version, r.Amount)

	base, steps, err := EvaluateBrackets(policy.Bands, r.Amount)
	if err != nil {
		return nil, err
	}
	b.addBase("cit", base, steps)

	if policy.QualifiesForSimplifiedReturn(r.Amount) {
		b.res.Flags = Flags{SimplifiedReturn: true, AuditRequired: false}
		b.step("turnover within the zero-rate band: simplified return, no audit required")
	} else {
		b.res.Flags = Flags{SimplifiedReturn: false, AuditRequired: true}
		b.step("turnover above the zero-rate band: full return, audit required")
	}

	switch {
	case !policy.TertiaryRate.IsPositive():
		// no tertiary education tax under this version
	case !policy.TertiaryApplies(size):
		b.step("no tertiary education tax for %s businesses", size)
	case policy.TertiaryMode == model.TertiaryIncluded:
		b.step("tertiary education tax of %s included in the headline rate", percent(policy.TertiaryRate))
	default:
		surcharge := r.Amount.Mul(policy.TertiaryRate)
		b.addLevy("tertiary_education_tax", surcharge, fmt.Sprintf("tertiary education tax: %s of %s = %s",
			percent(policy.TertiaryRate), money(r.Amount), money(surcharge)))
	}

	if err := e.applyLevies(ctx, b, policy.Version, levyRole, r.Amount); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

// computeVAT runs the classifier only; VAT carries no bands and no levies
func (e *Engine) computeVAT(ctx context.Context, r VATRequest) (*TaxResult, error) {
	schedule, err := e.loadSchedule(ctx, model.RoleVAT, r.AsOf)
	if err != nil {
		return nil, err
	}
	policy, err := NewVATPolicy(schedule)
	if err != nil {
		return nil, err
	}
	categories, err := e.store.GetVATCategories(ctx, policy.Version)
	if err != nil {
		return nil, err
	}
	classifier, err := NewVATClassifier(categories, policy.StandardRate)
	if err != nil {
		return nil, err
	}
	vat, explanation, err := classifier.Classify(r.Category, r.Amount, r.BusinessClaimant)
	if err != nil {
		return nil, err
	}

	b := newResultBuilder(RegimeVAT, model.RoleVAT, policy.Version, r.Amount)
	b.addBase("vat", vat, []string{explanation})
	return b.finish(), nil
}

func (e *Engine) loadSchedule(ctx context.Context, role string, asOf time.Time) (*model.RateSchedule, error) {
	version, err := e.store.GetActiveVersion(ctx, role, asOf)
	if err != nil {
		return nil, err
	}
	return e.store.GetSchedule(ctx, role, version)
}

func (e *Engine) applyLevies(ctx context.Context, b *resultBuilder, version, role string, amount decimal.Decimal) error {
	rules, err := e.store.GetLevyRules(ctx, version)
	if err != nil {
		return err
	}
	for _, rule := range LeviesFor(rules, role) {
		levy, step := ComputeLevy(rule, amount)
		b.addLevy(rule.Name, levy, step)
	}
	return nil
}
