package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxengine/internal/logger"
	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/tax"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrPolicyVersionExists  = errors.New("policy version already published")
	ErrPolicyPeriodConflict = errors.New("policy period overlaps a published schedule")
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type CalculateTaxRequest struct {
	Regime             string            `json:"regime" binding:"required"`
	Amount             string            `json:"amount" binding:"required"` // Decimal string, e.g. "2000000.00"
	AsOf               string            `json:"as_of"`                     // YYYY-MM-DD, defaults to today
	BusinessSize       string            `json:"business_size"`
	VATCategory        string            `json:"vat_category"`
	IsBusinessClaimant *bool             `json:"is_business_claimant"`
	Discriminators     map[string]string `json:"discriminators"`
}

type ComponentResponse struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type TaxResultResponse struct {
	Regime           string              `json:"regime"`
	TaxpayerRole     string              `json:"taxpayer_role"`
	PolicyVersion    string              `json:"policy_version"`
	Amount           string              `json:"amount"`
	TaxableAmount    string              `json:"taxable_amount"`
	BaseTax          string              `json:"base_tax"`
	LevyAmount       string              `json:"levy_amount"`
	TotalTax         string              `json:"total_tax"`
	Components       []ComponentResponse `json:"components"`
	ExplanationSteps []string            `json:"explanation_steps"`
	Explanation      string              `json:"explanation"`
	SimplifiedReturn bool                `json:"simplified_return"`
	AuditRequired    bool                `json:"audit_required"`
}

type TaxSummaryRequest struct {
	GrossIncome        string `json:"gross_income" binding:"required"`
	Turnover           string `json:"turnover" binding:"required"`
	BusinessSize       string `json:"business_size"`
	VATAmount          string `json:"vat_amount"`
	VATCategory        string `json:"vat_category"`
	IsBusinessClaimant bool   `json:"is_business_claimant"`
	AsOf               string `json:"as_of"`
}

type TaxSummaryResponse struct {
	AnnualPAYE  TaxResultResponse  `json:"annual_paye"`
	MonthlyPAYE string             `json:"monthly_paye"`
	CIT         TaxResultResponse  `json:"cit"`
	VAT         *TaxResultResponse `json:"vat,omitempty"`
}

type BandInput struct {
	LowerBound  string `json:"lower_bound" yaml:"lower" binding:"required"`
	UpperBound  string `json:"upper_bound" yaml:"upper"` // empty = unbounded
	Rate        string `json:"rate" yaml:"rate" binding:"required"`
	Description string `json:"description" yaml:"description"`
}

type ScheduleInput struct {
	Role              string      `json:"role" yaml:"role" binding:"required"`
	Description       string      `json:"description" yaml:"description"`
	ReliefCeiling     string      `json:"relief_ceiling" yaml:"relief_ceiling"`
	ReliefAmount      string      `json:"relief_amount" yaml:"relief_amount"`
	LevyBasis         string      `json:"levy_basis" yaml:"levy_basis"`
	SizeClasses       []string    `json:"size_classes" yaml:"size_classes"`
	TertiaryRate      string      `json:"tertiary_rate" yaml:"tertiary_rate"`
	TertiaryAboveSize string      `json:"tertiary_above_size" yaml:"tertiary_above_size"`
	TertiaryMode      string      `json:"tertiary_mode" yaml:"tertiary_mode"`
	Bands             []BandInput `json:"bands" yaml:"bands" binding:"required,min=1"`
}

type LevyInput struct {
	Name            string   `json:"name" yaml:"name" binding:"required"`
	ThresholdAmount string   `json:"threshold_amount" yaml:"threshold" binding:"required"`
	RateBelow       string   `json:"rate_below" yaml:"rate_below" binding:"required"`
	RateAtOrAbove   string   `json:"rate_at_or_above" yaml:"rate_at_or_above" binding:"required"`
	AppliesTo       []string `json:"applies_to" yaml:"applies_to" binding:"required,min=1"`
}

type VATCategoryInput struct {
	CategoryKey string `json:"category_key" yaml:"key" binding:"required"`
	IsExempt    bool   `json:"is_exempt" yaml:"exempt"`
	Description string `json:"description" yaml:"description"`
}

type PublishPolicyRequest struct {
	PolicyVersion string             `json:"policy_version" yaml:"version" binding:"required"`
	EffectiveFrom string             `json:"effective_from" yaml:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string             `json:"effective_to" yaml:"effective_to"`                        // YYYY-MM-DD, empty = open-ended
	Schedules     []ScheduleInput    `json:"schedules" yaml:"schedules" binding:"required,min=1,dive"`
	Levies        []LevyInput        `json:"levies" yaml:"levies" binding:"dive"`
	VATCategories []VATCategoryInput `json:"vat_categories" yaml:"vat_categories" binding:"dive"`
}

type BandResponse struct {
	LowerBound  string  `json:"lower_bound"`
	UpperBound  *string `json:"upper_bound"`
	Rate        string  `json:"rate"`
	Description string  `json:"description"`
}

type ScheduleResponse struct {
	ID                string         `json:"id"`
	Role              string         `json:"role"`
	PolicyVersion     string         `json:"policy_version"`
	EffectiveFrom     string         `json:"effective_from"`
	EffectiveTo       *string        `json:"effective_to"`
	Description       string         `json:"description"`
	ReliefCeiling     *string        `json:"relief_ceiling,omitempty"`
	ReliefAmount      string         `json:"relief_amount,omitempty"`
	LevyBasis         string         `json:"levy_basis,omitempty"`
	SizeClasses       []string       `json:"size_classes,omitempty"`
	TertiaryRate      string         `json:"tertiary_rate,omitempty"`
	TertiaryAboveSize string         `json:"tertiary_above_size,omitempty"`
	TertiaryMode      string         `json:"tertiary_mode,omitempty"`
	Bands             []BandResponse `json:"bands"`
	CreatedAt         string         `json:"created_at"`
}

type PublishPolicyResponse struct {
	PolicyVersion string             `json:"policy_version"`
	Schedules     []ScheduleResponse `json:"schedules"`
	Levies        int                `json:"levies"`
	VATCategories int                `json:"vat_categories"`
	Superseded    []string           `json:"superseded"` // "role@version" closed by this publish
}

// --- Interface ---

type TaxService interface {
	CalculateTax(ctx context.Context, req CalculateTaxRequest, userRef string) (TaxResultResponse, error)
	Summarize(ctx context.Context, req TaxSummaryRequest, userRef string) (TaxSummaryResponse, error)
	PublishPolicy(ctx context.Context, req PublishPolicyRequest, userRef string) (PublishPolicyResponse, error)
	ListSchedules(ctx context.Context, page, limit int) ([]ScheduleResponse, int64, error)
	GetSchedule(ctx context.Context, role, version string) (ScheduleResponse, error)
	GetActiveSchedule(ctx context.Context, role string, date time.Time) (ScheduleResponse, error)
}

// PublishCache is flushed after a publish changes which version is in effect
type PublishCache interface {
	InvalidateActive()
	InvalidateVersion(policyVersion string)
}

type taxService struct {
	engine    *tax.Engine
	schedules repository.ScheduleRepository
	cache     PublishCache
	txManager repository.TransactionManager
	audit     repository.AuditRepository
	now       func() time.Time
}

func NewTaxService(
	engine *tax.Engine,
	schedules repository.ScheduleRepository,
	cache PublishCache,
	txManager repository.TransactionManager,
	audit repository.AuditRepository,
) TaxService {
	return &taxService{
		engine:    engine,
		schedules: schedules,
		cache:     cache,
		txManager: txManager,
		audit:     audit,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *taxService) CalculateTax(ctx context.Context, req CalculateTaxRequest, userRef string) (TaxResultResponse, error) {
	taxReq, err := s.toTaxRequest(req)
	if err != nil {
		return TaxResultResponse{}, err
	}

	result, err := s.engine.ComputeTax(ctx, taxReq)
	if err != nil {
		return TaxResultResponse{}, err
	}

	logger.L.Info("tax computed",
		"regime", result.Regime,
		"role", result.TaxpayerRole,
		"policy_version", result.PolicyVersion,
		"total_tax", result.TotalTax.StringFixed(2),
	)

	res := toTaxResultResponse(result)
	s.writeAuditLog(ctx, userRef, model.ActionCalculateTax, result.PolicyVersion,
		string(result.Regime)+" "+res.TotalTax, map[string]interface{}{"request": req, "result": res})

	return res, nil
}

func (s *taxService) Summarize(ctx context.Context, req TaxSummaryRequest, userRef string) (TaxSummaryResponse, error) {
	gross, err := tax.ParseAmount(req.GrossIncome)
	if err != nil {
		return TaxSummaryResponse{}, err
	}
	turnover, err := tax.ParseAmount(req.Turnover)
	if err != nil {
		return TaxSummaryResponse{}, err
	}
	vatAmount := decimal.Zero
	if req.VATAmount != "" {
		if vatAmount, err = tax.ParseAmount(req.VATAmount); err != nil {
			return TaxSummaryResponse{}, err
		}
	}
	asOf, err := s.parseAsOf(req.AsOf)
	if err != nil {
		return TaxSummaryResponse{}, err
	}

	summary, err := s.engine.Summarize(ctx, tax.SummaryRequest{
		GrossIncome:      gross,
		Turnover:         turnover,
		BusinessSize:     req.BusinessSize,
		VATAmount:        vatAmount,
		VATCategory:      req.VATCategory,
		BusinessClaimant: req.IsBusinessClaimant,
		AsOf:             asOf,
	})
	if err != nil {
		return TaxSummaryResponse{}, err
	}

	res := TaxSummaryResponse{
		AnnualPAYE:  toTaxResultResponse(summary.AnnualPAYE),
		MonthlyPAYE: summary.MonthlyPAYE.StringFixed(2),
		CIT:         toTaxResultResponse(summary.CIT),
	}
	if summary.VAT != nil {
		vat := toTaxResultResponse(summary.VAT)
		res.VAT = &vat
	}

	s.writeAuditLog(ctx, userRef, model.ActionSummarizeTax, summary.AnnualPAYE.PolicyVersion, "tax summary", req)

	return res, nil
}

// PublishPolicy inserts one policy version atomically. An open-ended schedule that started
// earlier is closed the day before the new version takes effect; any other overlap is rejected.
func (s *taxService) PublishPolicy(ctx context.Context, req PublishPolicyRequest, userRef string) (PublishPolicyResponse, error) {
	schedules, levies, categories, err := buildPolicy(req)
	if err != nil {
		return PublishPolicyResponse{}, err
	}

	var superseded []string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.schedules.VersionExists(txCtx, req.PolicyVersion)
		if err != nil {
			return fmt.Errorf("failed to check policy version: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: '%s'", ErrPolicyVersionExists, req.PolicyVersion)
		}

		for i := range schedules {
			schedule := &schedules[i]

			overlapping, err := s.schedules.FindOverlapping(txCtx, schedule.Role, schedule.EffectiveFrom, schedule.EffectiveTo)
			if err != nil {
				return fmt.Errorf("failed to check overlap: %w", err)
			}
			for _, prev := range overlapping {
				if prev.EffectiveTo != nil || !prev.EffectiveFrom.Before(schedule.EffectiveFrom) {
					return fmt.Errorf("%w: %s@%s is in effect from %s", ErrPolicyPeriodConflict,
						prev.Role, prev.PolicyVersion, prev.EffectiveFrom.Format(dateLayout))
				}
				if err := s.schedules.CloseSchedule(txCtx, prev.ID, schedule.EffectiveFrom.AddDate(0, 0, -1)); err != nil {
					return fmt.Errorf("failed to close %s@%s: %w", prev.Role, prev.PolicyVersion, err)
				}
				superseded = append(superseded, prev.Role+"@"+prev.PolicyVersion)
			}

			if err := s.schedules.CreateSchedule(txCtx, schedule); err != nil {
				return fmt.Errorf("failed to create %s schedule: %w", schedule.Role, err)
			}
		}

		if err := s.schedules.CreateLevyRules(txCtx, levies); err != nil {
			return fmt.Errorf("failed to create levy rules: %w", err)
		}
		if err := s.schedules.CreateVATCategories(txCtx, categories); err != nil {
			return fmt.Errorf("failed to create vat categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return PublishPolicyResponse{}, err
	}

	s.cache.InvalidateActive()
	s.cache.InvalidateVersion(req.PolicyVersion)

	logger.L.Info("tax policy published",
		"policy_version", req.PolicyVersion,
		"schedules", len(schedules),
		"levies", len(levies),
		"vat_categories", len(categories),
		"superseded", superseded,
	)

	res := PublishPolicyResponse{
		PolicyVersion: req.PolicyVersion,
		Schedules:     lo.Map(schedules, func(sc model.RateSchedule, _ int) ScheduleResponse { return toScheduleResponse(sc) }),
		Levies:        len(levies),
		VATCategories: len(categories),
		Superseded:    lo.Ternary(superseded == nil, []string{}, superseded),
	}

	s.writeAuditLog(ctx, userRef, model.ActionPublishTaxPolicy, req.PolicyVersion, "policy "+req.PolicyVersion, req)

	return res, nil
}

func (s *taxService) ListSchedules(ctx context.Context, page, limit int) ([]ScheduleResponse, int64, error) {
	schedules, total, err := s.schedules.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch schedules: %w", err)
	}
	return lo.Map(schedules, func(sc model.RateSchedule, _ int) ScheduleResponse { return toScheduleResponse(sc) }), total, nil
}

func (s *taxService) GetSchedule(ctx context.Context, role, version string) (ScheduleResponse, error) {
	schedule, err := s.schedules.GetSchedule(ctx, role, version)
	if err != nil {
		return ScheduleResponse{}, err
	}
	return toScheduleResponse(*schedule), nil
}

func (s *taxService) GetActiveSchedule(ctx context.Context, role string, date time.Time) (ScheduleResponse, error) {
	if date.IsZero() {
		date = tax.DateOnly(s.now())
	}
	schedule, err := s.schedules.FindActive(ctx, role, date)
	if err != nil {
		return ScheduleResponse{}, err
	}
	return toScheduleResponse(*schedule), nil
}

// --- Helpers ---

func (s *taxService) toTaxRequest(req CalculateTaxRequest) (tax.TaxRequest, error) {
	amount, err := tax.ParseAmount(req.Amount)
	if err != nil {
		return tax.TaxRequest{}, err
	}
	asOf, err := s.parseAsOf(req.AsOf)
	if err != nil {
		return tax.TaxRequest{}, err
	}

	disc := make(map[string]string, len(req.Discriminators)+3)
	for k, v := range req.Discriminators {
		disc[k] = v
	}
	if req.BusinessSize != "" {
		disc[tax.DiscBusinessSize] = req.BusinessSize
	}
	if req.VATCategory != "" {
		disc[tax.DiscVATCategory] = req.VATCategory
	}
	if req.IsBusinessClaimant != nil {
		disc[tax.DiscBusinessClaimant] = strconv.FormatBool(*req.IsBusinessClaimant)
	}

	return tax.TaxRequest{
		Regime:         tax.Regime(strings.ToLower(strings.TrimSpace(req.Regime))),
		Amount:         amount,
		AsOf:           asOf,
		Discriminators: disc,
	}, nil
}

func (s *taxService) parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return tax.DateOnly(s.now()), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of must be YYYY-MM-DD", ErrInvalidInput)
	}
	return t, nil
}

func buildPolicy(req PublishPolicyRequest) ([]model.RateSchedule, []model.LevyRule, []model.VATCategory, error) {
	from, err := time.Parse(dateLayout, req.EffectiveFrom)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: invalid effective_from date format (expected YYYY-MM-DD)", ErrInvalidInput)
	}
	var to *time.Time
	if req.EffectiveTo != "" {
		t, err := time.Parse(dateLayout, req.EffectiveTo)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: invalid effective_to date format (expected YYYY-MM-DD)", ErrInvalidInput)
		}
		to = &t
	}

	if dup := lo.FindDuplicates(lo.Map(req.Schedules, func(in ScheduleInput, _ int) string { return in.Role })); len(dup) > 0 {
		return nil, nil, nil, fmt.Errorf("%w: more than one schedule for role %v", model.ErrInvalidSchedule, dup)
	}

	schedules := make([]model.RateSchedule, 0, len(req.Schedules))
	hasVAT := false
	for _, in := range req.Schedules {
		schedule, err := buildSchedule(in, req.PolicyVersion, from, to)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := model.ValidateSchedule(&schedule); err != nil {
			return nil, nil, nil, err
		}
		hasVAT = hasVAT || schedule.Role == model.RoleVAT
		schedules = append(schedules, schedule)
	}

	levies := make([]model.LevyRule, 0, len(req.Levies))
	for _, in := range req.Levies {
		rule := model.LevyRule{
			PolicyVersion: req.PolicyVersion,
			Name:          strings.TrimSpace(in.Name),
			AppliesTo:     strings.Join(in.AppliesTo, ","),
		}
		if rule.ThresholdAmount, err = parseDecimal("threshold_amount", in.ThresholdAmount); err != nil {
			return nil, nil, nil, err
		}
		if rule.RateBelow, err = parseDecimal("rate_below", in.RateBelow); err != nil {
			return nil, nil, nil, err
		}
		if rule.RateAtOrAbove, err = parseDecimal("rate_at_or_above", in.RateAtOrAbove); err != nil {
			return nil, nil, nil, err
		}
		if err := model.ValidateLevyRule(&rule); err != nil {
			return nil, nil, nil, err
		}
		levies = append(levies, rule)
	}
	if dup := lo.FindDuplicates(lo.Map(levies, func(l model.LevyRule, _ int) string { return l.Name })); len(dup) > 0 {
		return nil, nil, nil, fmt.Errorf("%w: duplicate levy %v", model.ErrInvalidSchedule, dup)
	}

	categories := lo.Map(req.VATCategories, func(in VATCategoryInput, _ int) model.VATCategory {
		return model.VATCategory{
			PolicyVersion: req.PolicyVersion,
			CategoryKey:   model.NormalizeCategoryKey(in.CategoryKey),
			IsExempt:      in.IsExempt,
			Description:   in.Description,
		}
	})
	switch {
	case hasVAT && len(categories) == 0:
		return nil, nil, nil, fmt.Errorf("%w: a vat schedule needs vat categories", model.ErrInvalidSchedule)
	case !hasVAT && len(categories) > 0:
		return nil, nil, nil, fmt.Errorf("%w: vat categories need a vat schedule in the same version", model.ErrInvalidSchedule)
	}
	if err := model.ValidateVATCategories(categories); err != nil {
		return nil, nil, nil, err
	}
	if hasVAT && !lo.ContainsBy(categories, func(c model.VATCategory) bool { return c.CategoryKey == model.VATFallbackCategory }) {
		return nil, nil, nil, fmt.Errorf("%w: vat categories must include '%s'", model.ErrInvalidSchedule, model.VATFallbackCategory)
	}

	return schedules, levies, categories, nil
}

func buildSchedule(in ScheduleInput, version string, from time.Time, to *time.Time) (model.RateSchedule, error) {
	schedule := model.RateSchedule{
		Role:              strings.ToLower(strings.TrimSpace(in.Role)),
		PolicyVersion:     version,
		EffectiveFrom:     from,
		EffectiveTo:       to,
		Description:       in.Description,
		LevyBasis:         lo.Ternary(in.LevyBasis == "", model.LevyBasisPreRelief, in.LevyBasis),
		SizeClasses:       strings.Join(lo.Map(in.SizeClasses, func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) }), ","),
		TertiaryAboveSize: strings.ToLower(strings.TrimSpace(in.TertiaryAboveSize)),
		TertiaryMode:      lo.Ternary(in.TertiaryMode == "", model.TertiaryAdditive, in.TertiaryMode),
	}

	var err error
	if in.ReliefCeiling != "" {
		ceiling, err := parseDecimal("relief_ceiling", in.ReliefCeiling)
		if err != nil {
			return model.RateSchedule{}, err
		}
		schedule.ReliefCeiling = &ceiling
	}
	if schedule.ReliefAmount, err = parseOptionalDecimal("relief_amount", in.ReliefAmount); err != nil {
		return model.RateSchedule{}, err
	}
	if schedule.TertiaryRate, err = parseOptionalDecimal("tertiary_rate", in.TertiaryRate); err != nil {
		return model.RateSchedule{}, err
	}

	for i, b := range in.Bands {
		band := model.RateBand{Position: i + 1, Description: b.Description}
		if band.LowerBound, err = parseDecimal("lower_bound", b.LowerBound); err != nil {
			return model.RateSchedule{}, err
		}
		if band.Rate, err = parseDecimal("rate", b.Rate); err != nil {
			return model.RateSchedule{}, err
		}
		if b.UpperBound != "" {
			upper, err := parseDecimal("upper_bound", b.UpperBound)
			if err != nil {
				return model.RateSchedule{}, err
			}
			band.UpperBound = &upper
		}
		schedule.Bands = append(schedule.Bands, band)
	}
	return schedule, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s value '%s'", ErrInvalidInput, field, raw)
	}
	return d, nil
}

func parseOptionalDecimal(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(field, raw)
}

func toTaxResultResponse(r *tax.TaxResult) TaxResultResponse {
	return TaxResultResponse{
		Regime:        string(r.Regime),
		TaxpayerRole:  r.TaxpayerRole,
		PolicyVersion: r.PolicyVersion,
		Amount:        r.Amount.StringFixed(2),
		TaxableAmount: r.TaxableAmount.StringFixed(2),
		BaseTax:       r.BaseTax.StringFixed(2),
		LevyAmount:    r.LevyAmount.StringFixed(2),
		TotalTax:      r.TotalTax.StringFixed(2),
		Components: lo.Map(r.Components, func(c tax.Component, _ int) ComponentResponse {
			return ComponentResponse{Name: c.Name, Amount: c.Amount.StringFixed(2)}
		}),
		ExplanationSteps: r.ExplanationSteps,
		Explanation:      r.Explanation(),
		SimplifiedReturn: r.Flags.SimplifiedReturn,
		AuditRequired:    r.Flags.AuditRequired,
	}
}

func toScheduleResponse(sc model.RateSchedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:            sc.ID.String(),
		Role:          sc.Role,
		PolicyVersion: sc.PolicyVersion,
		EffectiveFrom: sc.EffectiveFrom.Format(dateLayout),
		Description:   sc.Description,
		CreatedAt:     sc.CreatedAt.Format(time.RFC3339),
		Bands: lo.Map(sc.Bands, func(b model.RateBand, _ int) BandResponse {
			br := BandResponse{LowerBound: b.LowerBound.StringFixed(2), Rate: b.Rate.StringFixed(4), Description: b.Description}
			if b.UpperBound != nil {
				upper := b.UpperBound.StringFixed(2)
				br.UpperBound = &upper
			}
			return br
		}),
	}
	if sc.EffectiveTo != nil {
		to := sc.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &to
	}

	switch sc.Role {
	case model.RolePersonal:
		resp.LevyBasis = sc.LevyBasis
		resp.ReliefAmount = sc.ReliefAmount.StringFixed(2)
		if sc.ReliefCeiling != nil {
			ceiling := sc.ReliefCeiling.StringFixed(2)
			resp.ReliefCeiling = &ceiling
		}
	case model.RoleCompany, model.RoleTrader:
		resp.SizeClasses = sc.Sizes()
		resp.TertiaryRate = sc.TertiaryRate.StringFixed(4)
		resp.TertiaryAboveSize = sc.TertiaryAboveSize
		resp.TertiaryMode = sc.TertiaryMode
	}
	return resp
}

func (s *taxService) writeAuditLog(ctx context.Context, userRef, action, entityID, entityName string, details interface{}) {
	writeAuditLog(ctx, s.audit, userRef, action, entityID, entityName, details)
}

// writeAuditLog is best-effort: a failed write is logged and never fails the operation
func writeAuditLog(ctx context.Context, repo repository.AuditRepository, userRef, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		UserRef:    userRef,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}

	if err := repo.Log(ctx, &entry); err != nil {
		logger.L.Warn("failed to write audit log", "action", action, "error", err)
	}
}
