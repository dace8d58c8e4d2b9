package tax

import (
	"context"
	"sync"
	"time"

	"taxengine/internal/model"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func band(lower, upper, rate string) model.RateBand {
	b := model.RateBand{LowerBound: dec(lower), Rate: dec(rate)}
	if upper != "" {
		b.UpperBound = ptr(upper)
	}
	return b
}

// memStore is an in-memory ScheduleStore
type memStore struct {
	mu         sync.Mutex
	schedules  []*model.RateSchedule
	levies     map[string][]model.LevyRule
	categories map[string][]model.VATCategory
	calls      map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		levies:     make(map[string][]model.LevyRule),
		categories: make(map[string][]model.VATCategory),
		calls:      make(map[string]int),
	}
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) GetSchedule(_ context.Context, role, version string) (*model.RateSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["schedule"]++
	for _, s := range m.schedules {
		if s.Role == role && s.PolicyVersion == version {
			return s, nil
		}
	}
	return nil, ErrScheduleNotFound
}

func (m *memStore) GetActiveVersion(_ context.Context, role string, asOf time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["active"]++
	var best *model.RateSchedule
	for _, s := range m.schedules {
		if s.Role != role || !s.Covers(asOf) {
			continue
		}
		if best == nil || s.EffectiveFrom.After(best.EffectiveFrom) {
			best = s
		}
	}
	if best == nil {
		return "", ErrNoApplicableSchedule
	}
	return best.PolicyVersion, nil
}

func (m *memStore) GetLevyRules(_ context.Context, version string) ([]model.LevyRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["levy"]++
	return m.levies[version], nil
}

func (m *memStore) GetVATCategories(_ context.Context, version string) ([]model.VATCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["vat"]++
	return m.categories[version], nil
}

func developmentLevy(version string) model.LevyRule {
	return model.LevyRule{
		PolicyVersion:   version,
		Name:            "development_levy",
		ThresholdAmount: dec("5000000"),
		RateBelow:       dec("0.02"),
		RateAtOrAbove:   dec("0.04"),
		AppliesTo:       "personal,trader",
	}
}

// fixtureStore holds version 2025 (no relief, no tertiary tax) and version 2026
// (rent relief, tertiary tax above small businesses).
func fixtureStore() *memStore {
	to2025 := day("2025-12-31")
	m := newMemStore()
	m.schedules = []*model.RateSchedule{
		{
			Role: model.RolePersonal, PolicyVersion: "2025",
			EffectiveFrom: day("2025-01-01"), EffectiveTo: &to2025,
			LevyBasis: model.LevyBasisPreRelief,
			Bands: []model.RateBand{
				band("0", "800000", "0"),
				band("800000", "3000000", "0.15"),
				band("3000000", "", "0.18"),
			},
		},
		{
			Role: model.RoleCompany, PolicyVersion: "2025",
			EffectiveFrom: day("2025-01-01"), EffectiveTo: &to2025,
			SizeClasses:  "small,medium,large",
			TertiaryMode: model.TertiaryAdditive,
			Bands: []model.RateBand{
				band("0", "25000000", "0"),
				band("25000000", "100000000", "0.20"),
				band("100000000", "", "0.30"),
			},
		},
		{
			Role: model.RoleVAT, PolicyVersion: "2025",
			EffectiveFrom: day("2025-01-01"), EffectiveTo: &to2025,
			Bands: []model.RateBand{band("0", "", "0.075")},
		},
		{
			Role: model.RolePersonal, PolicyVersion: "2026",
			EffectiveFrom: day("2026-01-01"),
			ReliefCeiling: ptr("1000000"), ReliefAmount: dec("200000"),
			LevyBasis: model.LevyBasisPreRelief,
			Bands: []model.RateBand{
				band("0", "800000", "0"),
				band("800000", "3000000", "0.15"),
				band("3000000", "", "0.18"),
			},
		},
		{
			Role: model.RoleCompany, PolicyVersion: "2026",
			EffectiveFrom:     day("2026-01-01"),
			SizeClasses:       "small,medium,large",
			TertiaryRate:      dec("0.03"),
			TertiaryAboveSize: "small",
			TertiaryMode:      model.TertiaryAdditive,
			Bands: []model.RateBand{
				band("0", "25000000", "0"),
				band("25000000", "", "0.20"),
			},
		},
		{
			Role: model.RoleVAT, PolicyVersion: "2026",
			EffectiveFrom: day("2026-01-01"),
			Bands:         []model.RateBand{band("0", "", "0.075")},
		},
	}
	m.levies["2025"] = []model.LevyRule{developmentLevy("2025")}
	m.levies["2026"] = []model.LevyRule{developmentLevy("2026")}
	categories := []model.VATCategory{
		{CategoryKey: "food", IsExempt: true},
		{CategoryKey: "medical", IsExempt: true},
		{CategoryKey: "basic_education", IsExempt: true},
		{CategoryKey: "electronics"},
		{CategoryKey: "other"},
	}
	m.categories["2025"] = categories
	m.categories["2026"] = categories
	return m
}

func (m *memStore) schedule(role, version string) *model.RateSchedule {
	for _, s := range m.schedules {
		if s.Role == role && s.PolicyVersion == version {
			return s
		}
	}
	panic("fixture schedule missing: " + role + " " + version)
}
