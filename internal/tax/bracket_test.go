package tax

import (
	"testing"

	"taxengine/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payeBands() []model.RateBand {
	return []model.RateBand{
		band("0", "800000", "0"),
		band("800000", "3000000", "0.15"),
		band("3000000", "", "0.18"),
	}
}

func TestEvaluateBrackets(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		wantTax   string
		wantSteps int
	}{
		{"inside first band", "500000", "0", 1},
		{"spans two bands", "2000000", "180000", 2},
		{"exactly on a ceiling stays in the lower band", "3000000", "330000", 2},
		{"one above a ceiling enters the next band", "3000001", "330000.18", 3},
		{"unbounded band", "10000000", "1590000", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, steps, err := EvaluateBrackets(payeBands(), dec(tt.amount))
			require.NoError(t, err)
			assert.True(t, dec(tt.wantTax).Equal(tax), "got %s", tax)
			assert.Len(t, steps, tt.wantSteps)
		})
	}
}

func TestEvaluateBrackets_StepText(t *testing.T) {
	_, steps, err := EvaluateBrackets(payeBands(), dec("4000000"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0.00 to 800000.00 at 0%: 800000.00 x 0% = 0.00",
		"800000.00 to 3000000.00 at 15%: 2200000.00 x 15% = 330000.00",
		"above 3000000.00 at 18%: 1000000.00 x 18% = 180000.00",
	}, steps)
}

func TestEvaluateBrackets_ZeroAmount(t *testing.T) {
	tax, steps, err := EvaluateBrackets(payeBands(), dec("0"))
	require.NoError(t, err)
	assert.True(t, tax.IsZero())
	assert.Equal(t, []string{"amount is 0.00: exempt, no tax due"}, steps)
}

func TestEvaluateBrackets_Rejects(t *testing.T) {
	_, _, err := EvaluateBrackets(payeBands(), dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	gap := []model.RateBand{band("0", "100", "0"), band("200", "", "0.1")}
	_, _, err = EvaluateBrackets(gap, dec("500"))
	assert.ErrorIs(t, err, model.ErrInvalidSchedule)
}

func TestEvaluateBrackets_Monotonic(t *testing.T) {
	prev := dec("0")
	for amount := int64(0); amount <= 12000000; amount += 250000 {
		tax, _, err := EvaluateBrackets(payeBands(), decimal.NewFromInt(amount))
		require.NoError(t, err)
		assert.False(t, tax.LessThan(prev), "tax fell at %d", amount)
		prev = tax
	}
}
