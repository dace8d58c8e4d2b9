package tax

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type SummaryRequest struct {
	GrossIncome      decimal.Decimal
	Turnover         decimal.Decimal
	BusinessSize     string
	VATAmount        decimal.Decimal
	VATCategory      string // empty skips the VAT line
	BusinessClaimant bool
	AsOf             time.Time
}

// TaxSummary combines the annual PAYE, CIT and optional VAT results for one taxpayer
type TaxSummary struct {
	AnnualPAYE  *TaxResult      `json:"annual_paye"`
	MonthlyPAYE decimal.Decimal `json:"monthly_paye"`
	CIT         *TaxResult      `json:"cit"`
	VAT         *TaxResult      `json:"vat,omitempty"`
}

var twelve = decimal.NewFromInt(12)

// Summarize runs PAYE on gross income and CIT on turnover, plus VAT when a category is given
func (e *Engine) Summarize(ctx context.Context, req SummaryRequest) (*TaxSummary, error) {
	paye, err := e.ComputeTax(ctx, TaxRequest{Regime: RegimePAYE, Amount: req.GrossIncome, AsOf: req.AsOf})
	if err != nil {
		return nil, err
	}

	cit, err := e.ComputeTax(ctx, TaxRequest{
		Regime:         RegimeCIT,
		Amount:         req.Turnover,
		AsOf:           req.AsOf,
		Discriminators: map[string]string{DiscBusinessSize: req.BusinessSize},
	})
	if err != nil {
		return nil, err
	}

	summary := &TaxSummary{
		AnnualPAYE:  paye,
		MonthlyPAYE: paye.TotalTax.Div(twelve).Round(2),
		CIT:         cit,
	}

	if req.VATCategory != "" {
		vat, err := e.ComputeTax(ctx, TaxRequest{
			Regime: RegimeVAT,
			Amount: req.VATAmount,
			AsOf:   req.AsOf,
			Discriminators: map[string]string{
				DiscVATCategory:      req.VATCategory,
				DiscBusinessClaimant: strconv.FormatBool(req.BusinessClaimant),
			},
		})
		if err != nil {
			return nil, err
		}
		summary.VAT = vat
	}
	return summary, nil
}
