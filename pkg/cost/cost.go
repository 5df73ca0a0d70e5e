package cost

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Breakdown itemizes development cost by category.
type Breakdown struct {
	Hard  float64 `json:"hard"`
	Soft  float64 `json:"soft"`
	Land  float64 `json:"land"`
	Total float64 `json:"total"`
}

// Financials are the return figures reported alongside an allocation.
type Financials struct {
	AnnualRevenue       float64 `json:"annual_revenue"`
	DevelopmentCost     float64 `json:"development_cost"`
	ROI                 float64 `json:"roi"`
	LoanAmount          float64 `json:"loan_amount,omitempty"`
	AnnualDebtService   float64 `json:"annual_debt_service,omitempty"`
	DebtServiceCoverage float64 `json:"debt_service_coverage,omitempty"`
}

// Development computes the cost to build builtSF of residential area on a
// site of siteSF buildable area. Hard cost scales with built area, soft cost
// is a share of hard cost, land is priced per buildable SF.
// Sums are carried in decimal and rounded to cents.
func Development(c spec.CostAssumptions, builtSF, siteSF float64) Breakdown {
	hard := decimal.NewFromFloat(c.HardCostPerSF).Mul(decimal.NewFromFloat(math.Max(builtSF, 0))).Round(2)
	soft := hard.Mul(decimal.NewFromFloat(c.SoftCostPct)).Round(2)
	land := decimal.NewFromFloat(c.LandCostPerSF).Mul(decimal.NewFromFloat(math.Max(siteSF, 0))).Round(2)
	total := hard.Add(soft).Add(land)

	return Breakdown{
		Hard:  hard.InexactFloat64(),
		Soft:  soft.InexactFloat64(),
		Land:  land.InexactFloat64(),
		Total: total.InexactFloat64(),
	}
}

// Evaluate derives the ROI proxy (annual revenue over development cost) and,
// when financing is given, debt service and coverage.
func Evaluate(c spec.CostAssumptions, dev Breakdown, monthlyRevenue float64) Financials {
	annual := decimal.NewFromFloat(monthlyRevenue).Mul(decimal.NewFromInt(12)).Round(2)
	f := Financials{
		AnnualRevenue:   annual.InexactFloat64(),
		DevelopmentCost: dev.Total,
	}
	if dev.Total > 0 {
		f.ROI = f.AnnualRevenue / dev.Total
	}

	if fin := c.Financing; fin != nil && fin.LoanToCost > 0 {
		loan := decimal.NewFromFloat(dev.Total).Mul(decimal.NewFromFloat(fin.LoanToCost)).Round(2)
		f.LoanAmount = loan.InexactFloat64()
		f.AnnualDebtService = AnnualDebtService(f.LoanAmount, fin.InterestRate, fin.DebtTermYears)
		if f.AnnualDebtService > 0 {
			f.DebtServiceCoverage = f.AnnualRevenue / f.AnnualDebtService
		}
	}
	return f
}

// AnnualDebtService uses the standard annuity formula.
// P * r(1+r)^n / ((1+r)^n - 1)
// At 0% interest, returns principal / term.
func AnnualDebtService(principal, rate float64, termYears int) float64 {
	if termYears <= 0 {
		return 0
	}
	if rate <= 0 {
		return principal / float64(termYears)
	}
	n := float64(termYears)
	factor := math.Pow(1+rate, n)
	return principal * rate * factor / (factor - 1)
}
