package cost

import (
	"math"
	"testing"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

func defaultCosts() spec.CostAssumptions {
	return spec.CostAssumptions{
		HardCostPerSF: 400,
		SoftCostPct:   0.25,
		LandCostPerSF: 150,
	}
}

func TestDevelopmentBreakdown(t *testing.T) {
	b := Development(defaultCosts(), 50000, 52500)

	if b.Hard != 20_000_000 {
		t.Errorf("hard = $%.2f, want $20,000,000", b.Hard)
	}
	if b.Soft != 5_000_000 {
		t.Errorf("soft = $%.2f, want $5,000,000", b.Soft)
	}
	if b.Land != 7_875_000 {
		t.Errorf("land = $%.2f, want $7,875,000", b.Land)
	}
	if b.Total != b.Hard+b.Soft+b.Land {
		t.Errorf("total = $%.2f, want sum of parts $%.2f", b.Total, b.Hard+b.Soft+b.Land)
	}
}

func TestDevelopmentRoundsToCents(t *testing.T) {
	c := spec.CostAssumptions{HardCostPerSF: 333.333, SoftCostPct: 0.1}
	b := Development(c, 1, 0)
	if b.Hard != 333.33 {
		t.Errorf("hard = %v, want 333.33", b.Hard)
	}
	if b.Soft != 33.33 {
		t.Errorf("soft = %v, want 33.33", b.Soft)
	}
}

func TestDevelopmentNegativeArea(t *testing.T) {
	b := Development(defaultCosts(), -100, -100)
	if b.Total != 0 {
		t.Errorf("total = %v, want 0 for negative area", b.Total)
	}
}

func TestEvaluateROI(t *testing.T) {
	dev := Breakdown{Total: 10_000_000}
	f := Evaluate(defaultCosts(), dev, 100_000)

	if f.AnnualRevenue != 1_200_000 {
		t.Errorf("annual revenue = %v, want 1,200,000", f.AnnualRevenue)
	}
	if math.Abs(f.ROI-0.12) > 1e-9 {
		t.Errorf("roi = %v, want 0.12", f.ROI)
	}
	if f.AnnualDebtService != 0 {
		t.Error("expected no debt service without financing")
	}
}

func TestEvaluateZeroCost(t *testing.T) {
	f := Evaluate(defaultCosts(), Breakdown{}, 100_000)
	if f.ROI != 0 {
		t.Errorf("roi = %v, want 0 when cost is zero", f.ROI)
	}
}

func TestEvaluateFinancing(t *testing.T) {
	c := defaultCosts()
	c.Financing = &spec.Financing{InterestRate: 0.05, DebtTermYears: 30, LoanToCost: 0.5}
	f := Evaluate(c, Breakdown{Total: 2_000_000}, 20_000)

	if f.LoanAmount != 1_000_000 {
		t.Errorf("loan = %v, want 1,000,000", f.LoanAmount)
	}
	if math.Abs(f.AnnualDebtService-65051) > 100 {
		t.Errorf("debt service = $%.0f, want ~$65,051", f.AnnualDebtService)
	}
	want := 240_000 / f.AnnualDebtService
	if math.Abs(f.DebtServiceCoverage-want) > 1e-9 {
		t.Errorf("dscr = %v, want %v", f.DebtServiceCoverage, want)
	}
}

func TestAnnuityFormula(t *testing.T) {
	// $1M at 5% for 30 years
	annual := AnnualDebtService(1_000_000, 0.05, 30)
	// Expected: ~$65,051 (standard amortization)
	if math.Abs(annual-65051) > 100 {
		t.Errorf("annuity = $%.0f, want ~$65,051", annual)
	}
}

func TestAnnuityZeroRate(t *testing.T) {
	annual := AnnualDebtService(1_000_000, 0, 30)
	expected := 1_000_000.0 / 30.0
	if math.Abs(annual-expected) > 1 {
		t.Errorf("annuity at 0%% = $%.0f, want $%.0f", annual, expected)
	}
}

func TestAnnuityZeroTerm(t *testing.T) {
	annual := AnnualDebtService(1_000_000, 0.05, 0)
	if annual != 0 {
		t.Errorf("annuity at 0 term = $%.0f, want $0", annual)
	}
}
