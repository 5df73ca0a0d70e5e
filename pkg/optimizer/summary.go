package optimizer

import (
	"github.com/ChicagoDave/feasibility/pkg/cost"
	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Result is the outcome of one solve.
type Result struct {
	Allocations     []Allocation      `json:"allocations"`
	ConstraintSlack []ConstraintSlack `json:"constraintSlack"`

	TotalUnits      int     `json:"totalUnits"`
	AffordableUnits int     `json:"affordableUnits"`
	MarketUnits     int     `json:"marketUnits"`
	TotalSF         float64 `json:"totalSF"`
	MonthlyRent     float64 `json:"monthlyRent"`
	AnnualRent      float64 `json:"annualRent"`
	// BlendedAMI is the count-weighted mean band of affordable units.
	BlendedAMI float64 `json:"blendedAMI"`

	DevelopmentCost     float64        `json:"developmentCost"`
	CostBreakdown       cost.Breakdown `json:"costBreakdown"`
	ROI                 float64        `json:"roi"`
	LoanAmount          float64        `json:"loanAmount,omitempty"`
	AnnualDebtService   float64        `json:"annualDebtService,omitempty"`
	DebtServiceCoverage float64        `json:"debtServiceCoverage,omitempty"`

	Feasible         bool   `json:"feasible"`
	SolverMethod     string `json:"solverMethod"`
	RepairIterations int    `json:"repairIterations"`
	ClimbIterations  int    `json:"climbIterations"`

	Merged program.MergedConstraintSet `json:"merged"`
	Notes  []string                    `json:"notes,omitempty"`
}

// summarize aggregates the final ledger into a Result.
func (p *problem) summarize(l *Ledger) *Result {
	allocs := l.Allocations()
	slacks := p.evaluate(l)

	res := &Result{
		Allocations:     allocs,
		ConstraintSlack: slacks,
		TotalUnits:      l.Units(),
		AffordableUnits: l.AffordableUnits(),
		TotalSF:         l.UsedSF(),
		MonthlyRent:     l.MonthlyRevenue(),
		Feasible:        IsFeasible(slacks),
		SolverMethod:    SolverMethod,
		Merged:          p.merged,
	}
	res.MarketUnits = res.TotalUnits - res.AffordableUnits
	res.BlendedAMI = blendedAMI(allocs)

	dev := cost.Development(p.costs, res.TotalSF, p.netSF)
	fin := cost.Evaluate(p.costs, dev, res.MonthlyRent)
	res.CostBreakdown = dev
	res.DevelopmentCost = fin.DevelopmentCost
	res.AnnualRent = fin.AnnualRevenue
	res.ROI = fin.ROI
	res.LoanAmount = fin.LoanAmount
	res.AnnualDebtService = fin.AnnualDebtService
	res.DebtServiceCoverage = fin.DebtServiceCoverage

	if p.fixed && res.TotalUnits != p.total {
		res.Notes = append(res.Notes, "allocation does not reach the requested unit total")
	}
	return res
}

func blendedAMI(allocs []Allocation) float64 {
	weighted, n := 0, 0
	for _, a := range allocs {
		if a.Affordable() {
			weighted += a.AMIBand * a.Count
			n += a.Count
		}
	}
	if n == 0 {
		return 0
	}
	return float64(weighted) / float64(n)
}

// emptyResult is returned for inputs with nothing to allocate.
func emptyResult(in spec.Inputs, reason string) *Result {
	slacks := EvaluateConstraints(nil, in.NetResidentialSF, in.ProgramConstraints)
	return &Result{
		Allocations:     []Allocation{},
		ConstraintSlack: slacks,
		Feasible:        false,
		SolverMethod:    SolverMethod,
		Merged:          program.Merge(nil, 0),
		Notes:           []string{reason},
	}
}
