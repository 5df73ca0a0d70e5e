// Package sensitivity re-solves a project under fixed market and cost shocks
// to show how fragile an allocation's return is.
package sensitivity

import (
	"context"
	"slices"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/rent"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// AreaRelaxation is the factor applied to net residential SF when a shocked
// scenario needs more room to become feasible.
const AreaRelaxation = 1.02

// Relaxation names which retry produced a row's result.
type Relaxation string

const (
	RelaxNone  Relaxation = ""
	RelaxUnits Relaxation = "totalUnits+1"
	RelaxArea  Relaxation = "netResidentialSF x1.02"
)

// Row is the outcome of one shocked scenario.
type Row struct {
	Scenario      string     `json:"scenario"`
	BaselineROI   float64    `json:"baselineROI"`
	ShockedROI    float64    `json:"shockedROI"`
	DeltaROI      float64    `json:"deltaROI"`
	StillFeasible bool       `json:"stillFeasible"`
	Relaxation    Relaxation `json:"relaxation,omitempty"`
	TotalUnits    int        `json:"totalUnits"`
	Affordable    int        `json:"affordableUnits"`
}

type target int

const (
	marketRent target = iota
	affordableRent
	hardCost
	landCost
)

type scenario struct {
	label  string
	target target
	factor float64
}

// Scenarios run in this order and rows are reported in it.
var scenarios = []scenario{
	{"+10% market rent", marketRent, 1.10},
	{"-10% market rent", marketRent, 0.90},
	{"+10% affordable rent", affordableRent, 1.10},
	{"-10% affordable rent", affordableRent, 0.90},
	{"+10% hard cost", hardCost, 1.10},
	{"-10% hard cost", hardCost, 0.90},
	{"+10% land cost", landCost, 1.10},
	{"-10% land cost", landCost, 0.90},
}

// Labels returns the scenario labels in report order.
func Labels() []string {
	out := make([]string, len(scenarios))
	for i, sc := range scenarios {
		out[i] = sc.label
	}
	return out
}

// Run solves every scenario against its own copy of base and returns one
// row per scenario in fixed order. baseResult supplies the baseline ROI; when
// nil, base is solved first. Scenarios are relaxed only when the baseline is
// feasible, so an already infeasible baseline is compared like for like.
// Scenarios run concurrently. Only context cancellation produces an error.
func Run(ctx context.Context, s *optimizer.Solver, base spec.Inputs, baseResult *optimizer.Result) ([]Row, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("sensitivity")
	if baseResult == nil {
		baseResult = s.Solve(base.Clone())
	}

	rows := make([]Row, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			in, solver := sc.apply(base.Clone(), s)
			var res *optimizer.Result
			relax := RelaxNone
			if baseResult.Feasible {
				res, relax = solveRelaxed(solver, in)
			} else {
				res = solver.Solve(in)
			}
			rows[i] = Row{
				Scenario:      sc.label,
				BaselineROI:   baseResult.ROI,
				ShockedROI:    res.ROI,
				DeltaROI:      res.ROI - baseResult.ROI,
				StillFeasible: res.Feasible,
				Relaxation:    relax,
				TotalUnits:    res.TotalUnits,
				Affordable:    res.AffordableUnits,
			}
			log.V(1).Info("Scenario solved", "scenario", sc.label, "roi", res.ROI, "feasible", res.Feasible, "relaxation", string(relax))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// apply shocks the inputs and, for affordable rent, the solver's regulated
// rent lookup.
func (sc scenario) apply(in spec.Inputs, s *optimizer.Solver) (spec.Inputs, *optimizer.Solver) {
	switch sc.target {
	case marketRent:
		in.RentAssumptions = withMarketDefaults(in, s.Tables().DefaultRent)
		for i := range in.RentAssumptions {
			if in.RentAssumptions[i].AMIBand <= 0 {
				in.RentAssumptions[i].MonthlyRent *= sc.factor
			}
		}
	case affordableRent:
		in.RentAssumptions = withMarketDefaults(in, s.Tables().DefaultRent)
		for i := range in.RentAssumptions {
			if in.RentAssumptions[i].AMIBand > 0 {
				in.RentAssumptions[i].MonthlyRent *= sc.factor
			}
		}
		s = s.WithRegulatedRents(rent.Scaled(s.RegulatedRents(), sc.factor))
	case hardCost:
		in.CostAssumptions.HardCostPerSF *= sc.factor
	case landCost:
		in.CostAssumptions.LandCostPerSF *= sc.factor
	}
	return in, s
}

// withMarketDefaults makes the market rent the solver would resolve explicit
// for every unit type without a market assumption, so a shock scales exactly
// the rents the baseline used.
func withMarketDefaults(in spec.Inputs, defaultRent float64) []spec.RentAssumption {
	table := rent.NewTable(in.RentAssumptions, defaultRent)
	out := in.RentAssumptions
	for _, u := range in.AllowedUnitTypes {
		if slices.ContainsFunc(in.RentAssumptions, func(r spec.RentAssumption) bool {
			return r.UnitType == u.Type && r.AMIBand <= 0
		}) {
			continue
		}
		r, _ := table.Rent(u.Type, 0)
		out = append(out, spec.RentAssumption{UnitType: u.Type, MonthlyRent: r})
	}
	return out
}

// solveRelaxed solves in; if infeasible it retries with one more unit (fixed
// totals only) and then with more area. The first feasible result wins,
// otherwise the unrelaxed result is reported.
func solveRelaxed(s *optimizer.Solver, in spec.Inputs) (*optimizer.Result, Relaxation) {
	res := s.Solve(in)
	if res.Feasible {
		return res, RelaxNone
	}
	if n, fixed := in.FixedTotal(); fixed {
		retry := in.Clone()
		n++
		retry.TotalUnits = &n
		if r := s.Solve(retry); r.Feasible {
			return r, RelaxUnits
		}
	}
	retry := in.Clone()
	retry.NetResidentialSF *= AreaRelaxation
	if r := s.Solve(retry); r.Feasible {
		return r, RelaxArea
	}
	return res, RelaxNone
}
