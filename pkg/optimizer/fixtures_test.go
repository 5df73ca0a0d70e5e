package optimizer

import (
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// testCatalog averages 400/600/800/1000 SF, so the baseline mix averages 700 SF.
func testCatalog() []spec.UnitTypeConfig {
	return []spec.UnitTypeConfig{
		{Type: spec.Studio, MinSF: 350, MaxSF: 450},
		{Type: spec.OneBR, MinSF: 550, MaxSF: 650},
		{Type: spec.TwoBR, MinSF: 750, MaxSF: 850},
		{Type: spec.ThreeBR, MinSF: 950, MaxSF: 1050},
	}
}

func testRents() []spec.RentAssumption {
	market := map[string]float64{spec.Studio: 2000, spec.OneBR: 2600, spec.TwoBR: 3300, spec.ThreeBR: 4000}
	byBand := map[int]map[string]float64{
		40: {spec.Studio: 800, spec.OneBR: 1000, spec.TwoBR: 1200, spec.ThreeBR: 1400},
		60: {spec.Studio: 1200, spec.OneBR: 1500, spec.TwoBR: 1800, spec.ThreeBR: 2100},
		80: {spec.Studio: 1600, spec.OneBR: 2000, spec.TwoBR: 2400, spec.ThreeBR: 2800},
	}
	var out []spec.RentAssumption
	for _, t := range []string{spec.Studio, spec.OneBR, spec.TwoBR, spec.ThreeBR} {
		out = append(out, spec.RentAssumption{UnitType: t, MonthlyRent: market[t]})
		for _, band := range []int{40, 60, 80} {
			out = append(out, spec.RentAssumption{UnitType: t, AMIBand: band, MonthlyRent: byBand[band][t]})
		}
	}
	return out
}

func testCosts() spec.CostAssumptions {
	return spec.CostAssumptions{HardCostPerSF: 400, SoftCostPct: 0.25, LandCostPerSF: 150}
}

func testInputs(netSF float64, total int, constraints ...spec.ProgramConstraint) spec.Inputs {
	in := spec.Inputs{
		NetResidentialSF:   netSF,
		AllowedUnitTypes:   testCatalog(),
		RentAssumptions:    testRents(),
		CostAssumptions:    testCosts(),
		ProgramConstraints: constraints,
	}
	if total > 0 {
		in.TotalUnits = &total
	}
	return in
}

func mihConstraint() spec.ProgramConstraint {
	return spec.ProgramConstraint{
		Program:                      "MIH",
		MinAffordablePct:             0.25,
		AMIBands:                     []int{40, 60, 80},
		MinPctByBand:                 map[int]float64{40: 0.10, 60: 0.50, 80: 0.40},
		RequiresProportionalBedrooms: true,
	}
}

func slacksOf(slacks []ConstraintSlack, cat Category) []ConstraintSlack {
	var out []ConstraintSlack
	for _, s := range slacks {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

func countWhere(allocs []Allocation, keep func(Allocation) bool) int {
	n := 0
	for _, a := range allocs {
		if keep(a) {
			n += a.Count
		}
	}
	return n
}
