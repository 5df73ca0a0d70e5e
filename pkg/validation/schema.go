package validation

import (
	"fmt"
	"math"

	"github.com/ChicagoDave/feasibility/pkg/rent"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// ValidateSchema checks a project's inputs for structural problems before
// anything is solved.
func ValidateSchema(p *spec.Project) *Report {
	r := NewReport()
	if p.SpecVersion == "" {
		r.AddWarning(Result{
			Level:    LevelSchema,
			Message:  "spec_version is not set",
			Path:     "spec_version",
			Expected: "a version string such as 0.1.0",
		})
	}

	in := p.Inputs
	validateArea(in, r)
	validateCatalog(in, r)
	validateRents(in, r)
	validateCosts(in.CostAssumptions, r)
	validateTotalUnits(in, r)
	validateRegulatedRents(p, r)
	return r
}

func validateArea(in spec.Inputs, r *Report) {
	if in.NetResidentialSF <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "netResidentialSF must be greater than 0",
			Path:        "inputs.netResidentialSF",
			ActualValue: in.NetResidentialSF,
			Expected:    "> 0",
		})
	}
}

func validateCatalog(in spec.Inputs, r *Report) {
	if len(in.AllowedUnitTypes) == 0 {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "allowedUnitTypes must contain at least one unit type",
			Path:     "inputs.allowedUnitTypes",
			Expected: "at least 1 unit type",
		})
		return
	}

	seen := map[string]int{}
	for i, u := range in.AllowedUnitTypes {
		path := fmt.Sprintf("inputs.allowedUnitTypes[%d]", i)
		if u.Type == "" {
			r.AddError(Result{
				Level:    LevelSchema,
				Message:  fmt.Sprintf("allowedUnitTypes[%d]: type is required", i),
				Path:     path + ".type",
				Expected: "a unit type such as Studio or 2BR",
			})
			continue
		}
		if prev, ok := seen[u.Type]; ok {
			r.AddWarning(Result{
				Level:        LevelSchema,
				Message:      fmt.Sprintf("unit type %s is listed twice; the first entry is used", u.Type),
				Path:         path,
				ConflictWith: fmt.Sprintf("inputs.allowedUnitTypes[%d]", prev),
			})
			continue
		}
		seen[u.Type] = i

		if u.MinSF <= 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("%s: minSF must be > 0", u.Type),
				Path:        path + ".minSF",
				ActualValue: u.MinSF,
				Expected:    "> 0",
			})
		}
		if u.MaxSF < u.MinSF {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("%s: maxSF (%.0f) must be at least minSF (%.0f)", u.Type, u.MaxSF, u.MinSF),
				Path:        path + ".maxSF",
				ActualValue: u.MaxSF,
				Expected:    fmt.Sprintf(">= %.0f", u.MinSF),
			})
		}
	}
}

func validateRents(in spec.Inputs, r *Report) {
	catalog := map[string]bool{}
	for _, u := range in.AllowedUnitTypes {
		catalog[u.Type] = true
	}
	market := map[string]bool{}

	for i, a := range in.RentAssumptions {
		path := fmt.Sprintf("inputs.rentAssumptions[%d]", i)
		if a.MonthlyRent < 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("%s at %d%% AMI: monthlyRent must be >= 0", a.UnitType, a.AMIBand),
				Path:        path + ".monthlyRent",
				ActualValue: a.MonthlyRent,
				Expected:    ">= 0",
			})
		}
		if a.AMIBand < 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("%s: amiBand must be >= 0 (0 is market rate)", a.UnitType),
				Path:        path + ".amiBand",
				ActualValue: a.AMIBand,
				Expected:    ">= 0",
			})
		}
		if !catalog[a.UnitType] {
			r.AddWarning(Result{
				Level:   LevelSchema,
				Message: fmt.Sprintf("rent assumption for %s has no matching unit type and is never used", a.UnitType),
				Path:    path + ".unitType",
			})
		}
		if a.AMIBand == 0 {
			market[a.UnitType] = true
		}
	}

	for _, u := range in.AllowedUnitTypes {
		if u.Type != "" && !market[u.Type] {
			r.AddInfo(Result{
				Level:   LevelSchema,
				Message: fmt.Sprintf("%s has no market rent; the nearest band or the default rent is used", u.Type),
				Path:    "inputs.rentAssumptions",
			})
		}
	}
}

func validateCosts(c spec.CostAssumptions, r *Report) {
	if c.HardCostPerSF < 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "hardCostPerSF must be >= 0",
			Path:        "inputs.costAssumptions.hardCostPerSF",
			ActualValue: c.HardCostPerSF,
			Expected:    ">= 0",
		})
	} else if c.HardCostPerSF == 0 {
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     "hardCostPerSF is 0; ROI will be driven by land cost alone",
			Path:        "inputs.costAssumptions.hardCostPerSF",
			ActualValue: c.HardCostPerSF,
		})
	}
	if c.SoftCostPct < 0 || c.SoftCostPct > 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("softCostPct %.4f must be between 0 and 1", c.SoftCostPct),
			Path:        "inputs.costAssumptions.softCostPct",
			ActualValue: c.SoftCostPct,
			Expected:    "0 <= pct <= 1",
		})
	}
	if c.LandCostPerSF < 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "landCostPerSF must be >= 0",
			Path:        "inputs.costAssumptions.landCostPerSF",
			ActualValue: c.LandCostPerSF,
			Expected:    ">= 0",
		})
	}

	f := c.Financing
	if f == nil {
		return
	}
	if f.DebtTermYears <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "debtTermYears must be > 0",
			Path:        "inputs.costAssumptions.financing.debtTermYears",
			ActualValue: f.DebtTermYears,
			Expected:    "> 0",
		})
	}
	if f.InterestRate < 0 || f.InterestRate >= 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("interestRate %.4f must be >= 0 and < 1", f.InterestRate),
			Path:        "inputs.costAssumptions.financing.interestRate",
			ActualValue: f.InterestRate,
			Expected:    "0 <= rate < 1",
		})
	}
	if f.LoanToCost <= 0 || f.LoanToCost > 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("loanToCost %.4f must be > 0 and <= 1", f.LoanToCost),
			Path:        "inputs.costAssumptions.financing.loanToCost",
			ActualValue: f.LoanToCost,
			Expected:    "0 < ltc <= 1",
		})
	}
}

func validateTotalUnits(in spec.Inputs, r *Report) {
	if in.TotalUnits == nil {
		return
	}
	n := *in.TotalUnits
	if n <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "totalUnits must be > 0 when set",
			Path:        "inputs.totalUnits",
			ActualValue: n,
			Expected:    "> 0 or omitted",
		})
		return
	}

	smallest := math.Inf(1)
	for _, u := range in.AllowedUnitTypes {
		if avg := u.AvgSF(); avg > 0 && avg < smallest {
			smallest = avg
		}
	}
	if math.IsInf(smallest, 1) || in.NetResidentialSF <= 0 {
		return
	}
	if need := float64(n) * smallest; need > in.NetResidentialSF {
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%d units need at least %.0f SF at the smallest unit size; only %.0f SF is available", n, need, in.NetResidentialSF),
			Path:        "inputs.totalUnits",
			ActualValue: n,
			Expected:    fmt.Sprintf("<= %d", int(in.NetResidentialSF/smallest)),
			Suggestions: []string{"Lower totalUnits", "Allow a smaller unit type"},
		})
	}
}

func validateRegulatedRents(p *spec.Project, r *Report) {
	for i, rr := range p.RegulatedRents {
		if rr.AMIBand <= 0 {
			r.AddWarning(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("regulated rent for %s at band %d is ignored; regulated rents apply to affordable bands only", rr.UnitType, rr.AMIBand),
				Path:        fmt.Sprintf("regulated_rents[%d].amiBand", i),
				ActualValue: rr.AMIBand,
				Expected:    "> 0",
			})
		}
	}
	if s := rent.NewSchedule(p.RegulatedRents); s.Len() > 0 {
		r.AddInfo(Result{
			Level:   LevelSchema,
			Message: fmt.Sprintf("regulated rent schedule covers %d unit types", s.Len()),
			Path:    "regulated_rents",
		})
	}
}
