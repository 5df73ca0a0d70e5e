package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// ValidatePrograms checks program constraints after presets are resolved.
// Stacking conflicts between programs present together are errors.
func ValidatePrograms(constraints []spec.ProgramConstraint) *Report {
	r := NewReport()

	resolved := make([]spec.ProgramConstraint, len(constraints))
	for i, c := range constraints {
		path := fmt.Sprintf("inputs.programConstraints[%d]", i)
		rc, err := program.Resolve(c)
		if err != nil {
			r.AddError(Result{
				Level:       LevelProgram,
				Message:     err.Error(),
				Path:        path + ".preset",
				ActualValue: c.Preset,
				Expected:    "one of " + strings.Join(program.PresetNames(), ", "),
			})
		}
		resolved[i] = rc
		validateProgram(rc, path, r)
	}

	for _, c := range program.Conflicts(resolved) {
		r.AddError(Result{
			Level:        LevelProgram,
			Message:      fmt.Sprintf("%s cannot be stacked with %s", c.Program, c.ConflictWith),
			Path:         "inputs.programConstraints",
			ConflictWith: c.ConflictWith,
			Suggestions:  []string{fmt.Sprintf("Remove %s or %s", c.Program, c.ConflictWith)},
		})
	}
	return r
}

func validateProgram(c spec.ProgramConstraint, path string, r *Report) {
	name := c.Program
	if name == "" {
		name = path
		r.AddWarning(Result{
			Level:   LevelProgram,
			Message: "program has no name; slacks and tags will be unlabeled",
			Path:    path + ".program",
		})
	}

	if c.MinAffordablePct < 0 || c.MinAffordablePct > 1 {
		r.AddError(Result{
			Level:       LevelProgram,
			Message:     fmt.Sprintf("%s: minAffordablePct %.4f must be between 0 and 1", name, c.MinAffordablePct),
			Path:        path + ".minAffordablePct",
			ActualValue: c.MinAffordablePct,
			Expected:    "0 <= pct <= 1",
		})
	}

	sum := 0.0
	lowest := 0
	for _, band := range c.AMIBands {
		if band <= 0 {
			r.AddError(Result{
				Level:       LevelProgram,
				Message:     fmt.Sprintf("%s: AMI band %d must be > 0", name, band),
				Path:        path + ".amiBands",
				ActualValue: band,
				Expected:    "> 0",
			})
			continue
		}
		if lowest == 0 || band < lowest {
			lowest = band
		}
	}
	for _, band := range sortedBands(c.MinPctByBand) {
		pct := c.MinPctByBand[band]
		bandPath := fmt.Sprintf("%s.minPctByBand[%d]", path, band)
		if pct < 0 || pct > 1 {
			r.AddError(Result{
				Level:       LevelProgram,
				Message:     fmt.Sprintf("%s: band %d share %.4f must be between 0 and 1", name, band, pct),
				Path:        bandPath,
				ActualValue: pct,
				Expected:    "0 <= pct <= 1",
			})
		}
		if !slices.Contains(c.AMIBands, band) {
			r.AddInfo(Result{
				Level:   LevelProgram,
				Message: fmt.Sprintf("%s: band %d has a share but is not listed in amiBands; it is still enforced", name, band),
				Path:    bandPath,
			})
		}
		sum += pct
	}
	if sum > 1.0001 {
		r.AddWarning(Result{
			Level:       LevelProgram,
			Message:     fmt.Sprintf("%s: band shares sum to %.2f; they will be scaled to 1", name, sum),
			Path:        path + ".minPctByBand",
			ActualValue: sum,
			Expected:    "<= 1",
		})
	}

	if m := c.BedroomMix; m != nil && (m.Min2BRPlusPct < 0 || m.Min2BRPlusPct > 1) {
		r.AddError(Result{
			Level:       LevelProgram,
			Message:     fmt.Sprintf("%s: min2BRPlusPct %.4f must be between 0 and 1", name, m.Min2BRPlusPct),
			Path:        path + ".bedroomMix.min2BRPlusPct",
			ActualValue: m.Min2BRPlusPct,
			Expected:    "0 <= pct <= 1",
		})
	}

	if c.WeightedAvgAMIMax > 0 && lowest > 0 && c.WeightedAvgAMIMax < float64(lowest) {
		r.AddWarning(Result{
			Level:       LevelProgram,
			Message:     fmt.Sprintf("%s: weighted AMI cap %.0f is below its lowest band %d and cannot be met", name, c.WeightedAvgAMIMax, lowest),
			Path:        path + ".weightedAvgAmiMax",
			ActualValue: c.WeightedAvgAMIMax,
			Expected:    fmt.Sprintf(">= %d", lowest),
		})
	}
}

func sortedBands(m map[int]float64) []int {
	out := make([]int, 0, len(m))
	for b := range m {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// FromSlacks reports an allocation's constraint outcome: violated
// constraints are errors and binding ones are informational.
func FromSlacks(slacks []optimizer.ConstraintSlack) *Report {
	r := NewReport()
	for _, s := range slacks {
		res := Result{
			Level:       LevelOutcome,
			Path:        string(s.Category),
			ActualValue: s.Actual,
			Expected:    fmt.Sprintf("%s %g", kindSymbol(s.Kind), s.Required),
		}
		switch {
		case s.Violated():
			res.Message = fmt.Sprintf("%s violated by %g", s.Constraint, -s.Slack)
			r.AddError(res)
		case s.Binding:
			res.Message = fmt.Sprintf("%s is binding", s.Constraint)
			r.AddInfo(res)
		}
	}
	return r
}

func kindSymbol(k optimizer.ConstraintKind) string {
	if k == optimizer.AtMost {
		return "<="
	}
	return ">="
}
