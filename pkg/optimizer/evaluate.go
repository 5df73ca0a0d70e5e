package optimizer

import (
	"fmt"
	"math"
	"slices"

	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// FeasibilityTolerance absorbs floating rounding when judging slack.
const FeasibilityTolerance = 0.001

// ConstraintKind says which way a constraint points.
type ConstraintKind string

const (
	// AtLeast constraints have slack = actual - required.
	AtLeast ConstraintKind = "at_least"
	// AtMost constraints have slack = required - actual.
	AtMost ConstraintKind = "at_most"
)

// Category identifies the rule a slack measures.
type Category string

const (
	CategoryTotalSF         Category = "total_sf"
	CategoryAffordablePct   Category = "affordable_pct"
	CategoryBand            Category = "band"
	CategoryProportionality Category = "proportionality"
	CategoryTwoBRPlus       Category = "two_br_plus"
	CategoryUnitMinSize     Category = "unit_min_size"
	CategoryWeightedAMI     Category = "weighted_ami"
)

// ConstraintSlack measures one constraint against an allocation.
// Slack >= 0 means satisfied.
type ConstraintSlack struct {
	Constraint string         `json:"constraint"`
	Category   Category       `json:"category"`
	Kind       ConstraintKind `json:"kind"`
	Program    string         `json:"program,omitempty"`
	AMIBand    int            `json:"amiBand,omitempty"`
	UnitType   string         `json:"unitType,omitempty"`
	Required   float64        `json:"required"`
	Actual     float64        `json:"actual"`
	Slack      float64        `json:"slack"`
	Binding    bool           `json:"binding"`
}

// Violated reports whether slack is below tolerance.
func (s ConstraintSlack) Violated() bool {
	return s.Slack < -FeasibilityTolerance
}

func newSlack(label string, cat Category, kind ConstraintKind, required, actual float64) ConstraintSlack {
	s := ConstraintSlack{
		Constraint: label,
		Category:   cat,
		Kind:       kind,
		Required:   required,
		Actual:     actual,
	}
	if kind == AtMost {
		s.Slack = required - actual
	} else {
		s.Slack = actual - required
	}
	s.Binding = s.Slack <= FeasibilityTolerance
	return s
}

// IsFeasible holds iff every slack is within tolerance. An empty list is feasible.
func IsFeasible(slacks []ConstraintSlack) bool {
	for _, s := range slacks {
		if s.Violated() {
			return false
		}
	}
	return true
}

// EvaluateConstraints scores allocations against netSF and the program
// constraints using the default tables.
func EvaluateConstraints(allocs []Allocation, netSF float64, constraints []spec.ProgramConstraint) []ConstraintSlack {
	resolved, _ := program.ResolveAll(constraints)
	return evaluator{tables: program.DefaultTables()}.evaluate(allocs, netSF, resolved)
}

type evaluator struct {
	tables program.Tables
}

// pools splits allocations into affordable and market unit counts by type.
type pools struct {
	affordable, market           map[string]int
	affordableTotal, marketTotal int
	types                        []string
}

func splitPools(allocs []Allocation) pools {
	p := pools{affordable: map[string]int{}, market: map[string]int{}}
	for _, a := range allocs {
		if a.Count <= 0 {
			continue
		}
		if !slices.Contains(p.types, a.UnitType) {
			p.types = append(p.types, a.UnitType)
		}
		if a.Affordable() {
			p.affordable[a.UnitType] += a.Count
			p.affordableTotal += a.Count
		} else {
			p.market[a.UnitType] += a.Count
			p.marketTotal += a.Count
		}
	}
	return p
}

func (p pools) affordableShare(unitType string) float64 {
	if p.affordableTotal == 0 {
		return 0
	}
	return float64(p.affordable[unitType]) / float64(p.affordableTotal)
}

func (p pools) marketShare(unitType string) float64 {
	if p.marketTotal == 0 {
		return 0
	}
	return float64(p.market[unitType]) / float64(p.marketTotal)
}

// deviation returns the largest |affordable share - market share| and the
// unit types most over- and under-represented among affordable units.
func (p pools) deviation() (maxDev float64, over, under string) {
	if p.affordableTotal == 0 {
		return 0, "", ""
	}
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, t := range p.types {
		d := p.affordableShare(t) - p.marketShare(t)
		if math.Abs(d) > maxDev {
			maxDev = math.Abs(d)
		}
		if d > hi && p.affordable[t] > 0 {
			hi, over = d, t
		}
		if d < lo {
			lo, under = d, t
		}
	}
	return maxDev, over, under
}

func (e evaluator) evaluate(allocs []Allocation, netSF float64, constraints []spec.ProgramConstraint) []ConstraintSlack {
	usedSF := 0.0
	totalUnits := 0
	bandUnits := map[int]int{}
	amiWeighted := 0.0
	for _, a := range allocs {
		usedSF += a.TotalSF
		totalUnits += a.Count
		if a.Affordable() {
			bandUnits[a.AMIBand] += a.Count
			amiWeighted += float64(a.AMIBand * a.Count)
		}
	}

	slacks := []ConstraintSlack{
		newSlack("Total SF <= Net Residential SF", CategoryTotalSF, AtMost, netSF, usedSF),
	}
	if len(constraints) == 0 {
		return slacks
	}

	p := splitPools(allocs)
	merged := program.Merge(constraints, totalUnits)

	actualPct := 0.0
	if totalUnits > 0 {
		actualPct = float64(p.affordableTotal) / float64(totalUnits)
	}
	slacks = append(slacks, newSlack(
		fmt.Sprintf("Affordable share >= %.2f%%", merged.MaxAffordablePct*100),
		CategoryAffordablePct, AtLeast, merged.MaxAffordablePct, actualPct))

	for _, b := range merged.BandRequirements {
		if b.Pct <= 0 {
			continue
		}
		// With whole units the attainable share is the apportioned one.
		required := b.Pct
		if merged.MergedAffordableTarget > 0 {
			required = float64(b.MinUnits) / float64(merged.MergedAffordableTarget)
		}
		actual := 0.0
		if p.affordableTotal > 0 {
			actual = float64(bandUnits[b.AMIBand]) / float64(p.affordableTotal)
		}
		s := newSlack(fmt.Sprintf("%d%% AMI share", b.AMIBand), CategoryBand, AtLeast, required, actual)
		s.AMIBand = b.AMIBand
		slacks = append(slacks, s)
	}

	if program.RequiresProportional(constraints) {
		maxDev, _, _ := p.deviation()
		slacks = append(slacks, newSlack("Affordable bedroom mix proportional to market",
			CategoryProportionality, AtMost, e.tables.ProportionalityTolerance, maxDev))
	}

	for _, c := range constraints {
		if c.BedroomMix != nil && c.BedroomMix.Min2BRPlusPct > 0 {
			twoPlus := 0
			for t, n := range p.affordable {
				if spec.IsTwoBRPlus(t) {
					twoPlus += n
				}
			}
			actual := 0.0
			if p.affordableTotal > 0 {
				actual = float64(twoPlus) / float64(p.affordableTotal)
			}
			s := newSlack(fmt.Sprintf("%s: 2BR+ share of affordable", c.Program),
				CategoryTwoBRPlus, AtLeast, c.BedroomMix.Min2BRPlusPct, actual)
			s.Program = c.Program
			slacks = append(slacks, s)
		}
	}

	for _, c := range constraints {
		for _, t := range sortedKeys(c.UnitMinSizes) {
			minSF := c.UnitMinSizes[t]
			smallest := math.Inf(1)
			for _, a := range allocs {
				if a.Affordable() && a.Count > 0 && a.UnitType == t && a.AvgSF < smallest {
					smallest = a.AvgSF
				}
			}
			if smallest < minSF {
				s := newSlack(fmt.Sprintf("%s: %s minimum size", c.Program, t),
					CategoryUnitMinSize, AtLeast, minSF, smallest)
				s.Program = c.Program
				s.UnitType = t
				slacks = append(slacks, s)
			}
		}
	}

	for _, c := range constraints {
		if c.WeightedAvgAMIMax <= 0 {
			continue
		}
		actual := 0.0
		if p.affordableTotal > 0 {
			actual = amiWeighted / float64(p.affordableTotal)
		}
		s := newSlack(fmt.Sprintf("%s: weighted average AMI <= %.0f%%", c.Program, c.WeightedAvgAMIMax),
			CategoryWeightedAMI, AtMost, c.WeightedAvgAMIMax, actual)
		s.Program = c.Program
		slacks = append(slacks, s)
	}

	return slacks
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
