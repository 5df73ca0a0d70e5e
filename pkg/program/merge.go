package program

import (
	"math"
	"slices"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// BandRequirement is the merged requirement for one AMI band.
type BandRequirement struct {
	AMIBand  int      `json:"amiBand"`
	Pct      float64  `json:"pct"`
	MinUnits int      `json:"minUnits"`
	Programs []string `json:"programs"`
}

// MergedConstraintSet is the normalized target produced from overlapping programs.
type MergedConstraintSet struct {
	MaxAffordablePct       float64           `json:"maxAffordablePct"`
	MergedAffordableTarget int               `json:"mergedAffordableTarget"`
	BandRequirements       []BandRequirement `json:"bandRequirements"`
	ProgramNames           []string          `json:"programNames"`
}

// Band returns the requirement for an AMI band, if present.
func (m MergedConstraintSet) Band(amiBand int) (BandRequirement, bool) {
	for _, b := range m.BandRequirements {
		if b.AMIBand == amiBand {
			return b, true
		}
	}
	return BandRequirement{}, false
}

// Merge collapses program constraints into one target for estTotalUnits units.
//
// Overlap is resolved by maximum, never by sum: the affordable share is the
// strictest program's floor and each band takes the highest percentage any
// program asks of it, capped at 100%. Band units are apportioned by largest remainder and
// always sum to the affordable target.
func Merge(constraints []spec.ProgramConstraint, estTotalUnits int) MergedConstraintSet {
	merged := MergedConstraintSet{
		BandRequirements: []BandRequirement{},
		ProgramNames:     []string{},
	}
	if len(constraints) == 0 {
		return merged
	}

	bands := map[int]*BandRequirement{}
	for _, c := range constraints {
		name := c.Program
		if name != "" && !slices.Contains(merged.ProgramNames, name) {
			merged.ProgramNames = append(merged.ProgramNames, name)
		}
		merged.MaxAffordablePct = math.Max(merged.MaxAffordablePct, c.MinAffordablePct)

		for _, band := range constraintBands(c) {
			pct := c.MinPctByBand[band]
			br, ok := bands[band]
			if !ok {
				br = &BandRequirement{AMIBand: band}
				bands[band] = br
			}
			br.Pct = math.Max(br.Pct, pct)
			if name != "" && !slices.Contains(br.Programs, name) {
				br.Programs = append(br.Programs, name)
			}
		}
	}

	// A share above 100% would place more affordable units than the building holds.
	merged.MaxAffordablePct = math.Min(merged.MaxAffordablePct, 1)
	if estTotalUnits > 0 {
		merged.MergedAffordableTarget = int(math.Ceil(merged.MaxAffordablePct*float64(estTotalUnits) - 1e-9))
	}

	keys := make([]int, 0, len(bands))
	for k := range bands {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	sum := 0.0
	for _, k := range keys {
		sum += bands[k].Pct
	}
	if sum > 1.0 {
		for _, k := range keys {
			bands[k].Pct /= sum
		}
	}

	shares := make([]float64, len(keys))
	for i, k := range keys {
		shares[i] = bands[k].Pct
	}
	units := LargestRemainder(shares, merged.MergedAffordableTarget, true)
	for i, k := range keys {
		br := *bands[k]
		br.MinUnits = units[i]
		if br.Programs == nil {
			br.Programs = []string{}
		}
		merged.BandRequirements = append(merged.BandRequirements, br)
	}
	return merged
}

// constraintBands lists the bands a constraint declares, in declared order,
// followed by any band that only appears in MinPctByBand.
func constraintBands(c spec.ProgramConstraint) []int {
	out := make([]int, 0, len(c.AMIBands)+len(c.MinPctByBand))
	for _, b := range c.AMIBands {
		if b > 0 && !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	extra := make([]int, 0)
	for b := range c.MinPctByBand {
		if b > 0 && !slices.Contains(out, b) {
			extra = append(extra, b)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
