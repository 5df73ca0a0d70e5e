package optimizer

import (
	"slices"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// repairable lists the categories repair may act on. Total SF is a hard cap
// enforced during placement; unit sizes are fixed by the catalog.
func (p *problem) repairable(c Category) bool {
	switch c {
	case CategoryTwoBRPlus, CategoryProportionality, CategoryWeightedAMI:
		return true
	case CategoryBand, CategoryAffordablePct:
		// With an exact unit count the apportioned bands are accepted as is.
		return !p.fixed
	}
	return false
}

// severity normalizes a violation so percentages and AMI points compare.
func severity(s ConstraintSlack) float64 {
	if s.Required > 0 {
		return s.Slack / s.Required
	}
	return s.Slack
}

// worstViolation returns the most violated repairable constraint.
func (p *problem) worstViolation(slacks []ConstraintSlack) (ConstraintSlack, bool) {
	var worst ConstraintSlack
	found := false
	for _, s := range slacks {
		if !s.Violated() || !p.repairable(s.Category) {
			continue
		}
		if !found || severity(s) < severity(worst) {
			worst, found = s, true
		}
	}
	return worst, found
}

// repairMove applies one targeted mutation for the violation to a snapshot
// of l. It returns the snapshot, or false when no eligible move exists.
func (p *problem) repairMove(l *Ledger, v ConstraintSlack) (*Ledger, bool) {
	trial := l.Clone()
	var ok bool
	switch v.Category {
	case CategoryTwoBRPlus:
		ok = p.moveToTwoBR(trial)
	case CategoryProportionality:
		ok = p.moveTowardMarketMix(trial)
	case CategoryWeightedAMI:
		ok = p.moveToLowerBand(trial, v.Program)
	case CategoryBand, CategoryAffordablePct:
		ok = p.convertMarketUnit(trial, v)
	}
	if !ok {
		return l, false
	}
	// A move may grow the building; give the area back from market units.
	if !p.withinBudget(trial) && !p.downsizeMarket(trial) {
		return l, false
	}
	return trial, true
}

// affordableEntries lists affordable allocations matching keep, largest first.
func affordableEntries(l *Ledger, keep func(Allocation) bool) []Allocation {
	var out []Allocation
	for _, a := range l.Allocations() {
		if a.Affordable() && keep(a) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b Allocation) int { return b.Count - a.Count })
	return out
}

// moveToTwoBR converts one studio or 1BR affordable unit to the smallest
// 2BR+ type at the same band.
func (p *problem) moveToTwoBR(l *Ledger) bool {
	target := ""
	for _, t := range p.types {
		if spec.IsTwoBRPlus(t) {
			target = t
			break
		}
	}
	if target == "" {
		return false
	}
	src := affordableEntries(l, func(a Allocation) bool { return spec.Bedrooms(a.UnitType) < 2 })
	if len(src) == 0 {
		return false
	}
	return p.move(l, src[0].UnitType, src[0].AMIBand, target, src[0].AMIBand)
}

// moveTowardMarketMix moves one affordable unit from the type most
// over-represented relative to market to the most under-represented type.
func (p *problem) moveTowardMarketMix(l *Ledger) bool {
	pl := splitPools(l.Allocations())
	for _, t := range p.types {
		if !slices.Contains(pl.types, t) {
			pl.types = append(pl.types, t)
		}
	}
	_, over, under := pl.deviation()
	if over == "" || under == "" || over == under {
		return false
	}
	if _, ok := p.byType[under]; !ok {
		return false
	}
	src := affordableEntries(l, func(a Allocation) bool { return a.UnitType == over })
	if len(src) == 0 {
		return false
	}
	return p.move(l, over, src[0].AMIBand, under, src[0].AMIBand)
}

// moveToLowerBand moves one unit from the highest affordable band present
// to the lowest band the violating program references.
func (p *problem) moveToLowerBand(l *Ledger, programName string) bool {
	lowest := 0
	for _, c := range p.constraints {
		if c.Program != programName {
			continue
		}
		for _, b := range constraintBandList(c) {
			if lowest == 0 || b < lowest {
				lowest = b
			}
		}
	}
	if lowest == 0 && len(p.merged.BandRequirements) > 0 {
		lowest = p.merged.BandRequirements[0].AMIBand
	}

	highest := 0
	for _, a := range l.Allocations() {
		if a.Affordable() && a.AMIBand > highest {
			highest = a.AMIBand
		}
	}
	if lowest == 0 || highest <= lowest {
		return false
	}
	src := affordableEntries(l, func(a Allocation) bool { return a.AMIBand == highest })
	if len(src) == 0 {
		return false
	}
	return p.move(l, src[0].UnitType, highest, src[0].UnitType, lowest)
}

func constraintBandList(c spec.ProgramConstraint) []int {
	out := slices.Clone(c.AMIBands)
	for b := range c.MinPctByBand {
		if !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	return slices.DeleteFunc(out, func(b int) bool { return b <= 0 })
}

// convertMarketUnit turns one market unit affordable. The mid-catalog type is
// the neutral default; failing that, the most common market type.
func (p *problem) convertMarketUnit(l *Ledger, v ConstraintSlack) bool {
	band := v.AMIBand
	if band <= 0 {
		band = p.neediestBand(l)
	}
	if len(p.types) == 0 {
		return false
	}
	unitType := p.types[len(p.types)/2]
	if l.Count(unitType, 0) == 0 {
		unitType = ""
		most := 0
		for _, t := range p.types {
			if n := l.Count(t, 0); n > most {
				unitType, most = t, n
			}
		}
	}
	if unitType == "" {
		return false
	}
	return p.move(l, unitType, 0, unitType, band)
}

// neediestBand returns the band furthest below its minimum unit count.
func (p *problem) neediestBand(l *Ledger) int {
	band, gap := p.defaultBand(), 0
	for _, b := range p.merged.BandRequirements {
		have := 0
		for _, a := range l.Allocations() {
			if a.AMIBand == b.AMIBand {
				have += a.Count
			}
		}
		if d := b.MinUnits - have; d > gap {
			band, gap = b.AMIBand, d
		}
	}
	return band
}
