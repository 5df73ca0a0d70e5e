package optimizer

import (
	"math"
	"slices"

	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/rent"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// problem is everything derived from one set of inputs. It is built fresh
// for every solve and never shared.
type problem struct {
	netSF       float64
	constraints []spec.ProgramConstraint
	costs       spec.CostAssumptions

	// catalog is sorted by average SF ascending, with program minimum
	// sizes already applied.
	catalog []spec.UnitTypeConfig
	byType  map[string]spec.UnitTypeConfig
	types   []string

	fixed bool
	total int

	merged        program.MergedConstraintSet
	marketMix     map[string]float64
	affordableMix map[string]float64
	proportional  bool

	tables    program.Tables
	regulated rent.Lookup
	rents     *rent.Table
	eval      evaluator
}

func newProblem(in spec.Inputs, constraints []spec.ProgramConstraint, tables program.Tables, regulated rent.Lookup) *problem {
	p := &problem{
		netSF:       in.NetResidentialSF,
		constraints: constraints,
		costs:       in.CostAssumptions,
		byType:      map[string]spec.UnitTypeConfig{},
		tables:      tables,
		regulated:   regulated,
		rents:       rent.NewTable(in.RentAssumptions, tables.DefaultRent),
		eval:        evaluator{tables: tables},
	}

	p.catalog = applyMinSizes(in.AllowedUnitTypes, constraints)
	for _, u := range p.catalog {
		p.byType[u.Type] = u
		p.types = append(p.types, u.Type)
	}

	p.total, p.fixed = in.FixedTotal()
	est := p.total
	if !p.fixed {
		est = p.estimateUnits()
	}

	p.merged = program.Merge(constraints, est)
	p.proportional = program.RequiresProportional(constraints)
	p.marketMix = tables.MarketMix(p.types, constraints)
	p.affordableMix = tables.AffordableMix(p.types, constraints)
	return p
}

// applyMinSizes raises each unit type's minimum to the binding (largest)
// minimum any program sets, dedupes by type, and sorts by average SF.
func applyMinSizes(catalog []spec.UnitTypeConfig, constraints []spec.ProgramConstraint) []spec.UnitTypeConfig {
	out := make([]spec.UnitTypeConfig, 0, len(catalog))
	seen := map[string]bool{}
	for _, u := range catalog {
		if seen[u.Type] {
			continue
		}
		seen[u.Type] = true
		for _, c := range constraints {
			if m, ok := c.UnitMinSizes[u.Type]; ok && m > u.MinSF {
				u.MinSF = m
			}
		}
		if u.MaxSF < u.MinSF {
			u.MaxSF = u.MinSF
		}
		out = append(out, u)
	}
	slices.SortStableFunc(out, func(a, b spec.UnitTypeConfig) int {
		switch {
		case a.AvgSF() < b.AvgSF():
			return -1
		case a.AvgSF() > b.AvgSF():
			return 1
		}
		return 0
	})
	return out
}

// estimateUnits bounds the unit count by filling the area with the
// smallest-footprint unit type.
func (p *problem) estimateUnits() int {
	if len(p.catalog) == 0 || p.catalog[0].AvgSF() <= 0 {
		return 0
	}
	return int(math.Floor(p.netSF / p.catalog[0].AvgSF()))
}

// rent resolves the monthly rent for a unit type at a band. Affordable
// units prefer the regulated schedule.
func (p *problem) rent(unitType string, band int) float64 {
	if band > 0 && p.regulated != nil {
		if r, ok := p.regulated.Rent(unitType, band); ok {
			return r
		}
	}
	r, _ := p.rents.Rent(unitType, band)
	return r
}

// tags returns the programs an affordable band serves.
func (p *problem) tags(band int) []string {
	if band <= 0 {
		return nil
	}
	if b, ok := p.merged.Band(band); ok && len(b.Programs) > 0 {
		return b.Programs
	}
	return p.merged.ProgramNames
}

func (p *problem) avgSF(unitType string) float64 {
	return p.byType[unitType].AvgSF()
}

// place adds n units of a type at a band with catalog size and resolved rent.
func (p *problem) place(l *Ledger, unitType string, band, n int) {
	p.placeTagged(l, unitType, band, n, p.tags(band))
}

func (p *problem) placeTagged(l *Ledger, unitType string, band, n int, tags []string) {
	l.Add(unitType, band, n, p.avgSF(unitType), p.rent(unitType, band), tags)
}

// move shifts one unit between keys. It reports false if the source is empty.
func (p *problem) move(l *Ledger, fromType string, fromBand int, toType string, toBand int) bool {
	if l.Remove(fromType, fromBand, 1) == 0 {
		return false
	}
	p.place(l, toType, toBand, 1)
	return true
}

func (p *problem) remainingSF(l *Ledger) float64 {
	return p.netSF - l.UsedSF()
}

func (p *problem) withinBudget(l *Ledger) bool {
	return l.UsedSF() <= p.netSF+1e-6
}

func (p *problem) evaluate(l *Ledger) []ConstraintSlack {
	return p.eval.evaluate(l.Allocations(), p.netSF, p.constraints)
}

// defaultBand is the band used for affordable units no band requirement claims.
func (p *problem) defaultBand() int {
	if n := len(p.merged.BandRequirements); n > 0 {
		return p.merged.BandRequirements[n-1].AMIBand
	}
	return p.tables.DefaultAffordableBand
}
