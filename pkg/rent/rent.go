// Package rent resolves monthly rents by unit type and AMI band.
package rent

import (
	"slices"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Lookup returns a monthly rent for a unit type at an AMI band.
// ok is false when the lookup has nothing for the unit type.
type Lookup interface {
	Rent(unitType string, amiBand int) (rent float64, ok bool)
}

type entry struct {
	band int
	rent float64
}

// bandTable keeps rents per unit type sorted by band.
type bandTable map[string][]entry

func (t bandTable) add(unitType string, band int, rent float64) {
	rows := t[unitType]
	i, found := slices.BinarySearchFunc(rows, band, func(e entry, b int) int { return e.band - b })
	if found {
		rows[i].rent = rent
		return
	}
	t[unitType] = slices.Insert(rows, i, entry{band: band, rent: rent})
}

// nearest returns the exact band if present, otherwise the closest band.
// Equidistant bands resolve to the lower one.
func (t bandTable) nearest(unitType string, band int) (float64, bool) {
	rows := t[unitType]
	if len(rows) == 0 {
		return 0, false
	}
	best := rows[0]
	for _, e := range rows[1:] {
		if abs(e.band-band) < abs(best.band-band) {
			best = e
		}
	}
	return best.rent, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Schedule is a regulated rent schedule for affordable bands.
type Schedule struct {
	rows bandTable
}

// NewSchedule builds a schedule. Rows at band 0 are ignored.
func NewSchedule(rows []spec.RegulatedRent) *Schedule {
	s := &Schedule{rows: bandTable{}}
	for _, r := range rows {
		if r.AMIBand <= 0 {
			continue
		}
		s.rows.add(r.UnitType, r.AMIBand, r.MonthlyRent)
	}
	return s
}

// Len returns the number of unit types with regulated rents.
func (s *Schedule) Len() int {
	return len(s.rows)
}

// Rent implements Lookup. Market-rate requests are never answered.
func (s *Schedule) Rent(unitType string, amiBand int) (float64, bool) {
	if s == nil || amiBand <= 0 {
		return 0, false
	}
	return s.rows.nearest(unitType, amiBand)
}

// Table resolves rents from the project's rent assumptions.
type Table struct {
	rows        bandTable
	defaultRent float64
}

// NewTable builds a table from rent assumptions with a fallback rent for
// unit types it has never seen.
func NewTable(assumptions []spec.RentAssumption, defaultRent float64) *Table {
	t := &Table{rows: bandTable{}, defaultRent: defaultRent}
	for _, a := range assumptions {
		t.rows.add(a.UnitType, a.AMIBand, a.MonthlyRent)
	}
	return t
}

// Rent returns the exact match, else the nearest band for the same unit
// type, else the default rent. It always answers.
func (t *Table) Rent(unitType string, amiBand int) (float64, bool) {
	if r, ok := t.rows.nearest(unitType, amiBand); ok {
		return r, true
	}
	return t.defaultRent, true
}

type scaled struct {
	inner  Lookup
	factor float64
}

// Scaled multiplies every rent inner returns by factor.
// A nil inner stays nil.
func Scaled(inner Lookup, factor float64) Lookup {
	if inner == nil {
		return nil
	}
	return scaled{inner: inner, factor: factor}
}

func (s scaled) Rent(unitType string, amiBand int) (float64, bool) {
	r, ok := s.inner.Rent(unitType, amiBand)
	if !ok {
		return 0, false
	}
	return r * s.factor, true
}
