package optimizer

import "slices"

// Allocation is a group of identical units: one unit type at one AMI band.
// TotalSF always equals Count*AvgSF; only Ledger changes Count.
type Allocation struct {
	UnitType    string   `json:"unitType"`
	AMIBand     int      `json:"amiBand"`
	Count       int      `json:"count"`
	AvgSF       float64  `json:"avgSF"`
	TotalSF     float64  `json:"totalSF"`
	MonthlyRent float64  `json:"monthlyRent"`
	ProgramTags []string `json:"programTags,omitempty"`
}

// Affordable reports whether the allocation is income-restricted.
func (a Allocation) Affordable() bool {
	return a.AMIBand > 0
}

type allocKey struct {
	unitType string
	band     int
}

// Ledger is the working allocation: entries keyed by (unit type, AMI band)
// in insertion order. Entries whose count drops to zero stay in place so
// indices remain stable; Allocations omits them.
type Ledger struct {
	entries []Allocation
	index   map[allocKey]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{index: map[allocKey]int{}}
}

// LedgerFrom builds a ledger from existing allocations, merging duplicates.
func LedgerFrom(allocs []Allocation) *Ledger {
	l := NewLedger()
	for _, a := range allocs {
		l.Add(a.UnitType, a.AMIBand, a.Count, a.AvgSF, a.MonthlyRent, a.ProgramTags)
	}
	return l
}

// Clone returns an independent snapshot.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		entries: make([]Allocation, len(l.entries)),
		index:   make(map[allocKey]int, len(l.index)),
	}
	for i, e := range l.entries {
		e.ProgramTags = slices.Clone(e.ProgramTags)
		out.entries[i] = e
	}
	for k, v := range l.index {
		out.index[k] = v
	}
	return out
}

// Add places n units. Tags are taken from the first call for a key. A later
// call with a different size or rent folds it into a count-weighted average,
// so TotalSF and revenue match the units actually added.
func (l *Ledger) Add(unitType string, band, n int, avgSF, rent float64, tags []string) {
	if n <= 0 {
		return
	}
	k := allocKey{unitType, band}
	i, ok := l.index[k]
	if !ok {
		l.entries = append(l.entries, Allocation{
			UnitType:    unitType,
			AMIBand:     band,
			AvgSF:       avgSF,
			MonthlyRent: rent,
			ProgramTags: slices.Clone(tags),
		})
		i = len(l.entries) - 1
		l.index[k] = i
	}
	e := &l.entries[i]
	if e.Count > 0 {
		e.AvgSF = weighted(e.AvgSF, e.Count, avgSF, n)
		e.MonthlyRent = weighted(e.MonthlyRent, e.Count, rent, n)
	} else {
		e.AvgSF, e.MonthlyRent = avgSF, rent
	}
	l.setCount(i, e.Count+n)
}

// Remove takes up to n units away and returns how many were removed.
func (l *Ledger) Remove(unitType string, band, n int) int {
	i, ok := l.index[allocKey{unitType, band}]
	if !ok || n <= 0 {
		return 0
	}
	if n > l.entries[i].Count {
		n = l.entries[i].Count
	}
	l.setCount(i, l.entries[i].Count-n)
	return n
}

func weighted(cur float64, curN int, add float64, addN int) float64 {
	if cur == add {
		return cur
	}
	return (cur*float64(curN) + add*float64(addN)) / float64(curN+addN)
}

func (l *Ledger) setCount(i, count int) {
	e := &l.entries[i]
	e.Count = count
	e.TotalSF = float64(count) * e.AvgSF
}

// Count returns the number of units at a key.
func (l *Ledger) Count(unitType string, band int) int {
	if i, ok := l.index[allocKey{unitType, band}]; ok {
		return l.entries[i].Count
	}
	return 0
}

// Allocations returns the non-empty entries in insertion order.
func (l *Ledger) Allocations() []Allocation {
	out := make([]Allocation, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Count > 0 {
			e.ProgramTags = slices.Clone(e.ProgramTags)
			out = append(out, e)
		}
	}
	return out
}

// Units returns the total unit count.
func (l *Ledger) Units() int {
	n := 0
	for _, e := range l.entries {
		n += e.Count
	}
	return n
}

// AffordableUnits returns the count of income-restricted units.
func (l *Ledger) AffordableUnits() int {
	n := 0
	for _, e := range l.entries {
		if e.Affordable() {
			n += e.Count
		}
	}
	return n
}

// UsedSF returns the area consumed by all units.
func (l *Ledger) UsedSF() float64 {
	sf := 0.0
	for _, e := range l.entries {
		sf += e.TotalSF
	}
	return sf
}

// MonthlyRevenue returns the sum of count*rent.
func (l *Ledger) MonthlyRevenue() float64 {
	r := 0.0
	for _, e := range l.entries {
		r += float64(e.Count) * e.MonthlyRent
	}
	return r
}
