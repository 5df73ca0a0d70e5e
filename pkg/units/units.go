// Package units turns raw unit records from rent rolls and plan take-offs
// into allocations the optimizer can evaluate.
package units

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Record is one extracted unit.
type Record struct {
	BedroomType string   `json:"bedroomType"`
	Allocation  string   `json:"allocation"`
	AreaSF      *float64 `json:"areaSf,omitempty"`
}

var bedroomWords = map[string]string{
	"studio": spec.Studio, "efficiency": spec.Studio, "0": spec.Studio, "0br": spec.Studio,
	"1": spec.OneBR, "one": spec.OneBR, "1br": spec.OneBR,
	"2": spec.TwoBR, "two": spec.TwoBR, "2br": spec.TwoBR,
	"3": spec.ThreeBR, "three": spec.ThreeBR, "3br": spec.ThreeBR,
	"4": spec.FourBR, "four": spec.FourBR, "4br": spec.FourBR,
}

// NormalizeBedroomType maps free-form labels such as "2 Bed", "two-bedroom"
// or "STUDIO" to a canonical unit type.
func NormalizeBedroomType(s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	if t, ok := bedroomWords[key]; ok {
		return t, true
	}
	fields := strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/'
	})
	if len(fields) == 0 {
		return "", false
	}
	head := strings.TrimSuffix(strings.TrimSuffix(fields[0], "bd"), "b")
	if t, ok := bedroomWords[head]; ok {
		return t, true
	}
	return "", false
}

// ParseBand reads an allocation label. Market labels ("market", "MR",
// "market rate", "0", empty) are band 0; anything else must carry a
// percentage such as "60% AMI" or "AMI 80".
func ParseBand(s string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "", "market", "mr", "market rate", "market-rate", "0":
		return 0, true
	}
	start := strings.IndexFunc(key, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(key) && unicode.IsDigit(rune(key[end])) {
		end++
	}
	band, err := strconv.Atoi(key[start:end])
	if err != nil || band <= 0 || band > 200 {
		return 0, false
	}
	return band, true
}

// Group collapses records into allocations keyed by unit type and band, in
// first-seen order. A group's average size is the mean of the areas its
// records report, or the catalog average when none do. Records whose type or
// band cannot be read, or whose size is unknown, are skipped and counted.
func Group(records []Record, catalog []spec.UnitTypeConfig) ([]optimizer.Allocation, int) {
	type key struct {
		unitType string
		band     int
	}
	type acc struct {
		count  int
		areaSF float64
		areas  int
	}
	catalogAvg := map[string]float64{}
	for _, u := range catalog {
		catalogAvg[u.Type] = u.AvgSF()
	}

	var order []key
	groups := map[key]*acc{}
	skipped := 0
	for _, r := range records {
		t, ok := NormalizeBedroomType(r.BedroomType)
		if !ok {
			skipped++
			continue
		}
		band, ok := ParseBand(r.Allocation)
		if !ok {
			skipped++
			continue
		}
		if r.AreaSF == nil && catalogAvg[t] <= 0 {
			skipped++
			continue
		}
		k := key{t, band}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
			order = append(order, k)
		}
		g.count++
		if r.AreaSF != nil && *r.AreaSF > 0 {
			g.areaSF += *r.AreaSF
			g.areas++
		}
	}

	l := optimizer.NewLedger()
	for _, k := range order {
		g := groups[k]
		avg := catalogAvg[k.unitType]
		if g.areas > 0 {
			avg = g.areaSF / float64(g.areas)
		}
		if avg <= 0 {
			skipped += g.count
			continue
		}
		l.Add(k.unitType, k.band, g.count, avg, 0, nil)
	}
	return l.Allocations(), skipped
}

// UnitMix holds the count of units by bedroom count.
type UnitMix struct {
	Studios  int `json:"studios"`
	OneBed   int `json:"one_bed"`
	TwoBed   int `json:"two_bed"`
	ThreeBed int `json:"three_bed"`
	FourBed  int `json:"four_bed"`
}

// Total returns the sum of all unit types.
func (u UnitMix) Total() int {
	return u.Studios + u.OneBed + u.TwoBed + u.ThreeBed + u.FourBed
}

func (u *UnitMix) add(unitType string, n int) {
	switch unitType {
	case spec.Studio:
		u.Studios += n
	case spec.OneBR:
		u.OneBed += n
	case spec.TwoBR:
		u.TwoBed += n
	case spec.ThreeBR:
		u.ThreeBed += n
	case spec.FourBR:
		u.FourBed += n
	}
}

// Count returns the units of one canonical type.
func (u UnitMix) Count(unitType string) int {
	switch unitType {
	case spec.Studio:
		return u.Studios
	case spec.OneBR:
		return u.OneBed
	case spec.TwoBR:
		return u.TwoBed
	case spec.ThreeBR:
		return u.ThreeBed
	case spec.FourBR:
		return u.FourBed
	}
	return 0
}

// Shares returns each type's fraction of the total, usable as a bedroom
// mix distribution. An empty mix has no shares.
func (u UnitMix) Shares() map[string]float64 {
	total := u.Total()
	if total == 0 {
		return map[string]float64{}
	}
	out := map[string]float64{}
	for _, t := range []string{spec.Studio, spec.OneBR, spec.TwoBR, spec.ThreeBR, spec.FourBR} {
		if n := u.Count(t); n > 0 {
			out[t] = float64(n) / float64(total)
		}
	}
	return out
}

// FromAllocations counts allocated units by bedroom type.
func FromAllocations(allocs []optimizer.Allocation) UnitMix {
	var mix UnitMix
	for _, a := range allocs {
		mix.add(a.UnitType, a.Count)
	}
	return mix
}

// AvgUnitSF returns the weighted average unit size using catalog averages.
// Types missing from the catalog are left out of both sides.
func AvgUnitSF(mix UnitMix, catalog []spec.UnitTypeConfig) float64 {
	weighted, n := 0.0, 0
	for _, u := range catalog {
		c := mix.Count(u.Type)
		weighted += float64(c) * u.AvgSF()
		n += c
	}
	if n == 0 {
		return 0
	}
	return weighted / float64(n)
}
