package optimizer

import (
	"math"

	"github.com/ChicagoDave/feasibility/pkg/program"
)

// build constructs the initial allocation: affordable units first, then
// market-rate units in whatever area remains.
func (p *problem) build() *Ledger {
	l := NewLedger()
	p.placeAffordable(l)
	p.placeMarket(l)
	return l
}

func (p *problem) shares(mix map[string]float64) []float64 {
	out := make([]float64, len(p.types))
	for i, t := range p.types {
		out[i] = mix[t]
	}
	return out
}

// placeFitting places up to n units, truncated to what fits in the
// remaining area, and returns how many were placed.
func (p *problem) placeFitting(l *Ledger, unitType string, band, n int, tags []string) int {
	avg := p.avgSF(unitType)
	if avg > 0 {
		fit := int(math.Floor((p.remainingSF(l) + 1e-9) / avg))
		n = min(n, max(fit, 0))
	}
	if n > 0 {
		p.placeTagged(l, unitType, band, n, tags)
	}
	return n
}

// placeAffordable spreads the merged affordable target across unit types by
// the affordable bedroom mix, then lets each band, lowest first, claim its
// minimum from that pool in catalog order.
func (p *problem) placeAffordable(l *Ledger) {
	target := p.merged.MergedAffordableTarget
	if target <= 0 {
		return
	}

	pool := program.LargestRemainder(p.shares(p.affordableMix), target, false)
	exhausted := make([]bool, len(p.types))

	for _, b := range p.merged.BandRequirements {
		need := b.MinUnits
		for i, t := range p.types {
			if need == 0 {
				break
			}
			if exhausted[i] || pool[i] == 0 {
				continue
			}
			take := min(need, pool[i])
			placed := p.placeFitting(l, t, b.AMIBand, take, p.tags(b.AMIBand))
			pool[i] -= placed
			need -= placed
			if placed < take {
				exhausted[i] = true
			}
		}
	}

	// Whatever the bands did not claim goes to the last band.
	band := p.defaultBand()
	for i, t := range p.types {
		if exhausted[i] || pool[i] == 0 {
			continue
		}
		placed := p.placeFitting(l, t, band, pool[i], p.merged.ProgramNames)
		if placed < pool[i] {
			exhausted[i] = true
		}
		pool[i] -= placed
	}
}

// placeMarket fills the rest of the building with market-rate units.
//
// With a fixed total the remaining count is placed by the market mix and
// then downsized until it fits. Otherwise as many mixed units as fit are
// placed and leftover area goes to the best revenue-per-SF type.
func (p *problem) placeMarket(l *Ledger) {
	shares := p.shares(p.marketMix)

	if p.fixed {
		n := p.total - l.Units()
		if n <= 0 {
			return
		}
		counts := program.LargestRemainder(shares, n, false)
		for i, t := range p.types {
			p.place(l, t, 0, counts[i])
		}
		p.downsizeMarket(l)
		return
	}

	remaining := p.remainingSF(l)
	weightedAvg := 0.0
	for i, t := range p.types {
		weightedAvg += shares[i] * p.avgSF(t)
	}
	if weightedAvg > 0 && remaining > 0 {
		n := int(math.Floor(remaining / weightedAvg))
		counts := program.LargestRemainder(shares, n, false)
		for i, t := range p.types {
			if counts[i] > 0 {
				p.placeFitting(l, t, 0, counts[i], nil)
			}
		}
	}
	p.greedyFill(l)
}

// greedyFill packs leftover area with whichever market type earns the most
// per SF among those that still fit.
func (p *problem) greedyFill(l *Ledger) {
	for {
		remaining := p.remainingSF(l)
		best, bestYield := "", 0.0
		for _, t := range p.types {
			avg := p.avgSF(t)
			if avg <= 0 || avg > remaining+1e-9 {
				continue
			}
			if y := p.rent(t, 0) / avg; best == "" || y > bestYield {
				best, bestYield = t, y
			}
		}
		if best == "" {
			return
		}
		if p.placeFitting(l, best, 0, math.MaxInt32, nil) == 0 {
			return
		}
	}
}

// downsizeMarket steps market units down one size, largest type first,
// until the allocation fits. It reports whether it fits.
func (p *problem) downsizeMarket(l *Ledger) bool {
	for !p.withinBudget(l) {
		moved := false
		for i := len(p.types) - 1; i >= 1; i-- {
			if l.Count(p.types[i], 0) == 0 {
				continue
			}
			moved = p.move(l, p.types[i], 0, p.types[i-1], 0)
			break
		}
		if !moved {
			return false
		}
	}
	return true
}
