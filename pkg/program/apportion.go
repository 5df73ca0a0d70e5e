package program

import "math"

// LargestRemainder apportions total whole units across shares.
//
// Each entry's quota is share*total. Quotas are floored (raised to 1 when
// minOne is set and the share is positive), then units are added to the
// entries furthest below quota, or removed from the entries furthest above
// it, until the counts sum to total exactly. Ties go to the lower index.
func LargestRemainder(shares []float64, total int, minOne bool) []int {
	counts := make([]int, len(shares))
	if total <= 0 || len(shares) == 0 {
		return counts
	}

	sum := 0.0
	for _, s := range shares {
		if s > 0 {
			sum += s
		}
	}
	quotas := make([]float64, len(shares))
	for i, s := range shares {
		switch {
		case sum == 0:
			// No usable weights: spread evenly.
			quotas[i] = float64(total) / float64(len(shares))
		case s > 0:
			quotas[i] = s * float64(total)
		}
	}

	assigned := 0
	for i, q := range quotas {
		counts[i] = int(math.Floor(q + 1e-9))
		if minOne && q > 0 && counts[i] == 0 {
			counts[i] = 1
		}
		assigned += counts[i]
	}

	for assigned < total {
		best := -1
		for i, q := range quotas {
			if sum > 0 && shares[i] <= 0 {
				continue
			}
			if best < 0 || q-float64(counts[i]) > quotas[best]-float64(counts[best])+1e-12 {
				best = i
			}
		}
		counts[best]++
		assigned++
	}

	for assigned > total {
		best := pickSurplus(counts, quotas, 1)
		if best < 0 {
			best = pickSurplus(counts, quotas, 0)
		}
		counts[best]--
		assigned--
	}
	return counts
}

// pickSurplus returns the index with the largest count-quota excess among
// entries holding more than floor units, or -1.
func pickSurplus(counts []int, quotas []float64, floor int) int {
	best := -1
	for i := range counts {
		if counts[i] <= floor {
			continue
		}
		if best < 0 || float64(counts[i])-quotas[i] > float64(counts[best])-quotas[best]+1e-12 {
			best = i
		}
	}
	return best
}
