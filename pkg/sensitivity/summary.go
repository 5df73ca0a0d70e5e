package sensitivity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a sensitivity run.
type Summary struct {
	MeanDeltaROI   float64 `json:"meanDeltaROI"`
	StdDevDeltaROI float64 `json:"stdDevDeltaROI"`
	MaxAbsDeltaROI float64 `json:"maxAbsDeltaROI"`
	MostSensitive  string  `json:"mostSensitive"`
	FeasibleCount  int     `json:"feasibleCount"`
	RelaxedCount   int     `json:"relaxedCount"`
}

// Summarize reports the spread of ROI deltas and the scenario that moved
// ROI the most.
func Summarize(rows []Row) Summary {
	var s Summary
	if len(rows) == 0 {
		return s
	}
	deltas := make([]float64, len(rows))
	abs := make([]float64, len(rows))
	for i, r := range rows {
		deltas[i] = r.DeltaROI
		abs[i] = math.Abs(r.DeltaROI)
		if r.StillFeasible {
			s.FeasibleCount++
		}
		if r.Relaxation != RelaxNone {
			s.RelaxedCount++
		}
	}
	s.MeanDeltaROI = stat.Mean(deltas, nil)
	if len(deltas) > 1 {
		s.StdDevDeltaROI = stat.StdDev(deltas, nil)
	}
	i := floats.MaxIdx(abs)
	s.MaxAbsDeltaROI = abs[i]
	s.MostSensitive = rows[i].Scenario
	return s
}
