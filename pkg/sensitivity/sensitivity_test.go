package sensitivity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/rent"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

func mihInputs() spec.Inputs {
	total := 75
	in := spec.Inputs{
		NetResidentialSF: 52500,
		AllowedUnitTypes: []spec.UnitTypeConfig{
			{Type: spec.Studio, MinSF: 350, MaxSF: 450},
			{Type: spec.OneBR, MinSF: 550, MaxSF: 650},
			{Type: spec.TwoBR, MinSF: 750, MaxSF: 850},
			{Type: spec.ThreeBR, MinSF: 950, MaxSF: 1050},
		},
		RentAssumptions: []spec.RentAssumption{
			{UnitType: spec.Studio, MonthlyRent: 2000},
			{UnitType: spec.OneBR, MonthlyRent: 2600},
			{UnitType: spec.TwoBR, MonthlyRent: 3300},
			{UnitType: spec.Studio, AMIBand: 60, MonthlyRent: 1200},
			{UnitType: spec.OneBR, AMIBand: 60, MonthlyRent: 1500},
			{UnitType: spec.TwoBR, AMIBand: 60, MonthlyRent: 1800},
			{UnitType: spec.ThreeBR, AMIBand: 60, MonthlyRent: 2100},
		},
		CostAssumptions: spec.CostAssumptions{HardCostPerSF: 400, SoftCostPct: 0.25, LandCostPerSF: 150},
		ProgramConstraints: []spec.ProgramConstraint{{
			Program:                      "MIH",
			MinAffordablePct:             0.25,
			AMIBands:                     []int{40, 60, 80},
			MinPctByBand:                 map[int]float64{40: 0.10, 60: 0.50, 80: 0.40},
			RequiresProportionalBedrooms: true,
		}},
		TotalUnits: &total,
	}
	return in
}

func TestRunReturnsEightRowsInOrder(t *testing.T) {
	s := optimizer.New(optimizer.Options{})
	base := mihInputs()
	baseRes := s.Solve(base)
	require.True(t, baseRes.Feasible)

	rows, err := Run(context.Background(), s, base, baseRes)
	require.NoError(t, err)
	require.Len(t, rows, 8)

	for i, r := range rows {
		assert.Equal(t, Labels()[i], r.Scenario)
		assert.Equal(t, baseRes.ROI, r.BaselineROI)
		assert.InDelta(t, r.ShockedROI-r.BaselineROI, r.DeltaROI, 1e-12)
		assert.True(t, r.StillFeasible, r.Scenario)
		assert.Equal(t, RelaxNone, r.Relaxation, r.Scenario)
	}
}

func TestRunROIMovesWithShockDirection(t *testing.T) {
	s := optimizer.New(optimizer.Options{})
	base := mihInputs()
	rows, err := Run(context.Background(), s, base, nil)
	require.NoError(t, err)

	byLabel := map[string]Row{}
	for _, r := range rows {
		byLabel[r.Scenario] = r
	}
	for _, label := range []string{"+10% market rent", "+10% affordable rent", "-10% hard cost", "-10% land cost"} {
		assert.GreaterOrEqual(t, byLabel[label].ShockedROI, byLabel[label].BaselineROI, label)
	}
	for _, label := range []string{"-10% market rent", "-10% affordable rent", "+10% hard cost", "+10% land cost"} {
		assert.LessOrEqual(t, byLabel[label].ShockedROI, byLabel[label].BaselineROI, label)
	}
	// 3BR has no market assumption; its resolved rent still moves with the shock.
	assert.Greater(t, byLabel["+10% market rent"].DeltaROI, 0.0)
}

func TestRunDoesNotMutateBase(t *testing.T) {
	s := optimizer.New(optimizer.Options{
		RegulatedRents: rent.NewSchedule([]spec.RegulatedRent{{UnitType: spec.OneBR, AMIBand: 60, MonthlyRent: 1400}}),
	})
	base := mihInputs()
	before := base.Clone()

	_, err := Run(context.Background(), s, base, nil)
	require.NoError(t, err)
	assert.Equal(t, before, base)

	r, ok := s.RegulatedRents().Rent(spec.OneBR, 60)
	assert.True(t, ok)
	assert.Equal(t, 1400.0, r)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows, err := Run(ctx, optimizer.New(optimizer.Options{}), mihInputs(), &optimizer.Result{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rows)
}

func TestSolveRelaxedGrowsArea(t *testing.T) {
	total := 10
	in := spec.Inputs{
		NetResidentialSF: 5950,
		AllowedUnitTypes: []spec.UnitTypeConfig{{Type: spec.OneBR, MinSF: 600, MaxSF: 600}},
		TotalUnits:       &total,
	}
	res, relax := solveRelaxed(optimizer.New(optimizer.Options{}), in)
	assert.Equal(t, RelaxArea, relax)
	assert.True(t, res.Feasible)
	assert.Equal(t, 10, res.TotalUnits)
}

func TestSolveRelaxedReportsOriginalWhenNothingHelps(t *testing.T) {
	total := 10
	in := spec.Inputs{
		NetResidentialSF: 4000,
		AllowedUnitTypes: []spec.UnitTypeConfig{{Type: spec.OneBR, MinSF: 600, MaxSF: 600}},
		TotalUnits:       &total,
	}
	res, relax := solveRelaxed(optimizer.New(optimizer.Options{}), in)
	assert.Equal(t, RelaxNone, relax)
	assert.False(t, res.Feasible)
	assert.Equal(t, 10, res.TotalUnits)
}

func TestRunKeepsInfeasibleBaselineUnrelaxed(t *testing.T) {
	total := 10
	base := spec.Inputs{
		NetResidentialSF: 5950,
		AllowedUnitTypes: []spec.UnitTypeConfig{{Type: spec.OneBR, MinSF: 600, MaxSF: 600}},
		RentAssumptions:  []spec.RentAssumption{{UnitType: spec.OneBR, MonthlyRent: 2600}},
		CostAssumptions:  spec.CostAssumptions{HardCostPerSF: 400, SoftCostPct: 0.25, LandCostPerSF: 150},
		TotalUnits:       &total,
	}
	s := optimizer.New(optimizer.Options{})
	baseRes := s.Solve(base)
	require.False(t, baseRes.Feasible)

	rows, err := Run(context.Background(), s, base, baseRes)
	require.NoError(t, err)
	byLabel := map[string]Row{}
	for _, r := range rows {
		assert.Equal(t, RelaxNone, r.Relaxation, r.Scenario)
		assert.False(t, r.StillFeasible, r.Scenario)
		byLabel[r.Scenario] = r
	}
	assert.Greater(t, byLabel["+10% market rent"].DeltaROI, 0.0)
	assert.InDelta(t, 0.0, byLabel["+10% affordable rent"].DeltaROI, 1e-12)
	assert.Less(t, byLabel["+10% land cost"].DeltaROI, 0.0)
}

func TestSummarize(t *testing.T) {
	rows := []Row{
		{Scenario: "a", DeltaROI: 0.01, StillFeasible: true},
		{Scenario: "b", DeltaROI: -0.03, StillFeasible: true, Relaxation: RelaxArea},
		{Scenario: "c", DeltaROI: 0.02},
	}
	s := Summarize(rows)
	assert.InDelta(t, 0.0, s.MeanDeltaROI, 1e-12)
	assert.InDelta(t, 0.0264575, s.StdDevDeltaROI, 1e-6)
	assert.InDelta(t, 0.03, s.MaxAbsDeltaROI, 1e-12)
	assert.Equal(t, "b", s.MostSensitive)
	assert.Equal(t, 2, s.FeasibleCount)
	assert.Equal(t, 1, s.RelaxedCount)

	assert.Equal(t, Summary{}, Summarize(nil))
}
