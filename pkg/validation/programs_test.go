package validation

import (
	"errors"
	"testing"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

func TestValidateProgramsPresets(t *testing.T) {
	for _, name := range program.PresetNames() {
		t.Run(name, func(t *testing.T) {
			r := ValidatePrograms([]spec.ProgramConstraint{{Preset: name}})
			if !r.Valid {
				t.Errorf("preset should validate: %+v", r.Errors)
			}
			if len(r.Warnings) != 0 {
				t.Errorf("preset should not warn: %+v", r.Warnings)
			}
		})
	}
}

func TestValidateProgramsUnknownPreset(t *testing.T) {
	r := ValidatePrograms([]spec.ProgramConstraint{{Preset: "nope"}})
	if r.Valid {
		t.Fatal("unknown preset should be an error")
	}
	if !hasPath(r.Errors, "inputs.programConstraints[0].preset") {
		t.Errorf("expected preset error, got %+v", r.Errors)
	}
	if r.Errors[0].Level != LevelProgram {
		t.Errorf("level = %s", r.Errors[0].Level)
	}
	if !hasPath(r.Warnings, "inputs.programConstraints[0].program") {
		t.Errorf("expected unnamed program warning, got %+v", r.Warnings)
	}
}

func TestValidateProgramsConflicts(t *testing.T) {
	r := ValidatePrograms([]spec.ProgramConstraint{
		{Preset: program.Option485xA},
		{Preset: program.Legacy421a},
	})
	if r.Valid {
		t.Fatal("485-x with 421-a should be invalid")
	}
	if len(r.Errors) != 1 {
		t.Fatalf("expected one conflict, got %+v", r.Errors)
	}
	e := r.Errors[0]
	if e.Path != "inputs.programConstraints" || e.ConflictWith != program.Legacy421a {
		t.Errorf("unexpected conflict result: %+v", e)
	}
	if len(e.Suggestions) == 0 {
		t.Error("conflict should suggest a fix")
	}
}

func TestValidateProgramsRanges(t *testing.T) {
	r := ValidatePrograms([]spec.ProgramConstraint{{
		Program:           "Custom",
		MinAffordablePct:  1.2,
		AMIBands:          []int{60, 80},
		MinPctByBand:      map[int]float64{60: 0.7, 80: 0.6, 100: -0.1},
		BedroomMix:        &spec.BedroomMix{Min2BRPlusPct: 2},
		WeightedAvgAMIMax: 40,
	}})

	base := "inputs.programConstraints[0]"
	for _, path := range []string{
		base + ".minAffordablePct",
		base + ".minPctByBand[100]",
		base + ".bedroomMix.min2BRPlusPct",
	} {
		if !hasPath(r.Errors, path) {
			t.Errorf("expected error at %s, got %+v", path, r.Errors)
		}
	}
	for _, path := range []string{base + ".minPctByBand", base + ".weightedAvgAmiMax"} {
		if !hasPath(r.Warnings, path) {
			t.Errorf("expected warning at %s, got %+v", path, r.Warnings)
		}
	}
	if !hasPath(r.Info, base+".minPctByBand[100]") {
		t.Errorf("expected unlisted band info, got %+v", r.Info)
	}
}

func TestValidateProgramsNonPositiveBand(t *testing.T) {
	r := ValidatePrograms([]spec.ProgramConstraint{{Program: "P", AMIBands: []int{0, 60}}})
	if !hasPath(r.Errors, "inputs.programConstraints[0].amiBands") {
		t.Errorf("expected band error, got %+v", r.Errors)
	}
}

func TestValidateProject(t *testing.T) {
	p := validProject()
	p.Inputs.ProgramConstraints = []spec.ProgramConstraint{{Preset: "nope"}}
	p.Inputs.NetResidentialSF = 0
	r := ValidateProject(p)
	if len(r.ByLevel(LevelSchema)) == 0 || len(r.ByLevel(LevelProgram)) == 0 {
		t.Errorf("expected findings at both stages: %+v", r)
	}
	err := r.Err()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Err() = %v, want ErrInvalid", err)
	}
	if NewReport().Err() != nil {
		t.Error("valid report should have no error")
	}
}

func TestFromSlacks(t *testing.T) {
	slacks := []optimizer.ConstraintSlack{
		{Constraint: "Total SF <= Net Residential SF", Category: optimizer.CategoryTotalSF, Kind: optimizer.AtMost, Required: 1000, Actual: 900, Slack: 100},
		{Constraint: "Affordable share >= 25.00%", Category: optimizer.CategoryAffordablePct, Kind: optimizer.AtLeast, Required: 0.25, Actual: 0.2, Slack: -0.05, Binding: true},
		{Constraint: "80% AMI share", Category: optimizer.CategoryBand, Kind: optimizer.AtLeast, Required: 0.4, Actual: 0.4, Binding: true},
	}
	r := FromSlacks(slacks)
	if r.Valid {
		t.Fatal("violated slack should invalidate the report")
	}
	if len(r.Errors) != 1 || len(r.Info) != 1 || len(r.Warnings) != 0 {
		t.Fatalf("unexpected report: %s", r.Summary)
	}
	e := r.Errors[0]
	if e.Level != LevelOutcome || e.Path != "affordable_pct" || e.Expected != ">= 0.25" {
		t.Errorf("unexpected error: %+v", e)
	}
	if r.Info[0].Path != "band" {
		t.Errorf("unexpected info: %+v", r.Info[0])
	}

	if !FromSlacks(nil).Valid {
		t.Error("no slacks should be valid")
	}
}
