package program

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Preset names.
const (
	MIHOption1  = "MIH Option 1"
	MIHOption2  = "MIH Option 2"
	MIHDeep     = "MIH Deep Affordability"
	Option485xA = "485-x Option A"
	Option485xB = "485-x Option B"
	UAP         = "UAP"
	Legacy421a  = "421-a"
)

// Presets holds the built-in program definitions, keyed by name.
var Presets = map[string]spec.ProgramConstraint{
	MIHOption1: {
		Program:                      MIHOption1,
		MinAffordablePct:             0.25,
		AMIBands:                     []int{40, 60, 80},
		MinPctByBand:                 map[int]float64{40: 0.10, 60: 0.50, 80: 0.40},
		RequiresProportionalBedrooms: true,
	},
	MIHOption2: {
		Program:                      MIHOption2,
		MinAffordablePct:             0.30,
		AMIBands:                     []int{80},
		MinPctByBand:                 map[int]float64{80: 1.0},
		RequiresProportionalBedrooms: true,
	},
	MIHDeep: {
		Program:                      MIHDeep,
		MinAffordablePct:             0.20,
		AMIBands:                     []int{40},
		MinPctByBand:                 map[int]float64{40: 1.0},
		RequiresProportionalBedrooms: true,
		WeightedAvgAMIMax:            40,
	},
	Option485xA: {
		Program:           Option485xA,
		MinAffordablePct:  0.25,
		AMIBands:          []int{80},
		MinPctByBand:      map[int]float64{80: 1.0},
		WeightedAvgAMIMax: 80,
		BedroomMix:        &spec.BedroomMix{Min2BRPlusPct: 0.50},
		StackingConflicts: []string{Legacy421a},
	},
	Option485xB: {
		Program:           Option485xB,
		MinAffordablePct:  0.20,
		AMIBands:          []int{80},
		MinPctByBand:      map[int]float64{80: 1.0},
		WeightedAvgAMIMax: 80,
		StackingConflicts: []string{Legacy421a},
	},
	UAP: {
		Program:           UAP,
		MinAffordablePct:  0.20,
		AMIBands:          []int{40, 60, 80},
		MinPctByBand:      map[int]float64{40: 0.30, 60: 0.40, 80: 0.30},
		WeightedAvgAMIMax: 60,
	},
	Legacy421a: {
		Program:           Legacy421a,
		MinAffordablePct:  0.25,
		AMIBands:          []int{60},
		MinPctByBand:      map[int]float64{60: 1.0},
		StackingConflicts: []string{Option485xA, Option485xB},
	},
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	return slices.Sorted(maps.Keys(Presets))
}

// Resolve fills unset fields of c from its named preset. Non-zero values on c
// win. A zero value counts as unset, so a preset cannot be loosened to a 0%
// affordable share or to non-proportional bedrooms; drop the preset and
// spell the program out instead.
func Resolve(c spec.ProgramConstraint) (spec.ProgramConstraint, error) {
	if c.Preset == "" {
		return c, nil
	}
	p, ok := Presets[c.Preset]
	if !ok {
		return c, fmt.Errorf("unknown program preset %q", c.Preset)
	}
	out := c.Clone()
	p = p.Clone()
	if out.Program == "" {
		out.Program = p.Program
	}
	if out.MinAffordablePct == 0 {
		out.MinAffordablePct = p.MinAffordablePct
	}
	if len(out.AMIBands) == 0 {
		out.AMIBands = p.AMIBands
	}
	if len(out.MinPctByBand) == 0 {
		out.MinPctByBand = p.MinPctByBand
	}
	if !out.RequiresProportionalBedrooms {
		out.RequiresProportionalBedrooms = p.RequiresProportionalBedrooms
	}
	if out.BedroomMix == nil {
		out.BedroomMix = p.BedroomMix
	}
	if len(out.UnitMinSizes) == 0 {
		out.UnitMinSizes = p.UnitMinSizes
	}
	if out.WeightedAvgAMIMax == 0 {
		out.WeightedAvgAMIMax = p.WeightedAvgAMIMax
	}
	if len(out.StackingConflicts) == 0 {
		out.StackingConflicts = p.StackingConflicts
	}
	return out, nil
}

// ResolveAll resolves every constraint. Constraints naming an unknown preset
// are returned as-is and their errors collected.
func ResolveAll(constraints []spec.ProgramConstraint) ([]spec.ProgramConstraint, []error) {
	out := make([]spec.ProgramConstraint, len(constraints))
	var errs []error
	for i, c := range constraints {
		r, err := Resolve(c)
		if err != nil {
			errs = append(errs, err)
		}
		out[i] = r
	}
	return out, errs
}

// Conflict is a pair of programs that declare they cannot be stacked.
type Conflict struct {
	Program      string `json:"program"`
	ConflictWith string `json:"conflictWith"`
}

// Conflicts reports each declared stacking conflict between programs present
// together. A pair is reported once.
func Conflicts(constraints []spec.ProgramConstraint) []Conflict {
	present := func(name string) bool {
		for _, c := range constraints {
			if strings.EqualFold(c.Program, name) || strings.EqualFold(c.Preset, name) {
				return true
			}
		}
		return false
	}

	var out []Conflict
	seen := map[[2]string]bool{}
	for _, c := range constraints {
		for _, other := range c.StackingConflicts {
			if !present(other) {
				continue
			}
			pair := [2]string{c.Program, other}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			if seen[pair] {
				continue
			}
			seen[pair] = true
			out = append(out, Conflict{Program: c.Program, ConflictWith: other})
		}
	}
	return out
}
