package spec

import "maps"

// Project is the top-level description of a development site read from project.yaml.
type Project struct {
	SpecVersion    string          `yaml:"spec_version" json:"spec_version"`
	Name           string          `yaml:"name" json:"name"`
	Inputs         Inputs          `yaml:"inputs" json:"inputs"`
	RegulatedRents []RegulatedRent `yaml:"regulated_rents" json:"regulated_rents,omitempty"`
}

// Inputs is everything the optimizer needs for one solve.
type Inputs struct {
	NetResidentialSF   float64             `yaml:"netResidentialSF" json:"netResidentialSF"`
	AllowedUnitTypes   []UnitTypeConfig    `yaml:"allowedUnitTypes" json:"allowedUnitTypes"`
	RentAssumptions    []RentAssumption    `yaml:"rentAssumptions" json:"rentAssumptions"`
	CostAssumptions    CostAssumptions     `yaml:"costAssumptions" json:"costAssumptions"`
	ProgramConstraints []ProgramConstraint `yaml:"programConstraints" json:"programConstraints"`
	TotalUnits         *int                `yaml:"totalUnits,omitempty" json:"totalUnits,omitempty"`
}

// FixedTotal reports the requested unit total, if any.
func (in Inputs) FixedTotal() (int, bool) {
	if in.TotalUnits == nil || *in.TotalUnits <= 0 {
		return 0, false
	}
	return *in.TotalUnits, true
}

// Clone returns a deep copy. Sensitivity scenarios shock the clone, never the original.
func (in Inputs) Clone() Inputs {
	out := in
	out.AllowedUnitTypes = append([]UnitTypeConfig(nil), in.AllowedUnitTypes...)
	out.RentAssumptions = append([]RentAssumption(nil), in.RentAssumptions...)
	if in.CostAssumptions.Financing != nil {
		f := *in.CostAssumptions.Financing
		out.CostAssumptions.Financing = &f
	}
	if in.TotalUnits != nil {
		n := *in.TotalUnits
		out.TotalUnits = &n
	}
	if in.ProgramConstraints != nil {
		out.ProgramConstraints = make([]ProgramConstraint, len(in.ProgramConstraints))
		for i, c := range in.ProgramConstraints {
			out.ProgramConstraints[i] = c.Clone()
		}
	}
	return out
}

// UnitTypeConfig is a catalog entry for a permissible unit type.
type UnitTypeConfig struct {
	Type  string  `yaml:"type" json:"type"`
	MinSF float64 `yaml:"minSF" json:"minSF"`
	MaxSF float64 `yaml:"maxSF" json:"maxSF"`
}

// AvgSF returns the midpoint of the size range.
func (u UnitTypeConfig) AvgSF() float64 {
	return (u.MinSF + u.MaxSF) / 2
}

// RentAssumption is a monthly rent for a unit type at an AMI band (0 = market).
type RentAssumption struct {
	UnitType    string  `yaml:"unitType" json:"unitType"`
	AMIBand     int     `yaml:"amiBand" json:"amiBand"`
	MonthlyRent float64 `yaml:"monthlyRent" json:"monthlyRent"`
}

// RegulatedRent is one row of a regulated rent schedule.
type RegulatedRent struct {
	UnitType    string  `yaml:"unitType" json:"unitType"`
	AMIBand     int     `yaml:"amiBand" json:"amiBand"`
	MonthlyRent float64 `yaml:"monthlyRent" json:"monthlyRent"`
}

type CostAssumptions struct {
	HardCostPerSF float64    `yaml:"hardCostPerSF" json:"hardCostPerSF"`
	SoftCostPct   float64    `yaml:"softCostPct" json:"softCostPct"`
	LandCostPerSF float64    `yaml:"landCostPerSF" json:"landCostPerSF"`
	Financing     *Financing `yaml:"financing,omitempty" json:"financing,omitempty"`
}

// Financing is optional construction-loan data used for debt service reporting.
type Financing struct {
	InterestRate  float64 `yaml:"interestRate" json:"interestRate"`
	DebtTermYears int     `yaml:"debtTermYears" json:"debtTermYears"`
	LoanToCost    float64 `yaml:"loanToCost" json:"loanToCost"`
}

type BedroomMix struct {
	Min2BRPlusPct float64            `yaml:"min2BRPlusPct" json:"min2BRPlusPct"`
	Distribution  map[string]float64 `yaml:"distribution" json:"distribution,omitempty"`
}

// ProgramConstraint is one affordable-housing program's requirements.
// Preset names a built-in program whose values fill any unset fields.
type ProgramConstraint struct {
	Program                      string             `yaml:"program" json:"program"`
	Preset                       string             `yaml:"preset,omitempty" json:"preset,omitempty"`
	MinAffordablePct             float64            `yaml:"minAffordablePct" json:"minAffordablePct"`
	AMIBands                     []int              `yaml:"amiBands" json:"amiBands"`
	MinPctByBand                 map[int]float64    `yaml:"minPctByBand" json:"minPctByBand"`
	RequiresProportionalBedrooms bool               `yaml:"requiresProportionalBedrooms,omitempty" json:"requiresProportionalBedrooms,omitempty"`
	BedroomMix                   *BedroomMix        `yaml:"bedroomMix,omitempty" json:"bedroomMix,omitempty"`
	UnitMinSizes                 map[string]float64 `yaml:"unitMinSizes,omitempty" json:"unitMinSizes,omitempty"`
	WeightedAvgAMIMax            float64            `yaml:"weightedAvgAmiMax,omitempty" json:"weightedAvgAmiMax,omitempty"`
	StackingConflicts            []string           `yaml:"stackingConflicts,omitempty" json:"stackingConflicts,omitempty"`
}

// Clone returns a deep copy of the constraint.
func (c ProgramConstraint) Clone() ProgramConstraint {
	out := c
	out.AMIBands = append([]int(nil), c.AMIBands...)
	out.MinPctByBand = maps.Clone(c.MinPctByBand)
	out.UnitMinSizes = maps.Clone(c.UnitMinSizes)
	out.StackingConflicts = append([]string(nil), c.StackingConflicts...)
	if c.BedroomMix != nil {
		m := *c.BedroomMix
		m.Distribution = maps.Clone(c.BedroomMix.Distribution)
		out.BedroomMix = &m
	}
	return out
}
