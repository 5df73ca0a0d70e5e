package program

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Baseline values used when no tables file is supplied.
const (
	DefaultMarketRent               = 2500.0 // $/month when no rent assumption matches
	DefaultProportionalityTolerance = 0.10   // max |affordable share - market share| per unit type
	DefaultAffordableBand           = 80     // band for affordable units when no program names one
)

// Tables holds the reference data the optimizer would otherwise hard-code.
// Passing it explicitly lets tests substitute their own distributions.
type Tables struct {
	BaselineMix              map[string]float64 `yaml:"baselineMix" json:"baselineMix"`
	UAPMix                   map[string]float64 `yaml:"uapMix" json:"uapMix"`
	DefaultRent              float64            `yaml:"defaultRent" json:"defaultRent"`
	ProportionalityTolerance float64            `yaml:"proportionalityTolerance" json:"proportionalityTolerance"`
	DefaultAffordableBand    int                `yaml:"defaultAffordableBand" json:"defaultAffordableBand"`
}

// DefaultTables returns the built-in reference data.
func DefaultTables() Tables {
	return Tables{
		BaselineMix: map[string]float64{
			spec.Studio:  0.15,
			spec.OneBR:   0.35,
			spec.TwoBR:   0.35,
			spec.ThreeBR: 0.15,
		},
		UAPMix: map[string]float64{
			spec.Studio:  0.10,
			spec.OneBR:   0.35,
			spec.TwoBR:   0.40,
			spec.ThreeBR: 0.15,
		},
		DefaultRent:              DefaultMarketRent,
		ProportionalityTolerance: DefaultProportionalityTolerance,
		DefaultAffordableBand:    DefaultAffordableBand,
	}
}

// LoadTables reads tables from YAML. Keys missing from the file keep their defaults.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading tables file: %w", err)
	}
	var raw Tables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return t, fmt.Errorf("parsing tables YAML: %w", err)
	}
	if len(raw.BaselineMix) > 0 {
		t.BaselineMix = raw.BaselineMix
	}
	if len(raw.UAPMix) > 0 {
		t.UAPMix = raw.UAPMix
	}
	if raw.DefaultRent > 0 {
		t.DefaultRent = raw.DefaultRent
	}
	if raw.ProportionalityTolerance > 0 {
		t.ProportionalityTolerance = raw.ProportionalityTolerance
	}
	if raw.DefaultAffordableBand > 0 {
		t.DefaultAffordableBand = raw.DefaultAffordableBand
	}
	return t, nil
}

// WithDefaults fills zero fields from DefaultTables.
func (t Tables) WithDefaults() Tables {
	d := DefaultTables()
	if len(t.BaselineMix) == 0 {
		t.BaselineMix = d.BaselineMix
	}
	if len(t.UAPMix) == 0 {
		t.UAPMix = d.UAPMix
	}
	if t.DefaultRent <= 0 {
		t.DefaultRent = d.DefaultRent
	}
	if t.ProportionalityTolerance <= 0 {
		t.ProportionalityTolerance = d.ProportionalityTolerance
	}
	if t.DefaultAffordableBand <= 0 {
		t.DefaultAffordableBand = d.DefaultAffordableBand
	}
	return t
}

// IsUAP reports whether a constraint belongs to the Universal Affordability Preference program.
func IsUAP(c spec.ProgramConstraint) bool {
	return strings.Contains(strings.ToUpper(c.Program), "UAP") ||
		strings.Contains(strings.ToUpper(c.Preset), "UAP")
}

// RequiresProportional reports whether any constraint requires affordable
// units to mirror the market bedroom mix.
func RequiresProportional(constraints []spec.ProgramConstraint) bool {
	for _, c := range constraints {
		if c.RequiresProportionalBedrooms {
			return true
		}
	}
	return false
}

// MarketMix returns the bedroom distribution for market-rate units over the
// given unit types: per type, the largest share any constraint requests,
// starting from the baseline, normalized to sum to 1.
func (t Tables) MarketMix(unitTypes []string, constraints []spec.ProgramConstraint) map[string]float64 {
	return mixFor(unitTypes, t.BaselineMix, constraints)
}

// AffordableMix returns the bedroom distribution for affordable units.
// When any program requires proportional bedrooms, affordable units follow
// the market mix. Otherwise the baseline (or the UAP distribution when a UAP
// program is present) is raised per type to the largest requested share.
func (t Tables) AffordableMix(unitTypes []string, constraints []spec.ProgramConstraint) map[string]float64 {
	if RequiresProportional(constraints) {
		return t.MarketMix(unitTypes, constraints)
	}
	base := t.BaselineMix
	for _, c := range constraints {
		if IsUAP(c) {
			base = t.UAPMix
			break
		}
	}
	return mixFor(unitTypes, base, constraints)
}

func mixFor(unitTypes []string, base map[string]float64, constraints []spec.ProgramConstraint) map[string]float64 {
	mix := make(map[string]float64, len(unitTypes))
	for _, ut := range unitTypes {
		mix[ut] = base[ut]
	}
	for _, c := range constraints {
		if c.BedroomMix == nil {
			continue
		}
		for ut, share := range c.BedroomMix.Distribution {
			if cur, ok := mix[ut]; ok && share > cur {
				mix[ut] = share
			}
		}
	}

	sum := 0.0
	for _, ut := range unitTypes {
		sum += mix[ut]
	}
	if sum <= 0 {
		// Catalog names none of the known types: fall back to an even split.
		for _, ut := range unitTypes {
			mix[ut] = 1.0 / float64(len(unitTypes))
		}
		return mix
	}
	out := maps.Clone(mix)
	for _, ut := range unitTypes {
		out[ut] = mix[ut] / sum
	}
	return out
}
