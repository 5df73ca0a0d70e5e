// Package validation checks a feasibility project at three stages: the shape
// of its inputs, the program constraints it stacks, and the constraint
// outcome of a solved allocation.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Level indicates which validation stage produced the result.
type Level string

const (
	LevelSchema  Level = "schema"
	LevelProgram Level = "program"
	LevelOutcome Level = "outcome"
)

// Severity indicates how critical a validation result is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Result is a single validation finding. Path uses the project file's field
// names, for example "inputs.allowedUnitTypes[2].maxSF".
type Result struct {
	Level        Level    `json:"level"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Path         string   `json:"path"`
	ActualValue  any      `json:"actual_value,omitempty"`
	Expected     string   `json:"expected,omitempty"`
	ConflictWith string   `json:"conflict_with,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// Report is the complete validation output.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []Result `json:"errors"`
	Warnings []Result `json:"warnings"`
	Info     []Result `json:"info"`
	Summary  string   `json:"summary"`
}

// NewReport creates an empty valid report.
func NewReport() *Report {
	r := &Report{
		Valid:    true,
		Errors:   []Result{},
		Warnings: []Result{},
		Info:     []Result{},
	}
	r.updateSummary()
	return r
}

// ValidateProject runs the schema and program stages over a project.
func ValidateProject(p *spec.Project) *Report {
	r := ValidateSchema(p)
	r.Merge(ValidatePrograms(p.Inputs.ProgramConstraints))
	return r
}

// AddError adds an error result and marks the report invalid.
func (r *Report) AddError(result Result) {
	result.Severity = SeverityError
	r.Errors = append(r.Errors, result)
	r.Valid = false
	r.updateSummary()
}

// AddWarning adds a warning result.
func (r *Report) AddWarning(result Result) {
	result.Severity = SeverityWarning
	r.Warnings = append(r.Warnings, result)
	r.updateSummary()
}

// AddInfo adds an informational result.
func (r *Report) AddInfo(result Result) {
	result.Severity = SeverityInfo
	r.Info = append(r.Info, result)
	r.updateSummary()
}

// Merge combines another report into this one.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Info = append(r.Info, other.Info...)
	if !other.Valid {
		r.Valid = false
	}
	r.updateSummary()
}

// ByLevel returns the errors and warnings raised at one stage.
func (r *Report) ByLevel(level Level) []Result {
	var out []Result
	for _, set := range [][]Result{r.Errors, r.Warnings} {
		for _, res := range set {
			if res.Level == level {
				out = append(out, res)
			}
		}
	}
	return out
}

// ErrInvalid is wrapped by the error Err returns.
var ErrInvalid = errors.New("invalid project")

// Err returns nil for a valid report, otherwise an error listing each
// error message.
func (r *Report) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (r *Report) updateSummary() {
	r.Summary = fmt.Sprintf("%d errors, %d warnings, %d info",
		len(r.Errors), len(r.Warnings), len(r.Info))
}
