package main

import (
	"fmt"
	"strings"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/sensitivity"
	"github.com/ChicagoDave/feasibility/pkg/spec"
	"github.com/ChicagoDave/feasibility/pkg/units"
	"github.com/ChicagoDave/feasibility/pkg/validation"
)

func printValidationReport(r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Printf("ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("  [%s] %s\n", e.Level, e.Message)
			if e.Path != "" {
				fmt.Printf("    -> %s = %v\n", e.Path, e.ActualValue)
			}
			if e.Expected != "" {
				fmt.Printf("    expected: %s\n", e.Expected)
			}
			if e.ConflictWith != "" {
				fmt.Printf("    conflicts with: %s\n", e.ConflictWith)
			}
			for _, s := range e.Suggestions {
				fmt.Printf("    * %s\n", s)
			}
		}
		fmt.Println()
	}

	if len(r.Warnings) > 0 {
		fmt.Printf("WARNINGS (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Printf("  [%s] %s\n", w.Level, w.Message)
			if w.Path != "" {
				fmt.Printf("    -> %s = %v\n", w.Path, w.ActualValue)
			}
			if w.Expected != "" {
				fmt.Printf("    expected: %s\n", w.Expected)
			}
			for _, s := range w.Suggestions {
				fmt.Printf("    * %s\n", s)
			}
		}
		fmt.Println()
	}

	if len(r.Info) > 0 {
		fmt.Printf("INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Printf("  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Println()
	}

	if r.Valid {
		fmt.Printf("Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Printf("Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(p *spec.Project, res *optimizer.Result) {
	title := "Unit Allocation"
	if p.Name != "" {
		title += ": " + p.Name
	}
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", len(title)))
	fmt.Println()

	printAllocationTable(res.Allocations)

	mix := units.FromAllocations(res.Allocations)
	fmt.Println()
	fmt.Println("Summary")
	fmt.Println("-------")
	fmt.Printf("  Units:                  %d (%d affordable, %d market)\n", res.TotalUnits, res.AffordableUnits, res.MarketUnits)
	fmt.Printf("  Mix:                    %d studio / %d 1BR / %d 2BR / %d 3BR / %d 4BR\n",
		mix.Studios, mix.OneBed, mix.TwoBed, mix.ThreeBed, mix.FourBed)
	if avg := units.AvgUnitSF(mix, p.Inputs.AllowedUnitTypes); avg > 0 {
		fmt.Printf("  Avg unit size:          %.0f SF (%s)\n", avg, formatShares(mix.Shares()))
	}
	fmt.Printf("  Area used:              %.0f of %.0f SF\n", res.TotalSF, p.Inputs.NetResidentialSF)
	if res.AffordableUnits > 0 {
		fmt.Printf("  Blended AMI:            %.1f%%\n", res.BlendedAMI)
	}
	fmt.Printf("  Monthly rent:           $%s\n", formatMoney(res.MonthlyRent))
	fmt.Printf("  Annual rent:            $%s\n", formatMoney(res.AnnualRent))
	fmt.Printf("  Development cost:       $%s (hard %s, soft %s, land %s)\n",
		formatMoney(res.DevelopmentCost), formatMoney(res.CostBreakdown.Hard),
		formatMoney(res.CostBreakdown.Soft), formatMoney(res.CostBreakdown.Land))
	fmt.Printf("  ROI:                    %.2f%%\n", res.ROI*100)
	if res.LoanAmount > 0 {
		fmt.Printf("  Loan:                   $%s\n", formatMoney(res.LoanAmount))
		fmt.Printf("  Annual debt service:    $%s\n", formatMoney(res.AnnualDebtService))
		fmt.Printf("  Debt service coverage:  %.2fx\n", res.DebtServiceCoverage)
	}

	fmt.Println()
	printSlackTable(res.ConstraintSlack)

	fmt.Println()
	if res.Feasible {
		fmt.Printf("Result: FEASIBLE (%s, %d repair iterations, %d climb passes)\n",
			res.SolverMethod, res.RepairIterations, res.ClimbIterations)
	} else {
		fmt.Printf("Result: INFEASIBLE (%s, %d repair iterations, %d climb passes)\n",
			res.SolverMethod, res.RepairIterations, res.ClimbIterations)
	}
	for _, n := range res.Notes {
		fmt.Printf("  note: %s\n", n)
	}
}

// formatShares lists bedroom shares from studio up, for example
// "40% 1BR, 60% 2BR".
func formatShares(shares map[string]float64) string {
	var parts []string
	for _, t := range []string{spec.Studio, spec.OneBR, spec.TwoBR, spec.ThreeBR, spec.FourBR} {
		if sh, ok := shares[t]; ok {
			parts = append(parts, fmt.Sprintf("%.0f%% %s", sh*100, t))
		}
	}
	return strings.Join(parts, ", ")
}

func printAllocationTable(allocs []optimizer.Allocation) {
	fmt.Printf("%-8s %-8s %6s %8s %10s %10s  %s\n", "Type", "Band", "Units", "Avg SF", "Total SF", "Rent/mo", "Programs")
	fmt.Printf("%-8s %-8s %6s %8s %10s %10s  %s\n", "--------", "--------", "------", "--------", "----------", "----------", "--------")
	for _, a := range allocs {
		band := "Market"
		if a.Affordable() {
			band = fmt.Sprintf("%d%% AMI", a.AMIBand)
		}
		fmt.Printf("%-8s %-8s %6d %8.0f %10.0f %10.0f  %s\n",
			a.UnitType, band, a.Count, a.AvgSF, a.TotalSF, a.MonthlyRent, strings.Join(a.ProgramTags, ", "))
	}
}

func printSlackTable(slacks []optimizer.ConstraintSlack) {
	fmt.Printf("%-48s %12s %12s %12s  %s\n", "Constraint", "Required", "Actual", "Slack", "Status")
	fmt.Printf("%-48s %12s %12s %12s  %s\n", strings.Repeat("-", 48), "------------", "------------", "------------", "--------")
	for _, s := range slacks {
		status := "ok"
		switch {
		case s.Violated():
			status = "VIOLATED"
		case s.Binding:
			status = "binding"
		}
		fmt.Printf("%-48s %12.4g %12.4g %12.4g  %s\n", s.Constraint, s.Required, s.Actual, s.Slack, status)
	}
}

func printSensitivity(base *optimizer.Result, rows []sensitivity.Row, sum sensitivity.Summary) {
	fmt.Println("Sensitivity Analysis")
	fmt.Println("====================")
	fmt.Println()
	fmt.Printf("Baseline ROI: %.2f%% (%d units, %d affordable)\n\n", base.ROI*100, base.TotalUnits, base.AffordableUnits)

	fmt.Printf("%-22s %10s %10s %8s %6s  %s\n", "Scenario", "ROI", "Delta", "Feasible", "Units", "Relaxation")
	fmt.Printf("%-22s %10s %10s %8s %6s  %s\n", "----------------------", "----------", "----------", "--------", "------", "----------")
	for _, r := range rows {
		feasible := "yes"
		if !r.StillFeasible {
			feasible = "no"
		}
		fmt.Printf("%-22s %9.2f%% %+9.2f%% %8s %6d  %s\n",
			r.Scenario, r.ShockedROI*100, r.DeltaROI*100, feasible, r.TotalUnits, r.Relaxation)
	}

	fmt.Println()
	fmt.Println("Summary")
	fmt.Println("-------")
	fmt.Printf("  Most sensitive:         %s\n", sum.MostSensitive)
	fmt.Printf("  Mean delta ROI:         %+.2f%%\n", sum.MeanDeltaROI*100)
	fmt.Printf("  Std dev delta ROI:      %.2f%%\n", sum.StdDevDeltaROI*100)
	fmt.Printf("  Max |delta ROI|:        %.2f%%\n", sum.MaxAbsDeltaROI*100)
	fmt.Printf("  Still feasible:         %d of %d (%d relaxed)\n", sum.FeasibleCount, len(rows), sum.RelaxedCount)
}

func formatMoney(v float64) string {
	if v >= 1_000_000_000 {
		return fmt.Sprintf("%.2fB", v/1_000_000_000)
	}
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	if v >= 1_000 {
		return fmt.Sprintf("%.0fK", v/1_000)
	}
	return fmt.Sprintf("%.0f", v)
}
