package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/ChicagoDave/feasibility/internal/config"
	"github.com/ChicagoDave/feasibility/internal/logging"
	"github.com/ChicagoDave/feasibility/internal/server"
	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/sensitivity"
	"github.com/ChicagoDave/feasibility/pkg/spec"
	"github.com/ChicagoDave/feasibility/pkg/validation"
)

// app carries state resolved once before any command runs.
type app struct {
	configFile string
	jsonOutput bool

	cfg config.Config
	log logr.Logger
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// loadAndValidate loads the project and runs schema and program validation.
func (a *app) loadAndValidate(projectPath string) (*spec.Project, *validation.Report, error) {
	p, err := spec.LoadProject(projectPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading project: %w", err)
	}
	return p, validation.ValidateProject(p), nil
}

func (a *app) solver(p *spec.Project) (*optimizer.Solver, error) {
	opts, err := a.cfg.SolverOptions(p, a.log)
	if err != nil {
		return nil, err
	}
	return optimizer.New(opts), nil
}

func (a *app) runValidate(projectPath string) error {
	_, report, err := a.loadAndValidate(projectPath)
	if err != nil {
		return err
	}

	if a.jsonOutput {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printValidationReport(report)
	}

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

func (a *app) runSolve(projectPath string) error {
	p, report, err := a.loadAndValidate(projectPath)
	if err != nil {
		return err
	}
	if !report.Valid {
		printValidationReport(report)
		return fmt.Errorf("project has validation errors")
	}

	s, err := a.solver(p)
	if err != nil {
		return err
	}
	res := s.Solve(p.Inputs)

	if a.jsonOutput {
		return printJSON(map[string]any{
			"project":    p.Name,
			"result":     res,
			"validation": report,
			"outcome":    validation.FromSlacks(res.ConstraintSlack),
		})
	}

	printResult(p, res)
	if len(report.Warnings) > 0 {
		fmt.Println()
		printValidationReport(report)
	}
	return nil
}

func (a *app) runSensitivity(ctx context.Context, projectPath string) error {
	p, report, err := a.loadAndValidate(projectPath)
	if err != nil {
		return err
	}
	if !report.Valid {
		printValidationReport(report)
		return fmt.Errorf("project has validation errors")
	}

	s, err := a.solver(p)
	if err != nil {
		return err
	}
	base := s.Solve(p.Inputs)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	rows, err := sensitivity.Run(logr.NewContext(ctx, a.log), s, p.Inputs, base)
	if err != nil {
		return fmt.Errorf("sensitivity analysis: %w", err)
	}
	summary := sensitivity.Summarize(rows)

	if a.jsonOutput {
		return printJSON(map[string]any{
			"baseline": base,
			"rows":     rows,
			"summary":  summary,
		})
	}
	printSensitivity(base, rows, summary)
	return nil
}

func (a *app) runServe(ctx context.Context, projectPath string) error {
	if projectPath != "" {
		if _, err := spec.LoadProject(projectPath); err != nil {
			return fmt.Errorf("loading project: %w", err)
		}
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(projectPath, a.cfg, a.log).Start(ctx)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
