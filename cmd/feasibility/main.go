package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ChicagoDave/feasibility/internal/config"
)

func main() {
	app := &app{}
	rootCmd := &cobra.Command{
		Use:           "feasibility",
		Short:         "Affordable housing unit-mix optimizer",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "config file (YAML, JSON or TOML)")
	flags.BoolVar(&app.jsonOutput, "json", false, "print machine-readable JSON instead of tables")
	config.AddFlags(flags)

	rootCmd.AddCommand(solveCmd(app))
	rootCmd.AddCommand(validateCmd(app))
	rootCmd.AddCommand(sensitivityCmd(app))
	rootCmd.AddCommand(serveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func solveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "solve [project-path]",
		Short: "Allocate units for a project and report return and constraint slack",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runSolve(args[0])
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate a project's inputs and program stack without solving",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runValidate(args[0])
		},
	}
}

func sensitivityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sensitivity [project-path]",
		Short: "Re-solve under rent and cost shocks and report ROI deltas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSensitivity(cmd.Context(), args[0])
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Start the HTTP API, optionally bound to a project directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := ""
			if len(args) == 1 {
				projectPath = args[0]
			}
			return a.runServe(cmd.Context(), projectPath)
		},
	}
}
