// Package config loads runtime settings from flags, FEASIBILITY_ environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/rent"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// EnvPrefix prefixes every environment override, e.g. FEASIBILITY_SERVER_PORT.
const EnvPrefix = "FEASIBILITY"

// Keys.
const (
	KeyServerPort       = "server.port"
	KeyLogLevel         = "log.level"
	KeyLogDevelopment   = "log.development"
	KeyRepairIterations = "solver.repairIterations"
	KeyClimbIterations  = "solver.climbIterations"
	KeyTablesPath       = "tables.path"
)

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"port":              KeyServerPort,
	"log-level":         KeyLogLevel,
	"log-development":   KeyLogDevelopment,
	"repair-iterations": KeyRepairIterations,
	"climb-iterations":  KeyClimbIterations,
	"tables":            KeyTablesPath,
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Solver SolverConfig `mapstructure:"solver"`
	Tables TablesConfig `mapstructure:"tables"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type SolverConfig struct {
	RepairIterations int `mapstructure:"repairIterations"`
	ClimbIterations  int `mapstructure:"climbIterations"`
}

// TablesConfig points at a YAML file overriding the built-in mix and rent
// tables. Empty means the built-in tables.
type TablesConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 3000},
		Log:    LogConfig{Level: "info"},
		Solver: SolverConfig{
			RepairIterations: optimizer.DefaultRepairIterations,
			ClimbIterations:  optimizer.DefaultClimbIterations,
		},
	}
}

// AddFlags registers the config flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int("port", d.Server.Port, "HTTP server port")
	fs.String("log-level", d.Log.Level, "log level: error, warn, info, debug or trace")
	fs.Bool("log-development", d.Log.Development, "human-readable development logging")
	fs.Int("repair-iterations", d.Solver.RepairIterations, "maximum repair iterations per solve")
	fs.Int("climb-iterations", d.Solver.ClimbIterations, "maximum hill-climb passes per solve")
	fs.String("tables", d.Tables.Path, "YAML file overriding the built-in mix and rent tables")
}

// Load resolves the configuration. configFile may be empty. Flags in fs that
// were registered by AddFlags are bound to their keys.
func Load(configFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyServerPort, d.Server.Port)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogDevelopment, d.Log.Development)
	v.SetDefault(KeyRepairIterations, d.Solver.RepairIterations)
	v.SetDefault(KeyClimbIterations, d.Solver.ClimbIterations)
	v.SetDefault(KeyTablesPath, d.Tables.Path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return d, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return d, fmt.Errorf("reading config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return d, fmt.Errorf("decoding config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects settings the solver or server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Solver.RepairIterations < 0 {
		errs = append(errs, fmt.Errorf("solver.repairIterations must be >= 0, got %d", c.Solver.RepairIterations))
	}
	if c.Solver.ClimbIterations < 0 {
		errs = append(errs, fmt.Errorf("solver.climbIterations must be >= 0, got %d", c.Solver.ClimbIterations))
	}
	return errors.Join(errs...)
}

// SolverOptions builds solver options for a project: the configured
// iteration limits and tables, and the project's regulated rent schedule.
func (c Config) SolverOptions(p *spec.Project, log logr.Logger) (optimizer.Options, error) {
	opts := optimizer.Options{
		RepairIterations: c.Solver.RepairIterations,
		ClimbIterations:  c.Solver.ClimbIterations,
		Tables:           program.DefaultTables(),
		Logger:           log,
	}
	if c.Tables.Path != "" {
		t, err := program.LoadTables(c.Tables.Path)
		if err != nil {
			return opts, err
		}
		opts.Tables = t
	}
	if p != nil && len(p.RegulatedRents) > 0 {
		opts.RegulatedRents = rent.NewSchedule(p.RegulatedRents)
	}
	return opts, nil
}
