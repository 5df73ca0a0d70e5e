package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, optimizer.DefaultRepairIterations, c.Solver.RepairIterations)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "feasibility.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9000
log:
  level: debug
solver:
  repairIterations: 12
  climbIterations: 40
`), 0o644))

	t.Setenv("FEASIBILITY_SERVER_PORT", "8080")
	fs := newFlags(t, "--climb-iterations=50")

	c, err := Load(file, fs)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port, "env beats file")
	assert.Equal(t, 50, c.Solver.ClimbIterations, "flag beats file")
	assert.Equal(t, 12, c.Solver.RepairIterations)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	c.Server.Port = 70000
	c.Solver.RepairIterations = -1
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "repairIterations")
}

func TestSolverOptions(t *testing.T) {
	c := Default()
	c.Solver.ClimbIterations = 5
	p := &spec.Project{RegulatedRents: []spec.RegulatedRent{
		{UnitType: spec.OneBR, AMIBand: 60, MonthlyRent: 1400},
	}}

	opts, err := c.SolverOptions(p, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, 5, opts.ClimbIterations)
	assert.Equal(t, program.DefaultTables(), opts.Tables)
	require.NotNil(t, opts.RegulatedRents)
	r, ok := opts.RegulatedRents.Rent(spec.OneBR, 60)
	assert.True(t, ok)
	assert.Equal(t, 1400.0, r)

	opts, err = c.SolverOptions(&spec.Project{}, logr.Discard())
	require.NoError(t, err)
	assert.Nil(t, opts.RegulatedRents)

	c.Tables.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = c.SolverOptions(p, logr.Discard())
	assert.Error(t, err)
}

func TestSolverOptionsTablesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(file, []byte("defaultRent: 3100\n"), 0o644))

	c := Default()
	c.Tables.Path = file
	opts, err := c.SolverOptions(nil, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3100.0, opts.Tables.DefaultRent)
	assert.Equal(t, program.DefaultTables().BaselineMix, opts.Tables.BaselineMix)
}
