package optimizer

import (
	"github.com/go-logr/logr"

	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/rent"
	"github.com/ChicagoDave/feasibility/pkg/spec"
)

// Search ceilings. They are the termination guarantee for both loops.
const (
	DefaultRepairIterations = 30
	DefaultClimbIterations  = 200
)

// SolverMethod is reported on every result.
const SolverMethod = "heuristic"

// Options configures a Solver. Zero values take defaults.
type Options struct {
	RepairIterations int
	ClimbIterations  int
	Tables           program.Tables
	// RegulatedRents, when set, prices affordable units ahead of the
	// project's rent assumptions.
	RegulatedRents rent.Lookup
	Logger         logr.Logger
}

// Solver runs the allocation pipeline. It holds no per-solve state and is
// safe for concurrent use.
type Solver struct {
	opts Options
}

// New creates a solver.
func New(opts Options) *Solver {
	if opts.RepairIterations <= 0 {
		opts.RepairIterations = DefaultRepairIterations
	}
	if opts.ClimbIterations <= 0 {
		opts.ClimbIterations = DefaultClimbIterations
	}
	opts.Tables = opts.Tables.WithDefaults()
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &Solver{opts: opts}
}

// RegulatedRents returns the solver's regulated rent lookup, if any.
func (s *Solver) RegulatedRents() rent.Lookup {
	return s.opts.RegulatedRents
}

// WithRegulatedRents returns a copy of the solver using a different
// regulated rent lookup.
func (s *Solver) WithRegulatedRents(l rent.Lookup) *Solver {
	opts := s.opts
	opts.RegulatedRents = l
	return &Solver{opts: opts}
}

// Tables returns the reference tables in use.
func (s *Solver) Tables() program.Tables {
	return s.opts.Tables
}

// Evaluate scores allocations with the solver's tables.
func (s *Solver) Evaluate(allocs []Allocation, netSF float64, constraints []spec.ProgramConstraint) []ConstraintSlack {
	resolved, _ := program.ResolveAll(constraints)
	return evaluator{tables: s.opts.Tables}.evaluate(allocs, netSF, resolved)
}

// Solve produces an allocation for the inputs. Degenerate inputs yield an
// explicit empty, infeasible result rather than an error.
func (s *Solver) Solve(in spec.Inputs) *Result {
	log := s.opts.Logger.WithName("solver")

	if in.NetResidentialSF <= 0 {
		return emptyResult(in, "net residential SF must be positive")
	}
	if len(in.AllowedUnitTypes) == 0 {
		return emptyResult(in, "no allowed unit types")
	}

	constraints, errs := program.ResolveAll(in.ProgramConstraints)
	for _, err := range errs {
		log.Info("Ignoring unresolved preset", "error", err.Error())
	}

	p := newProblem(in, constraints, s.opts.Tables, s.opts.RegulatedRents)
	log.V(1).Info("Merged program constraints",
		"programs", p.merged.ProgramNames,
		"affordableTarget", p.merged.MergedAffordableTarget,
		"maxAffordablePct", p.merged.MaxAffordablePct)

	l := p.build()
	log.V(1).Info("Initial allocation built",
		"units", l.Units(), "affordable", l.AffordableUnits(), "usedSF", l.UsedSF())

	l, repairs := s.repair(p, l)
	l, passes := p.climb(l, s.opts.ClimbIterations)

	res := p.summarize(l)
	res.RepairIterations = repairs
	res.ClimbIterations = passes
	for _, err := range errs {
		res.Notes = append(res.Notes, err.Error())
	}

	log.Info("Solve complete",
		"units", res.TotalUnits,
		"affordable", res.AffordableUnits,
		"feasible", res.Feasible,
		"roi", res.ROI,
		"repairs", repairs,
		"climbPasses", passes)
	return res
}

// repair applies targeted moves until the allocation is feasible, no move
// applies, or the iteration ceiling is reached.
func (s *Solver) repair(p *problem, l *Ledger) (*Ledger, int) {
	log := s.opts.Logger.WithName("repair")
	i := 0
	for ; i < s.opts.RepairIterations; i++ {
		v, ok := p.worstViolation(p.evaluate(l))
		if !ok {
			break
		}
		next, moved := p.repairMove(l, v)
		if !moved {
			log.V(1).Info("No eligible move", "constraint", v.Constraint, "slack", v.Slack)
			break
		}
		log.V(1).Info("Applied repair move", "iteration", i, "constraint", v.Constraint, "slack", v.Slack)
		l = next
	}
	return l, i
}
