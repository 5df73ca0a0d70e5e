package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/ChicagoDave/feasibility/pkg/optimizer"
	"github.com/ChicagoDave/feasibility/pkg/program"
	"github.com/ChicagoDave/feasibility/pkg/sensitivity"
	"github.com/ChicagoDave/feasibility/pkg/spec"
	"github.com/ChicagoDave/feasibility/pkg/units"
	"github.com/ChicagoDave/feasibility/pkg/validation"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

type projectResponse struct {
	Project    *spec.Project      `json:"project"`
	Validation *validation.Report `json:"validation"`
}

type solveResponse struct {
	Validation *validation.Report `json:"validation"`
	Result     *optimizer.Result  `json:"result,omitempty"`
	Outcome    *validation.Report `json:"outcome,omitempty"`
}

type evaluateRequest struct {
	NetResidentialSF   float64                  `json:"netResidentialSF"`
	AllowedUnitTypes   []spec.UnitTypeConfig    `json:"allowedUnitTypes,omitempty"`
	ProgramConstraints []spec.ProgramConstraint `json:"programConstraints"`
	Allocations        []optimizer.Allocation   `json:"allocations,omitempty"`
	Units              []units.Record           `json:"units,omitempty"`
}

type evaluateResponse struct {
	Allocations  []optimizer.Allocation      `json:"allocations"`
	SkippedUnits int                         `json:"skippedUnits"`
	Slacks       []optimizer.ConstraintSlack `json:"constraintSlack"`
	Feasible     bool                        `json:"feasible"`
	Mix          mixResponse                 `json:"mix"`
	Outcome      *validation.Report          `json:"outcome"`
}

type mixResponse struct {
	Counts    units.UnitMix      `json:"counts"`
	Shares    map[string]float64 `json:"shares"`
	AvgUnitSF float64            `json:"avgUnitSF,omitempty"`
}

type mergeRequest struct {
	ProgramConstraints []spec.ProgramConstraint `json:"programConstraints"`
	TotalUnits         int                      `json:"totalUnits"`
}

type mergeResponse struct {
	Merged     program.MergedConstraintSet `json:"merged"`
	Validation *validation.Report          `json:"validation"`
}

type sensitivityResponse struct {
	Baseline *optimizer.Result   `json:"baseline"`
	Rows     []sensitivity.Row   `json:"rows"`
	Summary  sensitivity.Summary `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.loadProject()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{Project: p, Validation: validation.ValidateProject(p)})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context())
	p, err := s.projectFor(w, r)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	report := validation.ValidateProject(p)
	if !report.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, solveResponse{Validation: report})
		return
	}

	solver, err := s.solver(p, log)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	res := solver.Solve(p.Inputs)
	s.metrics.observeSolve(res)

	writeJSON(w, http.StatusOK, solveResponse{
		Validation: report,
		Result:     res,
		Outcome:    validation.FromSlacks(res.ConstraintSlack),
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if len(req.Allocations) == 0 && len(req.Units) == 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("allocations or units are required"))
		return
	}

	// Supplied allocations are re-added so TotalSF is recomputed.
	l := optimizer.LedgerFrom(req.Allocations)
	grouped, skipped := units.Group(req.Units, req.AllowedUnitTypes)
	for _, a := range grouped {
		l.Add(a.UnitType, a.AMIBand, a.Count, a.AvgSF, a.MonthlyRent, a.ProgramTags)
	}
	allocs := l.Allocations()

	solver, err := s.solver(nil, logr.FromContextOrDiscard(r.Context()))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	slacks := solver.Evaluate(allocs, req.NetResidentialSF, req.ProgramConstraints)
	mix := units.FromAllocations(allocs)
	writeJSON(w, http.StatusOK, evaluateResponse{
		Allocations:  allocs,
		SkippedUnits: skipped,
		Slacks:       slacks,
		Feasible:     optimizer.IsFeasible(slacks),
		Mix: mixResponse{
			Counts:    mix,
			Shares:    mix.Shares(),
			AvgUnitSF: units.AvgUnitSF(mix, req.AllowedUnitTypes),
		},
		Outcome: validation.FromSlacks(slacks),
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.TotalUnits < 0 {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("totalUnits must be >= 0, got %d", req.TotalUnits))
		return
	}
	resolved, _ := program.ResolveAll(req.ProgramConstraints)
	writeJSON(w, http.StatusOK, mergeResponse{
		Merged:     program.Merge(resolved, req.TotalUnits),
		Validation: validation.ValidatePrograms(req.ProgramConstraints),
	})
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context())
	p, err := s.projectFor(w, r)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if report := validation.ValidateProject(p); !report.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, solveResponse{Validation: report})
		return
	}

	solver, err := s.solver(p, log)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	base := solver.Solve(p.Inputs)
	s.metrics.observeSolve(base)

	rows, err := sensitivity.Run(r.Context(), solver, p.Inputs, base)
	if err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, sensitivityResponse{
		Baseline: base,
		Rows:     rows,
		Summary:  sensitivity.Summarize(rows),
	})
}

// projectFor decodes the project from the request body, falling back to the
// server's project directory when the body is empty.
func (s *Server) projectFor(w http.ResponseWriter, r *http.Request) (*spec.Project, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest{fmt.Errorf("reading body: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s.loadProject()
	}
	var p spec.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, badRequest{fmt.Errorf("decoding project: %w", err)}
	}
	return &p, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

type badRequest struct{ error }

func (b badRequest) Unwrap() error { return b.error }

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br), errors.Is(err, errNoProject):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logr.FromContextOrDiscard(r.Context()).Error(err, "Request failed", "status", status)
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: w.Header().Get(RequestIDHeader)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
