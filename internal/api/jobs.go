package api

import (
	"context"
	"net/http"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

func (s *Server) handleRunWeekly(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Evaluator.RunAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRunDecay(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Decay.RunToday(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleWeeklyRuns(w http.ResponseWriter, r *http.Request) {
	s.writeRuns(w, r, s.svc.Evaluator.Runs)
}

func (s *Server) handleDecayRuns(w http.ResponseWriter, r *http.Request) {
	s.writeRuns(w, r, s.svc.Decay.Runs)
}

func (s *Server) writeRuns(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, limit int) ([]domain.JobRun, error)) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	runs, err := list(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
