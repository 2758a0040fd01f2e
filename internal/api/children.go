package api

import (
	"fmt"
	"net/http"

	"github.com/ganbari-quest/ganbari/internal/domain"
)

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.svc.Status.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type applyStatusRequest struct {
	Category string   `json:"category"`
	Delta    *float64 `json:"delta"`
}

// handleApplyStatus is a manual adjustment, recorded with reason "manual".
func (s *Server) handleApplyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req applyStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	cat, err := domain.ParseCategory(req.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Delta == nil {
		s.fail(w, r, fmt.Errorf("%w: delta is required", domain.ErrInvalidInput))
		return
	}
	st, err := s.svc.Status.Apply(r.Context(), id, cat, *req.Delta, domain.ReasonManual)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLoginBonusStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.svc.LoginBonus.Status(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleClaimLoginBonus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.LoginBonus.Claim(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePointBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bal, err := s.svc.Ledger.Balance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) handlePointHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.svc.Ledger.History(r.Context(), id, limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type convertRequest struct {
	ChildID int64 `json:"child_id"`
	Amount  int64 `json:"amount"`
}

func (s *Server) handleConvertPoints(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.ChildID <= 0 {
		s.fail(w, r, fmt.Errorf("%w: child_id is required", domain.ErrInvalidInput))
		return
	}
	res, err := s.svc.Ledger.Convert(r.Context(), req.ChildID, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	evals, err := s.svc.Evaluator.Evaluations(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if evals == nil {
		evals = []domain.Evaluation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluations": evals})
}
