package api

import (
	"fmt"
	"net/http"

	"github.com/ganbari-quest/ganbari/internal/app/activity"
	"github.com/ganbari-quest/ganbari/internal/domain"
)

type recordRequest struct {
	ChildID    int64 `json:"child_id"`
	ActivityID int64 `json:"activity_id"`
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.ChildID <= 0 || req.ActivityID <= 0 {
		s.fail(w, r, fmt.Errorf("%w: child_id and activity_id are required", domain.ErrInvalidInput))
		return
	}
	res, err := s.svc.Recorder.Record(r.Context(), req.ChildID, req.ActivityID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListActivityLogs(w http.ResponseWriter, r *http.Request) {
	childID, ok, err := queryID(r, "child_id")
	if err == nil && !ok {
		err = fmt.Errorf("%w: child_id is required", domain.ErrInvalidInput)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	period, err := activity.ParsePeriod(q.Get("period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Recorder.Logs(r.Context(), childID, activity.LogQuery{
		Period: period,
		From:   q.Get("from"),
		To:     q.Get("to"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelActivityLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Recorder.Cancel(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	var f domain.ActivityFilter
	q := r.URL.Query()

	childID, ok, err := queryID(r, "child_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ok {
		child, err := s.svc.Catalog.GetChild(r.Context(), childID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.ChildAge = &child.Age
	}
	if raw := q.Get("category"); raw != "" {
		cat, err := domain.ParseCategory(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.Category = cat
	}
	f.IncludeHidden = q.Get("include_hidden") == "true"

	acts, err := s.svc.Catalog.ListActivities(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": acts})
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var in activity.ActivityInput
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.Catalog.CreateActivity(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.Catalog.GetActivity(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in activity.ActivityInput
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.Catalog.UpdateActivity(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleHideActivity soft-deletes: logs keep referencing the row.
func (s *Server) handleHideActivity(w http.ResponseWriter, r *http.Request) {
	s.setVisibility(w, r, false)
}

func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visible *bool `json:"is_visible"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Visible == nil {
		s.fail(w, r, fmt.Errorf("%w: is_visible is required", domain.ErrInvalidInput))
		return
	}
	s.setVisibility(w, r, *req.Visible)
}

func (s *Server) setVisibility(w http.ResponseWriter, r *http.Request, visible bool) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.Catalog.SetVisibility(r.Context(), id, visible)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := s.svc.Catalog.ListChildren(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": children})
}

func (s *Server) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	var in activity.ChildInput
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Catalog.CreateChild(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetChild(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Catalog.GetChild(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleTodayRecorded(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "childId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids, err := s.svc.Recorder.TodayRecordedActivityIDs(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity_ids": ids})
}
