package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/history"
	"github.com/luminahq/lumina/internal/model"
)

type createRequestBody struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Method   string `json:"method"`
	FolderID string `json:"folder_id"`
}

type moveBody struct {
	FolderID string `json:"folder_id"`
	ParentID string `json:"parent_id"`
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, p.Requests())
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	req := model.NewRequest(strings.TrimSpace(body.Name))
	req.URL = body.URL
	if body.Method != "" {
		m, err := model.ParseMethod(body.Method)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		req.Method = m
	}
	if err := p.AddRequest(body.FolderID, req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	req, ok := p.Request(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// updateRequest merges the given fields over the stored request. Field names
// are those of the project file; the id cannot be changed.
func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var patch map[string]json.RawMessage
	if err := decodeJSON(r, &patch); err != nil {
		s.respondErr(w, r, err)
		return
	}
	updated, err := p.EditRequest(chi.URLParam(r, "id"), func(req *model.Request) error {
		return applyPatch(req, patch)
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func applyPatch(req *model.Request, patch map[string]json.RawMessage) error {
	current, err := json.Marshal(req)
	if err != nil {
		return err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return err
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	var next model.Request
	if err := json.Unmarshal(data, &next); err != nil {
		return err
	}
	*req = next
	return nil
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if !p.RemoveRequest(id) {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	if _, err := s.reg.History(sessionID(r), p.ID()).Clear(id); err != nil {
		s.log.Warn("clear history", "request", id, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cloneRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	dup, ok := p.DuplicateRequest(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	respondJSON(w, http.StatusCreated, dup)
}

func (s *Server) moveRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body moveBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := p.MoveRequest(id, body.FolderID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	req, _ := p.Request(id)
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) executeRequest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.reg.Execute(r.Context(), sessionID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) authPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	req, ok := p.Request(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"auth_type": string(req.AuthKind()),
		"preview":   model.Describe(req.Auth),
	})
}

type historyView struct {
	RequestID string          `json:"request_id"`
	Entries   []history.Entry `json:"entries"`
}

func (s *Server) requestHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondErr(w, r, errdef.New(errdef.CodeValidation, "invalid limit %q", v))
			return
		}
		limit = n
	}
	id := chi.URLParam(r, "id")
	entries := s.reg.History(sessionID(r), p.ID()).ByRequest(id, limit)
	if entries == nil {
		entries = []history.Entry{}
	}
	respondJSON(w, http.StatusOK, historyView{RequestID: id, Entries: entries})
}

func (s *Server) clearRequestHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	if _, err := s.reg.History(sessionID(r), p.ID()).Clear(chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) allHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.reg.History(sessionID(r), p.ID()).All())
}

func (s *Server) clearAllHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	if err := s.reg.History(sessionID(r), p.ID()).ClearAll(); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
