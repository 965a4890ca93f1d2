package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/project"
	"github.com/luminahq/lumina/internal/workspace"
)

type projectView struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Root                *model.Folder `json:"root_folder"`
	ActiveEnvironmentID string        `json:"active_environment_id,omitempty"`
}

type nameBody struct {
	Name string `json:"name"`
}

func summaryOf(p *project.Project, active bool) workspace.Summary {
	return workspace.Summary{
		ID:           p.ID(),
		Name:         p.Name(),
		Active:       active,
		RequestCount: p.RequestCount(),
	}
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	view := projectView{ID: p.ID(), Name: p.Name(), Root: p.Root()}
	if env, ok := p.ActiveEnvironment(); ok {
		view.ActiveEnvironmentID = env.ID
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.reg.Projects(sessionID(r)))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	p, err := s.reg.Create(sessionID(r), body.Name)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, summaryOf(p, true))
}

func (s *Server) renameProject(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	p, err := s.reg.Rename(sessionID(r), id, body.Name)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	active, _ := s.reg.Active(sessionID(r))
	respondJSON(w, http.StatusOK, summaryOf(p, active == p))
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.reg.Delete(sessionID(r), id) {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	if s.files != nil {
		if err := s.files.Delete(id); err != nil {
			s.log.Warn("remove project file", "id", id, "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) activateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.reg.Activate(sessionID(r), id)
	if !ok {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	respondJSON(w, http.StatusOK, summaryOf(p, true))
}
