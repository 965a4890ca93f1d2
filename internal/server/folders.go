package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/luminahq/lumina/internal/model"
)

type createFolderBody struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body createFolderBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	f := model.NewFolder(strings.TrimSpace(body.Name))
	if err := p.AddFolder(body.ParentID, f); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

func (s *Server) getFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	f, ok := p.Folder(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "folder not found")
		return
	}
	respondJSON(w, http.StatusOK, f)
}

func (s *Server) renameFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body nameBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "folder name is required")
		return
	}
	id := chi.URLParam(r, "id")
	if !p.RenameFolder(id, name) {
		respondError(w, http.StatusNotFound, "folder not found")
		return
	}
	f, _ := p.Folder(id)
	respondJSON(w, http.StatusOK, f)
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id == p.RootID() {
		respondError(w, http.StatusBadRequest, "the root folder cannot be deleted")
		return
	}
	if !p.RemoveFolder(id) {
		respondError(w, http.StatusNotFound, "folder not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body moveBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	target := body.ParentID
	if target == "" {
		target = body.FolderID
	}
	id := chi.URLParam(r, "id")
	if err := p.MoveFolder(id, target); err != nil {
		s.respondErr(w, r, err)
		return
	}
	f, _ := p.Folder(id)
	respondJSON(w, http.StatusOK, f)
}
