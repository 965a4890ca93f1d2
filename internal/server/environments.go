package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminahq/lumina/internal/vars"
)

type environmentsView struct {
	Environments []*vars.Environment `json:"environments"`
	ActiveID     *string             `json:"active_environment_id"`
	Global       *vars.Environment   `json:"global_environment"`
}

type environmentBody struct {
	Name      *string           `json:"name"`
	Variables map[string]string `json:"variables"`
}

type activeBody struct {
	EnvironmentID string `json:"environment_id"`
}

type valueBody struct {
	Value string `json:"value"`
}

func (s *Server) variables(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, p.Variables())
}

func (s *Server) listEnvironments(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	view := environmentsView{Environments: p.Environments(), Global: p.GlobalEnvironment()}
	if env, ok := p.ActiveEnvironment(); ok {
		view.ActiveID = &env.ID
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) createEnvironment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body environmentBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	name := ""
	if body.Name != nil {
		name = *body.Name
	}
	env := vars.NewEnvironment(name, body.Variables)
	p.AddEnvironment(env)
	respondJSON(w, http.StatusCreated, env.Clone())
}

func (s *Server) getEnvironment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	env, ok := p.Environment(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "environment not found")
		return
	}
	respondJSON(w, http.StatusOK, env)
}

// updateEnvironment renames and/or replaces the variable map. Omitted
// fields are left alone.
func (s *Server) updateEnvironment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body environmentBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	env, ok := p.UpdateEnvironment(chi.URLParam(r, "id"), func(env *vars.Environment) {
		if body.Name != nil && *body.Name != "" {
			env.Name = *body.Name
		}
		if body.Variables != nil {
			env.Variables = map[string]string{}
			for k, v := range body.Variables {
				env.Variables[k] = v
			}
		}
	})
	if !ok {
		respondError(w, http.StatusNotFound, "environment not found")
		return
	}
	respondJSON(w, http.StatusOK, env)
}

func (s *Server) deleteEnvironment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	if !p.RemoveEnvironment(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "environment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setVariable(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body valueBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	env, ok := p.UpdateEnvironment(chi.URLParam(r, "id"), func(env *vars.Environment) {
		env.Set(key, body.Value)
	})
	if !ok {
		respondError(w, http.StatusNotFound, "environment not found")
		return
	}
	respondJSON(w, http.StatusOK, env)
}

func (s *Server) deleteVariable(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	removed := false
	_, ok = p.UpdateEnvironment(chi.URLParam(r, "id"), func(env *vars.Environment) {
		removed = env.Delete(key)
	})
	if !ok {
		respondError(w, http.StatusNotFound, "environment not found")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "variable not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) activeEnvironment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	env, _ := p.ActiveEnvironment()
	respondJSON(w, http.StatusOK, map[string]*vars.Environment{"environment": env})
}

// setActiveEnvironment clears the selection when environment_id is empty.
func (s *Server) setActiveEnvironment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}
	var body activeBody
	if err := decodeJSON(r, &body); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !p.SetActiveEnvironment(body.EnvironmentID) {
		respondError(w, http.StatusNotFound, "environment not found")
		return
	}
	env, _ := p.ActiveEnvironment()
	respondJSON(w, http.StatusOK, map[string]*vars.Environment{"environment": env})
}
