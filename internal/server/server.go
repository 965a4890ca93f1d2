// Package server exposes workspaces over a JSON HTTP API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/luminahq/lumina/internal/config"
	"github.com/luminahq/lumina/internal/share"
	"github.com/luminahq/lumina/internal/workspace"
)

// ProjectFiles removes the on-disk copy of a deleted project.
type ProjectFiles interface {
	Delete(id string) error
}

type Options struct {
	Registry *workspace.Registry
	// Shares may be nil, which turns the share routes off.
	Shares         *share.Store
	Files          ProjectFiles
	Logger         *slog.Logger
	AllowedOrigins []string
	CookieName     string
}

type Server struct {
	reg        *workspace.Registry
	shares     *share.Store
	files      ProjectFiles
	log        *slog.Logger
	origins    []string
	cookieName string
}

func New(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = workspace.NewRegistry(workspace.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.CookieName == "" {
		opts.CookieName = config.DefaultSessionCookie
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		reg:        opts.Registry,
		shares:     opts.Shares,
		files:      opts.Files,
		log:        opts.Logger,
		origins:    opts.AllowedOrigins,
		cookieName: opts.CookieName,
	}
}

func (s *Server) newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.newCORS().Handler)
	r.Use(s.accessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.session)

		r.Get("/project", s.getProject)
		r.Get("/projects", s.listProjects)
		r.Post("/projects", s.createProject)
		r.Put("/projects/{id}", s.renameProject)
		r.Delete("/projects/{id}", s.deleteProject)
		r.Post("/projects/{id}/activate", s.activateProject)

		r.Get("/requests", s.listRequests)
		r.Post("/requests", s.createRequest)
		r.Get("/requests/{id}", s.getRequest)
		r.Put("/requests/{id}", s.updateRequest)
		r.Delete("/requests/{id}", s.deleteRequest)
		r.Post("/requests/{id}/clone", s.cloneRequest)
		r.Post("/requests/{id}/move", s.moveRequest)
		r.Post("/requests/{id}/execute", s.executeRequest)
		r.Get("/requests/{id}/auth", s.authPreview)
		r.Get("/requests/{id}/history", s.requestHistory)
		r.Delete("/requests/{id}/history", s.clearRequestHistory)

		r.Get("/history", s.allHistory)
		r.Delete("/history", s.clearAllHistory)

		r.Post("/folders", s.createFolder)
		r.Get("/folders/{id}", s.getFolder)
		r.Put("/folders/{id}", s.renameFolder)
		r.Delete("/folders/{id}", s.deleteFolder)
		r.Post("/folders/{id}/move", s.moveFolder)

		r.Get("/variables", s.variables)
		r.Get("/environments", s.listEnvironments)
		r.Post("/environments", s.createEnvironment)
		r.Get("/environments/active", s.activeEnvironment)
		r.Post("/environments/active", s.setActiveEnvironment)
		r.Get("/environments/{id}", s.getEnvironment)
		r.Put("/environments/{id}", s.updateEnvironment)
		r.Delete("/environments/{id}", s.deleteEnvironment)
		r.Put("/environments/{id}/variables/{key}", s.setVariable)
		r.Delete("/environments/{id}/variables/{key}", s.deleteVariable)

		r.Post("/import/{format}", s.importCollection)
		r.Get("/export/project", s.exportProject)
		r.Get("/export/{format}", s.exportCollection)

		r.Group(func(r chi.Router) {
			r.Use(s.requireShares)
			r.Post("/share", s.createShare)
			r.Get("/share/{shareID}", s.getShare)
			r.Delete("/share/{shareID}", s.deleteShare)
			r.Post("/share/{shareID}/import", s.importShare)
			r.Get("/shares", s.listShares)
		})
	})
	return r
}
