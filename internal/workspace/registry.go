// Package workspace maps session keys to isolated sets of projects.
//
// Lock order: the registry lock only guards bookkeeping and is always
// released before a project lock is taken or network I/O starts.
package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/history"
	"github.com/luminahq/lumina/internal/httpclient"
	"github.com/luminahq/lumina/internal/project"
	"github.com/luminahq/lumina/internal/telemetry"
)

// DefaultSession names the workspace preloaded from disk.
const DefaultSession = "default"

type workspace struct {
	projects map[string]*project.Project
	order    []string
	activeID string
}

func newWorkspace() *workspace {
	return &workspace{projects: map[string]*project.Project{}}
}

func (w *workspace) add(p *project.Project) {
	if _, ok := w.projects[p.ID()]; !ok {
		w.order = append(w.order, p.ID())
	}
	w.projects[p.ID()] = p
}

type historyKey struct {
	session string
	project string
}

type Options struct {
	// Seed builds the project for a session seen for the first time.
	Seed func() *project.Project
	// ShareDefault makes new sessions use the default workspace instead of a
	// fresh one. The default workspace is created and seeded on demand.
	ShareDefault bool
	HistoryLimit int
	// HistoryDir keeps the default workspace's history as one
	// <project id>.json file per project. Empty keeps history in memory.
	HistoryDir string
	HTTP         httpclient.Options
	Telemetry    telemetry.Instrumenter
	Logger       *slog.Logger
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*workspace

	histMu    sync.Mutex
	histories map[historyKey]*history.Store

	clientMu sync.Mutex
	clients  map[string]*httpclient.Client

	opts Options
}

func NewRegistry(opts Options) *Registry {
	if opts.Seed == nil {
		opts.Seed = func() *project.Project { return project.NewSample("") }
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.HTTP.Timeout <= 0 {
		opts.HTTP = httpclient.DefaultOptions()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		sessions:  map[string]*workspace{},
		histories: map[historyKey]*history.Store{},
		clients:   map[string]*httpclient.Client{},
		opts:      opts,
	}
}

// Preload installs projects into the default workspace. The first one
// becomes active unless the workspace already has an active project.
func (r *Registry) Preload(projects ...*project.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.sessions[DefaultSession]
	if !ok {
		ws = newWorkspace()
		r.sessions[DefaultSession] = ws
	}
	for _, p := range projects {
		ws.add(p)
	}
	if ws.activeID == "" && len(ws.order) > 0 {
		ws.activeID = ws.order[0]
	}
}

// workspaceLocked returns the session's workspace, creating and seeding it
// on first use. Callers hold r.mu for writing.
func (r *Registry) workspaceLocked(session string) *workspace {
	if ws, ok := r.sessions[session]; ok {
		return ws
	}
	if r.opts.ShareDefault && session != DefaultSession {
		ws := r.workspaceLocked(DefaultSession)
		r.sessions[session] = ws
		return ws
	}
	ws := newWorkspace()
	p := r.opts.Seed()
	ws.add(p)
	ws.activeID = p.ID()
	r.sessions[session] = ws
	r.opts.Logger.Debug("workspace created", "session", shortID(session), "project", p.ID())
	return ws
}

func (r *Registry) Active(session string) (*project.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.workspaceLocked(session)
	p, ok := ws.projects[ws.activeID]
	return p, ok
}

func (r *Registry) Project(session, id string) (*project.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.workspaceLocked(session).projects[id]
	return p, ok
}

type Summary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	RequestCount int    `json:"request_count"`
}

// Projects lists the session's projects in creation order. Names and counts
// are read after the registry lock is released.
func (r *Registry) Projects(session string) []Summary {
	r.mu.Lock()
	ws := r.workspaceLocked(session)
	activeID := ws.activeID
	list := make([]*project.Project, 0, len(ws.order))
	for _, id := range ws.order {
		list = append(list, ws.projects[id])
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(list))
	for _, p := range list {
		out = append(out, Summary{
			ID:           p.ID(),
			Name:         p.Name(),
			Active:       p.ID() == activeID,
			RequestCount: p.RequestCount(),
		})
	}
	return out
}

// Create adds an empty project and makes it active.
func (r *Registry) Create(session, name string) (*project.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errdef.New(errdef.CodeValidation, "project name is required")
	}
	p := project.New("", name)
	r.Attach(session, p, true)
	return p, nil
}

// Attach adds an existing project to the session's workspace.
func (r *Registry) Attach(session string, p *project.Project, activate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.workspaceLocked(session)
	ws.add(p)
	if activate || ws.activeID == "" {
		ws.activeID = p.ID()
	}
}

// Rename returns the renamed project so callers need no second lookup.
func (r *Registry) Rename(session, id, name string) (*project.Project, error) {
	p, ok := r.Project(session, id)
	if !ok {
		return nil, errdef.New(errdef.CodeNotFound, "project %s not found", id)
	}
	if err := p.Rename(name); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a project. If it was active, the first remaining project
// becomes active, or none when the workspace is empty.
func (r *Registry) Delete(session, id string) bool {
	r.mu.Lock()
	ws := r.workspaceLocked(session)
	if _, ok := ws.projects[id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(ws.projects, id)
	ws.order = slices.DeleteFunc(ws.order, func(v string) bool { return v == id })
	if ws.activeID == id {
		ws.activeID = ""
		if len(ws.order) > 0 {
			ws.activeID = ws.order[0]
		}
	}
	r.mu.Unlock()

	r.clientMu.Lock()
	delete(r.clients, id)
	r.clientMu.Unlock()

	key := r.historyKey(session, id)
	r.histMu.Lock()
	store, ok := r.histories[key]
	delete(r.histories, key)
	r.histMu.Unlock()
	if !ok {
		store = r.newHistory(key)
	}
	if err := store.Drop(); err != nil {
		r.opts.Logger.Warn("drop history", "project", id, "err", err)
	}
	return true
}

// Activate returns the newly active project, or false when the session has
// no project with id.
func (r *Registry) Activate(session, id string) (*project.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws := r.workspaceLocked(session)
	p, ok := ws.projects[id]
	if !ok {
		return nil, false
	}
	ws.activeID = id
	return p, true
}

// DefaultProjects returns the projects of the default workspace, keyed by
// id. These are the only projects a restart can bring back, so they are
// what gets written to disk.
func (r *Registry) DefaultProjects() map[string]*project.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]*project.Project{}
	if ws, ok := r.sessions[DefaultSession]; ok {
		for id, p := range ws.projects {
			out[id] = p
		}
	}
	return out
}

// historyKey maps a session to the workspace that owns its history. All
// sessions of a shared default workspace read the same entries.
func (r *Registry) historyKey(session, projectID string) historyKey {
	if r.opts.ShareDefault {
		session = DefaultSession
	}
	return historyKey{session: session, project: projectID}
}

func (r *Registry) newHistory(key historyKey) *history.Store {
	path := ""
	if r.opts.HistoryDir != "" && key.session == DefaultSession {
		path = filepath.Join(r.opts.HistoryDir, key.project+".json")
	}
	return history.NewStore(path, r.opts.HistoryLimit)
}

// History returns the store for one (session, project) pair. Stores of the
// default workspace are backed by HistoryDir when it is set.
func (r *Registry) History(session, projectID string) *history.Store {
	key := r.historyKey(session, projectID)
	r.histMu.Lock()
	defer r.histMu.Unlock()
	store, ok := r.histories[key]
	if !ok {
		store = r.newHistory(key)
		if err := store.Load(); err != nil {
			r.opts.Logger.Warn("load history", "project", projectID, "err", err)
		}
		r.histories[key] = store
	}
	return store
}

func (r *Registry) client(projectID string) *httpclient.Client {
	r.clientMu.Lock()
	defer r.clientMu.Unlock()
	c, ok := r.clients[projectID]
	if !ok {
		c = httpclient.NewClient(r.opts.HTTP)
		c.SetTelemetry(r.opts.Telemetry)
		c.SetProjectID(projectID)
		r.clients[projectID] = c
	}
	return c
}

// Execute runs a request of the session's active project and records the
// outcome in that project's history. Only the template read holds the
// project lock; no lock is held while the call is in flight.
func (r *Registry) Execute(ctx context.Context, session, requestID string) (*httpclient.Response, error) {
	p, ok := r.Active(session)
	if !ok {
		return nil, errdef.New(errdef.CodeNotFound, "no active project")
	}
	req, variables, ok := p.ExecutionInput(requestID)
	if !ok {
		return nil, errdef.New(errdef.CodeNotFound, "request %s not found", requestID)
	}

	resp := r.client(p.ID()).Execute(ctx, req, variables)
	if err := r.History(session, p.ID()).Append(history.NewEntry(req, resp)); err != nil {
		r.opts.Logger.Warn("record history", "request", requestID, "err", err)
	}
	return resp, nil
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
