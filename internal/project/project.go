// Package project holds one request tree and one environment store behind a
// single lock. Exported methods lock; helpers ending in Locked assume the
// lock is held, so recursive operations never re-acquire it.
package project

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/internal/convert"
	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

const (
	DefaultName = "Untitled Project"
	RootName    = "Root"
	// GlobalEnvID addresses the global environment in Environment lookups.
	GlobalEnvID = "global"
)

var ErrCycle = errdef.New(errdef.CodeConflict, "move would place a folder inside itself")

type Project struct {
	mu   sync.RWMutex
	id   string
	name string
	root *model.Folder
	env  *vars.Store
}

func New(id, name string) *Project {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return &Project{id: id, name: name, root: model.NewFolder(RootName), env: vars.NewStore()}
}

func (p *Project) ID() string { return p.id }

func (p *Project) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Project) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errdef.New(errdef.CodeValidation, "project name is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	return nil
}

func (p *Project) RootID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root.ID
}

// Root returns a deep copy of the whole tree.
func (p *Project) Root() *model.Folder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root.Clone()
}

func (p *Project) folderLocked(id string) *model.Folder {
	if id == "" {
		return p.root
	}
	return p.root.FindFolder(id)
}

// AddRequest places r under the folder folderID, or the root when folderID
// is empty.
func (p *Project) AddRequest(folderID string, r *model.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	parent := p.folderLocked(folderID)
	if parent == nil {
		return errdef.New(errdef.CodeNotFound, "folder %s not found", folderID)
	}
	parent.AddRequest(r)
	return nil
}

func (p *Project) AddFolder(parentID string, f *model.Folder) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	parent := p.folderLocked(parentID)
	if parent == nil {
		return errdef.New(errdef.CodeNotFound, "folder %s not found", parentID)
	}
	parent.AddFolder(f)
	return nil
}

func (p *Project) RemoveRequest(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root.RemoveRequest(id)
}

func (p *Project) RemoveFolder(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root.RemoveFolder(id)
}

// Request returns a copy of the stored request.
func (p *Project) Request(id string) (*model.Request, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r := p.root.FindRequest(id)
	if r == nil {
		return nil, false
	}
	return r.Clone(), true
}

// EditRequest runs fn on a copy of the request and stores the copy only if
// fn succeeds.
func (p *Project) EditRequest(id string, fn func(*model.Request) error) (*model.Request, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.root.FindRequest(id)
	if r == nil {
		return nil, errdef.New(errdef.CodeNotFound, "request %s not found", id)
	}
	next := r.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	*r = *next
	return next.Clone(), nil
}

// DuplicateRequest stores a copy next to the original.
func (p *Project) DuplicateRequest(id string) (*model.Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	parent := p.root.RequestParent(id)
	if parent == nil {
		return nil, false
	}
	dup := parent.FindRequest(id).Duplicate()
	parent.AddRequest(dup)
	return dup.Clone(), true
}

func (p *Project) Folder(id string) (*model.Folder, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f := p.root.FindFolder(id)
	if f == nil {
		return nil, false
	}
	return f.Clone(), true
}

func (p *Project) RenameFolder(id, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.root.FindFolder(id)
	if f == nil {
		return false
	}
	f.Name = name
	return true
}

// Requests lists copies of every request in tree order.
func (p *Project) Requests() []*model.Request {
	p.mu.RLock()
	defer p.mu.RUnlock()
	all := p.root.AllRequests()
	out := make([]*model.Request, 0, len(all))
	for _, r := range all {
		out = append(out, r.Clone())
	}
	return out
}

func (p *Project) RequestCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.root.AllRequests())
}

func (p *Project) IsDescendant(ancestorID, nodeID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root.IsDescendant(ancestorID, nodeID)
}

// MoveRequest detaches the request from its folder and appends it to target.
func (p *Project) MoveRequest(id, targetID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	target := p.folderLocked(targetID)
	if target == nil {
		return errdef.New(errdef.CodeNotFound, "folder %s not found", targetID)
	}
	parent := p.root.RequestParent(id)
	if parent == nil {
		return errdef.New(errdef.CodeNotFound, "request %s not found", id)
	}
	r := parent.FindRequest(id)
	if parent == target {
		return nil
	}
	parent.RemoveRequest(id)
	target.AddRequest(r)
	return nil
}

// MoveFolder re-parents a folder. The cycle check runs against the tree as it
// is before anything is detached.
func (p *Project) MoveFolder(id, targetID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == p.root.ID {
		return errdef.New(errdef.CodeValidation, "the root folder cannot be moved")
	}
	target := p.folderLocked(targetID)
	if target == nil {
		return errdef.New(errdef.CodeNotFound, "folder %s not found", targetID)
	}
	parent := p.root.FolderParent(id)
	if parent == nil {
		return errdef.New(errdef.CodeNotFound, "folder %s not found", id)
	}
	if target.ID == id || p.root.IsDescendant(id, target.ID) {
		return ErrCycle
	}
	if parent == target {
		return nil
	}
	f := p.root.FindFolder(id)
	parent.RemoveFolder(id)
	target.AddFolder(f)
	return nil
}

// Reidentify gives the tree fresh folder and request ids, so a copy of a
// project never shares ids with its source.
func (p *Project) Reidentify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.root.Reidentify()
}

// Merge attaches an imported folder under the root, copies imported global
// variables into the global environment and adds any imported environments.
func (p *Project) Merge(f *model.Folder, globals map[string]string, envs ...*vars.Environment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f != nil {
		p.root.AddFolder(f)
	}
	for k, v := range globals {
		p.env.Global().Set(k, v)
	}
	for _, env := range envs {
		if env != nil {
			p.env.Add(env)
		}
	}
}

// ExportSource snapshots what the collection exporters need.
func (p *Project) ExportSource() convert.Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	envs := p.env.Environments()
	src := convert.Source{
		Name:         p.name,
		Root:         p.root.Clone(),
		Globals:      p.env.Global().Clone().Variables,
		Environments: make([]*vars.Environment, 0, len(envs)),
	}
	for _, env := range envs {
		src.Environments = append(src.Environments, env.Clone())
	}
	return src
}

// ExecutionInput returns a copy of the request template together with the
// flattened variables in one lock acquisition.
func (p *Project) ExecutionInput(id string) (*model.Request, map[string]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r := p.root.FindRequest(id)
	if r == nil {
		return nil, nil, false
	}
	return r.Clone(), p.env.Flatten(), true
}
