package model

import (
	"slices"

	"github.com/google/uuid"
)

// Folder exclusively owns its child requests and folders. There are no
// parent pointers; lookups walk down from a root.
type Folder struct {
	ID       string
	Name     string
	Requests []*Request
	Folders  []*Folder
}

func NewFolder(name string) *Folder {
	if name == "" {
		name = "New Folder"
	}
	return &Folder{ID: uuid.NewString(), Name: name}
}

func (f *Folder) AddRequest(r *Request) {
	f.Requests = append(f.Requests, r)
}

func (f *Folder) AddFolder(child *Folder) {
	f.Folders = append(f.Folders, child)
}

// RemoveRequest deletes the request with id from the subtree. Direct children
// are checked before descending.
func (f *Folder) RemoveRequest(id string) bool {
	if i := slices.IndexFunc(f.Requests, func(r *Request) bool { return r.ID == id }); i >= 0 {
		f.Requests = slices.Delete(f.Requests, i, i+1)
		return true
	}
	for _, child := range f.Folders {
		if child.RemoveRequest(id) {
			return true
		}
	}
	return false
}

// RemoveFolder deletes the folder with id, and everything under it, from the
// subtree. The receiver itself is never removed.
func (f *Folder) RemoveFolder(id string) bool {
	if i := slices.IndexFunc(f.Folders, func(c *Folder) bool { return c.ID == id }); i >= 0 {
		f.Folders = slices.Delete(f.Folders, i, i+1)
		return true
	}
	for _, child := range f.Folders {
		if child.RemoveFolder(id) {
			return true
		}
	}
	return false
}

func (f *Folder) FindRequest(id string) *Request {
	_, r := f.findRequest(id)
	return r
}

// RequestParent returns the folder that directly owns the request.
func (f *Folder) RequestParent(id string) *Folder {
	parent, _ := f.findRequest(id)
	return parent
}

func (f *Folder) findRequest(id string) (*Folder, *Request) {
	for _, r := range f.Requests {
		if r.ID == id {
			return f, r
		}
	}
	for _, child := range f.Folders {
		if parent, r := child.findRequest(id); r != nil {
			return parent, r
		}
	}
	return nil, nil
}

// FindFolder searches the subtree, the receiver included.
func (f *Folder) FindFolder(id string) *Folder {
	if f.ID == id {
		return f
	}
	for _, child := range f.Folders {
		if child.ID == id {
			return child
		}
	}
	for _, child := range f.Folders {
		if found := child.FindFolder(id); found != nil {
			return found
		}
	}
	return nil
}

// FolderParent returns the folder that directly owns the folder with id.
func (f *Folder) FolderParent(id string) *Folder {
	for _, child := range f.Folders {
		if child.ID == id {
			return f
		}
	}
	for _, child := range f.Folders {
		if parent := child.FolderParent(id); parent != nil {
			return parent
		}
	}
	return nil
}

// AllRequests flattens the subtree: direct requests first, then each child
// folder in order.
func (f *Folder) AllRequests() []*Request {
	var out []*Request
	f.collect(&out)
	return out
}

func (f *Folder) collect(out *[]*Request) {
	*out = append(*out, f.Requests...)
	for _, child := range f.Folders {
		child.collect(out)
	}
}

// IsDescendant reports whether nodeID (a folder or request) sits strictly
// below the folder ancestorID.
func (f *Folder) IsDescendant(ancestorID, nodeID string) bool {
	ancestor := f.FindFolder(ancestorID)
	if ancestor == nil {
		return false
	}
	for _, child := range ancestor.Folders {
		if child.FindFolder(nodeID) != nil {
			return true
		}
	}
	return ancestor.FindRequest(nodeID) != nil
}

func (f *Folder) CountFolders() int {
	n := len(f.Folders)
	for _, child := range f.Folders {
		n += child.CountFolders()
	}
	return n
}

func (f *Folder) Clone() *Folder {
	if f == nil {
		return nil
	}
	out := &Folder{ID: f.ID, Name: f.Name}
	out.Requests = make([]*Request, 0, len(f.Requests))
	for _, r := range f.Requests {
		out.Requests = append(out.Requests, r.Clone())
	}
	out.Folders = make([]*Folder, 0, len(f.Folders))
	for _, child := range f.Folders {
		out.Folders = append(out.Folders, child.Clone())
	}
	return out
}

// Reidentify assigns fresh ids to the folder and its whole subtree.
func (f *Folder) Reidentify() {
	f.ID = uuid.NewString()
	for _, r := range f.Requests {
		r.ID = uuid.NewString()
	}
	for _, child := range f.Folders {
		child.Reidentify()
	}
}
