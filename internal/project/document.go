package project

import (
	"encoding/json"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

const FormatVersion = "1.0"

// Document is the persisted form of a project. The project id is not part of
// it; whoever stores the document owns the id.
type Document struct {
	Version      string        `json:"version"`
	ProjectName  string        `json:"project_name"`
	Root         *model.Folder `json:"root_folder"`
	Environments vars.State    `json:"environment_manager"`
}

// Document snapshots the project under the read lock.
func (p *Project) Document() Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Document{
		Version:      FormatVersion,
		ProjectName:  p.name,
		Root:         p.root.Clone(),
		Environments: p.env.State(),
	}
}

func (p *Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Document())
}

// FromDocument builds a project with the given id. A missing root becomes an
// empty root folder.
func FromDocument(id string, doc Document) *Project {
	p := New(id, doc.ProjectName)
	if doc.Root != nil {
		p.root = doc.Root.Clone()
	}
	p.env = vars.StoreFromState(doc.Environments)
	return p
}

func Decode(id string, data []byte) (*Project, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		if errdef.CodeOf(err) != errdef.CodeUnknown {
			return nil, err
		}
		return nil, errdef.Wrap(errdef.CodeValidation, err, "decode project")
	}
	return FromDocument(id, doc), nil
}
