package convert

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

const (
	insomniaExportFormat = 4
	insomniaSource       = "lumina"
	insomniaBaseEnvName  = "Base Environment"
	defaultInsomniaName  = "Imported from Insomnia"
)

const (
	insomniaWorkspace    = "workspace"
	insomniaRequestGroup = "request_group"
	insomniaRequest      = "request"
	insomniaEnvironment  = "environment"
)

type insomniaExport struct {
	Type         string            `json:"_type"`
	ExportFormat int               `json:"__export_format"`
	ExportDate   string            `json:"__export_date,omitempty"`
	ExportSource string            `json:"__export_source,omitempty"`
	Resources    []json.RawMessage `json:"resources"`
}

// insomniaResource covers the fields of the resource types we read or
// write; everything else in an export is ignored.
type insomniaResource struct {
	ID             string         `json:"_id"`
	Type           string         `json:"_type"`
	ParentID       *string        `json:"parentId"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	MetaSortKey    int64          `json:"metaSortKey,omitempty"`
	Method         string         `json:"method,omitempty"`
	URL            string         `json:"url,omitempty"`
	Headers        []insomniaPair `json:"headers,omitempty"`
	Parameters     []insomniaPair `json:"parameters,omitempty"`
	Body           *insomniaBody  `json:"body,omitempty"`
	Authentication *insomniaAuth  `json:"authentication,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (r insomniaResource) parent() string {
	if r.ParentID == nil {
		return ""
	}
	return *r.ParentID
}

type insomniaPair struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
	Type     string `json:"type,omitempty"`
}

type insomniaBody struct {
	MimeType string         `json:"mimeType,omitempty"`
	Text     string         `json:"text,omitempty"`
	Params   []insomniaPair `json:"params,omitempty"`
}

type insomniaAuth struct {
	Type     string `json:"type,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
	AddTo    string `json:"addTo,omitempty"`
}

// ImportInsomnia reads an Insomnia v4 export. Request groups become folders
// and keep their nesting; a group whose parent chain loops is placed at the
// top. The base environment feeds the globals and sub environments become
// environments. Resources that fail to decode are skipped.
func ImportInsomnia(data []byte) (*Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errdef.New(errdef.CodeImport, "empty insomnia export")
	}
	var exp insomniaExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, errdef.Wrap(errdef.CodeImport, err, "parse insomnia export")
	}
	if exp.Resources == nil {
		return nil, errdef.New(errdef.CodeImport, "not an insomnia export: no resources")
	}

	var resources []insomniaResource
	for _, raw := range exp.Resources {
		var res insomniaResource
		if err := json.Unmarshal(raw, &res); err != nil {
			continue
		}
		resources = append(resources, res)
	}

	name := defaultInsomniaName
	for _, res := range resources {
		if res.Type == insomniaWorkspace && strings.TrimSpace(res.Name) != "" {
			name = res.Name
			break
		}
	}
	root := model.NewFolder(name)

	groups := map[string]*model.Folder{}
	var groupOrder []insomniaResource
	for _, res := range resources {
		if res.Type == insomniaRequestGroup && res.ID != "" {
			groups[res.ID] = model.NewFolder(orDefault(res.Name, "Unnamed Folder"))
			groupOrder = append(groupOrder, res)
		}
	}
	for _, res := range resources {
		if res.Type != insomniaRequest {
			continue
		}
		parent, ok := groups[res.parent()]
		if !ok {
			parent = root
		}
		parent.AddRequest(insomniaToRequest(res))
	}
	attachInsomniaGroups(root, groups, groupOrder)

	res := &Result{Folder: root}
	envIDs := map[string]bool{}
	for _, r := range resources {
		if r.Type == insomniaEnvironment {
			envIDs[r.ID] = true
		}
	}
	for _, r := range resources {
		if r.Type != insomniaEnvironment {
			continue
		}
		values := make(map[string]string, len(r.Data))
		for k, v := range r.Data {
			values[k] = scalarString(v)
		}
		if !envIDs[r.parent()] {
			if len(values) == 0 {
				continue
			}
			if res.Globals == nil {
				res.Globals = map[string]string{}
			}
			for k, v := range values {
				res.Globals[k] = v
			}
			continue
		}
		res.Environments = append(res.Environments, vars.NewEnvironment(orDefault(r.Name, "Imported Environment"), values))
	}
	return res, nil
}

// attachInsomniaGroups links each folder under its parent group. Walking
// down from the top level visits every folder once, so a parent cycle
// can never make the tree recursive.
func attachInsomniaGroups(root *model.Folder, groups map[string]*model.Folder, order []insomniaResource) {
	children := map[string][]string{}
	var top []string
	for _, res := range order {
		if _, ok := groups[res.parent()]; ok && res.parent() != res.ID {
			children[res.parent()] = append(children[res.parent()], res.ID)
			continue
		}
		top = append(top, res.ID)
	}

	placed := map[string]bool{}
	var attach func(parent *model.Folder, id string)
	attach = func(parent *model.Folder, id string) {
		if placed[id] {
			return
		}
		placed[id] = true
		folder := groups[id]
		parent.AddFolder(folder)
		for _, child := range children[id] {
			attach(folder, child)
		}
	}
	for _, id := range top {
		attach(root, id)
	}
	for _, res := range order {
		attach(root, res.ID)
	}
}

func insomniaToRequest(res insomniaResource) *model.Request {
	r := newImportedRequest(orDefault(res.Name, "Unnamed Request"), lenientMethod(res.Method), res.URL)
	for _, h := range res.Headers {
		if h.Disabled || h.Name == "" {
			continue
		}
		r.Headers[h.Name] = h.Value
	}
	for _, p := range res.Parameters {
		if p.Disabled || p.Name == "" {
			continue
		}
		r.Params[p.Name] = p.Value
	}
	r.Body = insomniaBodyToModel(res.Body)
	r.Auth = insomniaAuthToModel(res.Authentication)
	return r
}

func insomniaBodyToModel(b *insomniaBody) model.Body {
	if b == nil {
		return model.NoBody{}
	}
	mime := strings.ToLower(b.MimeType)
	switch {
	case strings.Contains(mime, "x-www-form-urlencoded"):
		return model.URLEncodedBody{Fields: insomniaFields(b.Params)}
	case strings.Contains(mime, "multipart/form-data"):
		return model.MultipartBody{Fields: insomniaFields(b.Params)}
	case strings.Contains(mime, "json"), b.Text != "":
		return model.RawBody{Text: b.Text}
	}
	return model.NoBody{}
}

func insomniaFields(params []insomniaPair) map[string]string {
	out := map[string]string{}
	for _, p := range params {
		if p.Disabled || p.Name == "" || p.Type == "file" {
			continue
		}
		out[p.Name] = p.Value
	}
	return out
}

func insomniaAuthToModel(a *insomniaAuth) model.Auth {
	if a == nil || a.Disabled {
		return model.NoAuth{}
	}
	switch strings.ToLower(a.Type) {
	case "basic":
		return model.BasicAuth{Username: a.Username, Password: a.Password}
	case "bearer":
		return model.BearerAuth{Token: a.Token}
	case "apikey":
		loc := model.KeyInHeader
		if a.AddTo == "queryParams" {
			loc = model.KeyInQuery
		}
		return model.APIKeyAuth{Name: a.Key, Value: a.Value, Location: loc}
	}
	return model.NoAuth{}
}

// ExportInsomnia renders src as an Insomnia v4 export: one workspace, the
// folder tree as request groups, globals as the base environment and every
// environment as a sub environment of it.
func ExportInsomnia(src Source) ([]byte, error) {
	if src.Root == nil {
		return nil, errdef.New(errdef.CodeValidation, "nothing to export")
	}
	e := &insomniaExporter{}
	wsID := insomniaID("wrk")
	e.add(insomniaResource{ID: wsID, Type: insomniaWorkspace, Name: src.Name})
	e.folder(src.Root, wsID)

	baseID := insomniaID("env")
	e.add(insomniaResource{
		ID:       baseID,
		Type:     insomniaEnvironment,
		ParentID: &wsID,
		Name:     insomniaBaseEnvName,
		Data:     envData(src.Globals),
	})
	for _, env := range src.Environments {
		e.add(insomniaResource{
			ID:       insomniaID("env"),
			Type:     insomniaEnvironment,
			ParentID: &baseID,
			Name:     env.Name,
			Data:     envData(env.Variables),
		})
	}

	exp := insomniaExport{
		Type:         "export",
		ExportFormat: insomniaExportFormat,
		ExportDate:   time.Now().UTC().Format(time.RFC3339),
		ExportSource: insomniaSource,
		Resources:    e.resources,
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeImport, err, "encode insomnia export")
	}
	return data, nil
}

type insomniaExporter struct {
	resources []json.RawMessage
	sortKey   int64
}

func (e *insomniaExporter) add(res insomniaResource) {
	e.sortKey++
	res.MetaSortKey = e.sortKey
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	e.resources = append(e.resources, data)
}

// folder writes the contents of f under parentID. The folder itself is
// only written when it is not the project root.
func (e *insomniaExporter) folder(f *model.Folder, parentID string) {
	for _, r := range f.Requests {
		e.add(requestToInsomnia(r, parentID))
	}
	for _, child := range f.Folders {
		id := insomniaID("fld")
		pid := parentID
		e.add(insomniaResource{ID: id, Type: insomniaRequestGroup, ParentID: &pid, Name: child.Name})
		e.folder(child, id)
	}
}

func requestToInsomnia(r *model.Request, parentID string) insomniaResource {
	res := insomniaResource{
		ID:       insomniaID("req"),
		Type:     insomniaRequest,
		ParentID: &parentID,
		Name:     r.Name,
		Method:   string(r.Method),
		URL:      r.URL,
	}
	for _, k := range sortedKeys(r.Headers) {
		res.Headers = append(res.Headers, insomniaPair{Name: k, Value: r.Headers[k]})
	}
	for _, k := range sortedKeys(r.Params) {
		res.Parameters = append(res.Parameters, insomniaPair{Name: k, Value: r.Params[k]})
	}

	switch b := r.Body.(type) {
	case model.RawBody:
		mime := "text/plain"
		if json.Valid([]byte(b.Text)) {
			mime = "application/json"
		}
		res.Body = &insomniaBody{MimeType: mime, Text: b.Text}
	case model.URLEncodedBody:
		res.Body = &insomniaBody{MimeType: "application/x-www-form-urlencoded", Params: insomniaPairs(b.Fields)}
	case model.MultipartBody:
		res.Body = &insomniaBody{MimeType: "multipart/form-data", Params: insomniaPairs(b.Fields)}
	}

	switch a := r.Auth.(type) {
	case model.BasicAuth:
		res.Authentication = &insomniaAuth{Type: "basic", Username: a.Username, Password: a.Password}
	case model.BearerAuth:
		res.Authentication = &insomniaAuth{Type: "bearer", Token: a.Token}
	case model.APIKeyAuth:
		addTo := "header"
		if a.Location == model.KeyInQuery {
			addTo = "queryParams"
		}
		res.Authentication = &insomniaAuth{Type: "apikey", Key: a.Name, Value: a.Value, AddTo: addTo}
	}
	return res
}

func insomniaPairs(m map[string]string) []insomniaPair {
	out := make([]insomniaPair, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, insomniaPair{Name: k, Value: m[k], Type: "text"})
	}
	return out
}

func envData(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func insomniaID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
