package convert

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
)

const PostmanSchema = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

const defaultCollectionName = "Imported Collection"

type postmanCollection struct {
	Info     postmanInfo       `json:"info"`
	Item     []postmanItem     `json:"item"`
	Variable []postmanVariable `json:"variable,omitempty"`
}

type postmanInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

type postmanVariable struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// postmanItem is a folder when Request is nil.
type postmanItem struct {
	Name    string          `json:"name"`
	Item    []postmanItem   `json:"item,omitempty"`
	Request *postmanRequest `json:"request,omitempty"`
}

type postmanRequest struct {
	Method string        `json:"method"`
	Header []postmanPair `json:"header,omitempty"`
	Body   *postmanBody  `json:"body,omitempty"`
	URL    postmanURL    `json:"url"`
	Auth   *postmanAuth  `json:"auth,omitempty"`
}

// UnmarshalJSON accepts the short form where the request is only a URL.
func (r *postmanRequest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = postmanRequest{Method: "GET", URL: postmanURL{Raw: s}}
		return nil
	}
	type plain postmanRequest
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = postmanRequest(v)
	return nil
}

type postmanPair struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
	Type     string `json:"type,omitempty"`
}

type postmanBody struct {
	Mode       string        `json:"mode"`
	Raw        string        `json:"raw,omitempty"`
	URLEncoded []postmanPair `json:"urlencoded,omitempty"`
	FormData   []postmanPair `json:"formdata,omitempty"`
}

type postmanURL struct {
	Raw      string        `json:"raw"`
	Protocol string        `json:"protocol,omitempty"`
	Host     []string      `json:"host,omitempty"`
	Port     string        `json:"port,omitempty"`
	Path     []string      `json:"path,omitempty"`
	Query    []postmanPair `json:"query,omitempty"`
}

// UnmarshalJSON accepts either a plain string or the structured form.
func (u *postmanURL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u = postmanURL{Raw: s}
		return nil
	}
	type plain postmanURL
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = postmanURL(v)
	return nil
}

type postmanAuth struct {
	Type   string             `json:"type"`
	Basic  []postmanAuthParam `json:"basic,omitempty"`
	Bearer []postmanAuthParam `json:"bearer,omitempty"`
	APIKey []postmanAuthParam `json:"apikey,omitempty"`
}

type postmanAuthParam struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Type  string `json:"type,omitempty"`
}

func authParam(params []postmanAuthParam, key string) string {
	for _, p := range params {
		if p.Key == key {
			return stringify(p.Value)
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

// ImportPostman reads a v2.0 or v2.1 collection. Disabled headers, params,
// form fields and variables are dropped, as are file form parts.
func ImportPostman(data []byte) (*Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errdef.New(errdef.CodeImport, "empty collection data")
	}
	var col postmanCollection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, errdef.Wrap(errdef.CodeImport, err, "parse postman collection")
	}
	if col.Item == nil && col.Info.Name == "" {
		return nil, errdef.New(errdef.CodeImport, "not a postman collection")
	}

	name := strings.TrimSpace(col.Info.Name)
	if name == "" {
		name = defaultCollectionName
	}
	root := model.NewFolder(name)
	addPostmanItems(root, col.Item)

	var globals map[string]string
	for _, v := range col.Variable {
		if v.Disabled || v.Key == "" {
			continue
		}
		if globals == nil {
			globals = map[string]string{}
		}
		globals[v.Key] = stringify(v.Value)
	}
	return &Result{Folder: root, Globals: globals}, nil
}

func addPostmanItems(parent *model.Folder, items []postmanItem) {
	for _, item := range items {
		if item.Request == nil {
			child := model.NewFolder(item.Name)
			addPostmanItems(child, item.Item)
			parent.AddFolder(child)
			continue
		}
		parent.AddRequest(postmanToRequest(item.Name, item.Request))
	}
}

func postmanToRequest(name string, pr *postmanRequest) *model.Request {
	base, params := splitPostmanURL(pr.URL)
	r := newImportedRequest(name, lenientMethod(pr.Method), base)
	r.Params = params
	for _, h := range pr.Header {
		if h.Disabled || h.Key == "" {
			continue
		}
		r.Headers[h.Key] = h.Value
	}
	r.Body = postmanBodyToModel(pr.Body)
	r.Auth = postmanAuthToModel(pr.Auth)
	return r
}

// splitPostmanURL returns the URL without its query string and the enabled
// query parameters. Values keep their {{placeholders}} untouched.
func splitPostmanURL(u postmanURL) (string, map[string]string) {
	raw := u.Raw
	if raw == "" {
		var b strings.Builder
		if u.Protocol != "" {
			b.WriteString(u.Protocol)
			b.WriteString("://")
		}
		b.WriteString(strings.Join(u.Host, "."))
		if u.Port != "" {
			b.WriteString(":")
			b.WriteString(u.Port)
		}
		if len(u.Path) > 0 {
			b.WriteString("/")
			b.WriteString(strings.Join(u.Path, "/"))
		}
		raw = b.String()
	}

	params := map[string]string{}
	base, query, hasQuery := strings.Cut(raw, "?")
	if len(u.Query) > 0 {
		for _, q := range u.Query {
			if q.Disabled || q.Key == "" {
				continue
			}
			params[q.Key] = q.Value
		}
		return base, params
	}
	if !hasQuery {
		return raw, params
	}
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		params[k] = v
	}
	return base, params
}

func postmanBodyToModel(b *postmanBody) model.Body {
	if b == nil {
		return model.NoBody{}
	}
	switch b.Mode {
	case "raw":
		return model.RawBody{Text: b.Raw}
	case "urlencoded":
		return model.URLEncodedBody{Fields: enabledPairs(b.URLEncoded)}
	case "formdata":
		return model.MultipartBody{Fields: enabledPairs(b.FormData)}
	}
	return model.NoBody{}
}

func enabledPairs(pairs []postmanPair) map[string]string {
	out := map[string]string{}
	for _, p := range pairs {
		if p.Disabled || p.Key == "" || p.Type == "file" {
			continue
		}
		out[p.Key] = p.Value
	}
	return out
}

func postmanAuthToModel(a *postmanAuth) model.Auth {
	if a == nil {
		return model.NoAuth{}
	}
	switch a.Type {
	case "basic":
		return model.BasicAuth{
			Username: authParam(a.Basic, "username"),
			Password: authParam(a.Basic, "password"),
		}
	case "bearer":
		return model.BearerAuth{Token: authParam(a.Bearer, "token")}
	case "apikey":
		loc := model.KeyInHeader
		if authParam(a.APIKey, "in") == "query" {
			loc = model.KeyInQuery
		}
		return model.APIKeyAuth{
			Name:     authParam(a.APIKey, "key"),
			Value:    authParam(a.APIKey, "value"),
			Location: loc,
		}
	}
	return model.NoAuth{}
}

// ExportPostman renders root as a v2.1 collection called name. Globals
// become collection variables.
func ExportPostman(name string, root *model.Folder, globals map[string]string) ([]byte, error) {
	if root == nil {
		return nil, errdef.New(errdef.CodeValidation, "nothing to export")
	}
	col := postmanCollection{
		Info: postmanInfo{Name: name, Schema: PostmanSchema},
		Item: folderItems(root),
	}
	for _, k := range sortedKeys(globals) {
		col.Variable = append(col.Variable, postmanVariable{Key: k, Value: globals[k]})
	}
	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeImport, err, "encode postman collection")
	}
	return data, nil
}

func folderItems(f *model.Folder) []postmanItem {
	items := make([]postmanItem, 0, len(f.Requests)+len(f.Folders))
	for _, r := range f.Requests {
		items = append(items, postmanItem{Name: r.Name, Request: requestToPostman(r)})
	}
	for _, child := range f.Folders {
		items = append(items, postmanItem{Name: child.Name, Item: folderItems(child)})
	}
	return items
}

func requestToPostman(r *model.Request) *postmanRequest {
	pr := &postmanRequest{Method: string(r.Method)}
	for _, k := range sortedKeys(r.Headers) {
		pr.Header = append(pr.Header, postmanPair{Key: k, Value: r.Headers[k]})
	}

	raw := r.URL
	if len(r.Params) > 0 {
		parts := make([]string, 0, len(r.Params))
		for _, k := range sortedKeys(r.Params) {
			pr.URL.Query = append(pr.URL.Query, postmanPair{Key: k, Value: r.Params[k]})
			parts = append(parts, k+"="+r.Params[k])
		}
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		raw += sep + strings.Join(parts, "&")
	}
	pr.URL.Raw = raw

	switch b := r.Body.(type) {
	case model.RawBody:
		pr.Body = &postmanBody{Mode: "raw", Raw: b.Text}
	case model.URLEncodedBody:
		pr.Body = &postmanBody{Mode: "urlencoded", URLEncoded: pairs(b.Fields)}
	case model.MultipartBody:
		pr.Body = &postmanBody{Mode: "formdata", FormData: pairs(b.Fields)}
	}

	switch a := r.Auth.(type) {
	case model.BasicAuth:
		pr.Auth = &postmanAuth{Type: "basic", Basic: []postmanAuthParam{
			{Key: "username", Value: a.Username, Type: "string"},
			{Key: "password", Value: a.Password, Type: "string"},
		}}
	case model.BearerAuth:
		pr.Auth = &postmanAuth{Type: "bearer", Bearer: []postmanAuthParam{
			{Key: "token", Value: a.Token, Type: "string"},
		}}
	case model.APIKeyAuth:
		pr.Auth = &postmanAuth{Type: "apikey", APIKey: []postmanAuthParam{
			{Key: "key", Value: a.Name, Type: "string"},
			{Key: "value", Value: a.Value, Type: "string"},
			{Key: "in", Value: string(a.Location), Type: "string"},
		}}
	}
	return pr
}

func pairs(m map[string]string) []postmanPair {
	out := make([]postmanPair, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, postmanPair{Key: k, Value: m[k], Type: "text"})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
