package convert

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
)

// BaseURLVar is the global variable that holds the server URL of an
// imported OpenAPI document.
const BaseURLVar = "baseUrl"

const defaultAPIName = "Imported API"

var openAPIMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

var pathTemplate = regexp.MustCompile(`\{([^{}]+)\}`)

type apiDoc struct {
	Title   string
	BaseURL string
	Paths   map[string]map[string]apiOperation
}

type apiOperation struct {
	Summary     string
	OperationID string
	Tag         string
	Params      []apiParam
	Body        *apiBody
}

type apiParam struct {
	Name    string
	In      string
	Example string
}

type apiBody struct {
	ContentType string
	Example     string
	Schema      *apiSchema
}

type apiSchema struct {
	Type       string
	Example    any
	Properties map[string]*apiSchema
	Items      *apiSchema
}

// ImportOpenAPI reads a Swagger 2.0 or OpenAPI 3.x document in JSON or YAML.
// Operations are grouped into one folder per first tag; untagged ones sit
// at the top. Path templates become {{placeholders}}.
func ImportOpenAPI(data []byte) (*Result, error) {
	doc, err := parseAPIDoc(data)
	if err != nil {
		return nil, err
	}

	name := doc.Title
	if name == "" {
		name = defaultAPIName
	}
	root := model.NewFolder(name)
	tagFolders := map[string]*model.Folder{}

	prefix := ""
	var globals map[string]string
	if doc.BaseURL != "" {
		prefix = "{{" + BaseURLVar + "}}"
		globals = map[string]string{BaseURLVar: doc.BaseURL}
	}

	for _, path := range sortedKeys(doc.Paths) {
		ops := doc.Paths[path]
		for _, method := range openAPIMethods {
			op, ok := ops[method]
			if !ok {
				continue
			}
			r := operationToRequest(method, prefix, path, op)
			if op.Tag == "" {
				root.AddRequest(r)
				continue
			}
			folder, ok := tagFolders[op.Tag]
			if !ok {
				folder = model.NewFolder(op.Tag)
				tagFolders[op.Tag] = folder
				root.AddFolder(folder)
			}
			folder.AddRequest(r)
		}
	}
	return &Result{Folder: root, Globals: globals}, nil
}

func operationToRequest(method, prefix, path string, op apiOperation) *model.Request {
	name := op.Summary
	if name == "" {
		name = op.OperationID
	}
	if name == "" {
		name = method + " " + path
	}
	url := prefix + pathTemplate.ReplaceAllString(path, "{{$1}}")
	r := newImportedRequest(name, lenientMethod(method), url)

	for _, p := range op.Params {
		switch p.In {
		case "query":
			r.Params[p.Name] = p.Example
		case "header":
			r.Headers[p.Name] = p.Example
		}
	}

	if op.Body != nil {
		switch {
		case strings.Contains(op.Body.ContentType, "x-www-form-urlencoded"):
			r.Body = model.URLEncodedBody{Fields: schemaFields(op.Body.Schema)}
		case strings.Contains(op.Body.ContentType, "multipart/form-data"):
			r.Body = model.MultipartBody{Fields: schemaFields(op.Body.Schema)}
		default:
			text := op.Body.Example
			if text == "" && op.Body.Schema != nil {
				text = exampleJSON(op.Body.Schema)
			}
			r.Body = model.RawBody{Text: text}
			if op.Body.ContentType != "" {
				r.Headers["Content-Type"] = op.Body.ContentType
			}
		}
	}
	return r
}

func parseAPIDoc(data []byte) (*apiDoc, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		if yerr := yaml.Unmarshal(data, &raw); yerr != nil {
			return nil, errdef.Wrap(errdef.CodeImport, yerr, "document is neither JSON nor YAML")
		}
	}
	raw, _ = normalize(raw).(map[string]any)
	if raw == nil {
		return nil, errdef.New(errdef.CodeImport, "empty OpenAPI document")
	}

	doc := &apiDoc{Paths: map[string]map[string]apiOperation{}}
	if info, ok := raw["info"].(map[string]any); ok {
		doc.Title, _ = info["title"].(string)
	}

	swagger := false
	switch {
	case strings.HasPrefix(versionString(raw["swagger"]), "2"):
		swagger = true
		scheme := "https"
		if schemes, ok := raw["schemes"].([]any); ok && len(schemes) > 0 {
			if s, ok := schemes[0].(string); ok {
				scheme = s
			}
		}
		host, _ := raw["host"].(string)
		basePath, _ := raw["basePath"].(string)
		if host != "" {
			doc.BaseURL = strings.TrimRight(scheme+"://"+host+basePath, "/")
		}
	case strings.HasPrefix(versionString(raw["openapi"]), "3"):
		if servers, ok := raw["servers"].([]any); ok && len(servers) > 0 {
			if server, ok := servers[0].(map[string]any); ok {
				u, _ := server["url"].(string)
				doc.BaseURL = strings.TrimRight(u, "/")
			}
		}
	default:
		return nil, errdef.New(errdef.CodeImport, "missing 'swagger' or 'openapi' version field")
	}

	paths, _ := raw["paths"].(map[string]any)
	for path, item := range paths {
		itemMap, ok := item.(map[string]any)
		if !ok {
			continue
		}
		shared := parseParams(itemMap["parameters"])
		ops := map[string]apiOperation{}
		for key, value := range itemMap {
			method := strings.ToUpper(key)
			opMap, ok := value.(map[string]any)
			if !ok || !isAPIMethod(method) {
				continue
			}
			ops[method] = parseOperation(opMap, shared, swagger)
		}
		doc.Paths[path] = ops
	}
	return doc, nil
}

func parseOperation(m map[string]any, shared []parsedParam, swagger bool) apiOperation {
	op := apiOperation{}
	op.Summary, _ = m["summary"].(string)
	op.OperationID, _ = m["operationId"].(string)
	if tags, ok := m["tags"].([]any); ok && len(tags) > 0 {
		op.Tag, _ = tags[0].(string)
	}

	var form *apiSchema
	params := mergeParams(shared, parseParams(m["parameters"]))
	for _, p := range params {
		switch {
		case swagger && p.param.In == "body":
			op.Body = &apiBody{ContentType: "application/json", Schema: p.schema, Example: p.param.Example}
		case swagger && p.param.In == "formData":
			if form == nil {
				form = &apiSchema{Type: "object", Properties: map[string]*apiSchema{}}
			}
			form.Properties[p.param.Name] = &apiSchema{Example: p.param.Example}
		default:
			op.Params = append(op.Params, p.param)
		}
	}
	if form != nil && op.Body == nil {
		op.Body = &apiBody{ContentType: "application/x-www-form-urlencoded", Schema: form}
	}

	if rb, ok := m["requestBody"].(map[string]any); ok {
		op.Body = parseRequestBody(rb)
	}
	return op
}

type parsedParam struct {
	param  apiParam
	schema *apiSchema
}

func parseParams(v any) []parsedParam {
	list, _ := v.([]any)
	out := make([]parsedParam, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := parsedParam{}
		p.param.Name, _ = m["name"].(string)
		p.param.In, _ = m["in"].(string)
		if ex, ok := m["example"]; ok {
			p.param.Example = scalarString(ex)
		}
		if s, ok := m["schema"].(map[string]any); ok {
			p.schema = parseSchema(s)
			if p.param.Example == "" && p.schema.Example != nil {
				p.param.Example = scalarString(p.schema.Example)
			}
		}
		if p.param.Name == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// mergeParams lets operation parameters override path-level ones with the
// same name and location, keeping first-seen order.
func mergeParams(shared, own []parsedParam) []parsedParam {
	out := make([]parsedParam, 0, len(shared)+len(own))
	index := map[string]int{}
	for _, p := range append(append([]parsedParam{}, shared...), own...) {
		key := p.param.In + ":" + p.param.Name
		if i, ok := index[key]; ok {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func parseRequestBody(m map[string]any) *apiBody {
	content, _ := m["content"].(map[string]any)
	if len(content) == 0 {
		return nil
	}
	ct := "application/json"
	if _, ok := content[ct]; !ok {
		ct = sortedKeys(content)[0]
	}
	body := &apiBody{ContentType: ct}
	media, _ := content[ct].(map[string]any)
	if s, ok := media["schema"].(map[string]any); ok {
		body.Schema = parseSchema(s)
	}
	if ex, ok := media["example"]; ok {
		if b, err := json.MarshalIndent(ex, "", "  "); err == nil {
			body.Example = string(b)
		}
	}
	return body
}

// parseSchema keeps just enough of a schema to build examples. $ref is not
// followed.
func parseSchema(m map[string]any) *apiSchema {
	s := &apiSchema{Example: m["example"]}
	s.Type, _ = m["type"].(string)
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = map[string]*apiSchema{}
		for k, v := range props {
			if pm, ok := v.(map[string]any); ok {
				s.Properties[k] = parseSchema(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = parseSchema(items)
	}
	return s
}

func exampleValue(s *apiSchema) any {
	if s == nil {
		return nil
	}
	if s.Example != nil {
		return s.Example
	}
	switch s.Type {
	case "string":
		return "string"
	case "integer":
		return 0
	case "number":
		return 0.0
	case "boolean":
		return false
	case "array":
		if s.Items != nil {
			return []any{exampleValue(s.Items)}
		}
		return []any{}
	}
	if len(s.Properties) > 0 || s.Type == "object" {
		obj := map[string]any{}
		for k, p := range s.Properties {
			obj[k] = exampleValue(p)
		}
		return obj
	}
	return nil
}

func exampleJSON(s *apiSchema) string {
	v := exampleValue(s)
	if v == nil {
		return ""
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func schemaFields(s *apiSchema) map[string]string {
	out := map[string]string{}
	if s == nil {
		return out
	}
	for k, p := range s.Properties {
		if p != nil && p.Example != nil {
			out[k] = scalarString(p.Example)
			continue
		}
		out[k] = ""
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func versionString(v any) string {
	if v == nil {
		return ""
	}
	return scalarString(v)
}

func isAPIMethod(m string) bool {
	for _, v := range openAPIMethods {
		if v == m {
			return true
		}
	}
	return false
}

// normalize rewrites YAML's map[any]any nodes into map[string]any so both
// decoders produce the same shapes.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}
