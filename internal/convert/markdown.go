package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
)

// The markdown layout, one "## " section per request:
//
//	# Collection Name
//
//	## List users
//	- Method: GET
//	- URL: https://api.example.com/users
//	- Headers:
//	  - Accept: application/json
//	- Params:
//	  - page: 1
//	- Body:
//	```json
//	{"key": "value"}
//	```
//
// "- Form:" lists url-encoded fields and "- Auth:" lists type, username,
// password, token, key, value and in. A "---" line ends a section.

type mdSection int

const (
	mdNone mdSection = iota
	mdHeaders
	mdParams
	mdBody
	mdForm
	mdAuth
)

type mdRequest struct {
	req     *model.Request
	body    []string
	hasBody bool
	form    map[string]string
	auth    map[string]string
}

func (m *mdRequest) finish() *model.Request {
	switch {
	case m.form != nil:
		m.req.Body = model.URLEncodedBody{Fields: m.form}
	case m.hasBody:
		m.req.Body = model.RawBody{Text: strings.TrimSpace(strings.Join(m.body, "\n"))}
	}
	if m.auth != nil {
		m.req.Auth = markdownAuth(m.auth)
	}
	return m.req
}

// ImportMarkdown reads the layout above. Unknown lines are ignored and
// unknown methods fall back to GET.
func ImportMarkdown(data []byte) (*Result, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, errdef.New(errdef.CodeImport, "empty markdown document")
	}

	name := defaultCollectionName
	var (
		requests []*model.Request
		cur      *mdRequest
		section  mdSection
		inFence  bool
	)
	flush := func() {
		if cur != nil {
			requests = append(requests, cur.finish())
		}
		cur, section, inFence = nil, mdNone, false
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if cur != nil && section == mdBody && inFence {
			if strings.HasPrefix(trimmed, "```") {
				inFence = false
				continue
			}
			cur.body = append(cur.body, strings.TrimRight(line, " \t"))
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "# "):
			name = strings.TrimSpace(trimmed[2:])
			continue
		case strings.HasPrefix(trimmed, "## "):
			flush()
			cur = &mdRequest{req: model.NewRequest(strings.TrimSpace(trimmed[3:]))}
			continue
		case strings.HasPrefix(trimmed, "---"):
			flush()
			continue
		}
		if cur == nil {
			continue
		}

		indented := line != strings.TrimLeft(line, " \t")
		if key, value, ok := mdField(trimmed); ok && !indented {
			switch key {
			case "method":
				cur.req.Method = lenientMethod(value)
				continue
			case "url":
				cur.req.URL = value
				continue
			case "headers":
				section = mdHeaders
				continue
			case "params":
				section = mdParams
				continue
			case "body":
				section = mdBody
				cur.hasBody = true
				continue
			case "form":
				section = mdForm
				cur.form = map[string]string{}
				continue
			case "auth":
				section = mdAuth
				cur.auth = map[string]string{}
				continue
			}
		}

		if section == mdBody {
			if strings.HasPrefix(trimmed, "```") {
				inFence = true
				continue
			}
			if trimmed != "" {
				cur.body = append(cur.body, strings.TrimRight(line, " \t"))
			}
			continue
		}

		item, ok := strings.CutPrefix(trimmed, "- ")
		if !ok {
			continue
		}
		k, v, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch section {
		case mdHeaders:
			cur.req.Headers[k] = v
		case mdParams:
			cur.req.Params[k] = v
		case mdForm:
			cur.form[k] = v
		case mdAuth:
			cur.auth[strings.ToLower(k)] = v
		}
	}
	flush()

	if len(requests) == 0 {
		return nil, errdef.New(errdef.CodeImport, "no requests found in markdown document")
	}
	root := model.NewFolder(name)
	for _, r := range requests {
		root.AddRequest(r)
	}
	return &Result{Folder: root}, nil
}

// mdField matches the unindented "- Key: value" lines that open a field or
// a section. Indented items belong to the current section.
func mdField(trimmed string) (string, string, bool) {
	item, ok := strings.CutPrefix(trimmed, "- ")
	if !ok {
		return "", "", false
	}
	k, v, ok := strings.Cut(item, ":")
	if !ok {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(k))
	switch key {
	case "method", "url", "headers", "params", "body", "form", "auth":
		return key, strings.TrimSpace(v), true
	}
	return "", "", false
}

func markdownAuth(fields map[string]string) model.Auth {
	switch strings.ToLower(fields["type"]) {
	case "basic":
		return model.BasicAuth{Username: fields["username"], Password: fields["password"]}
	case "bearer":
		return model.BearerAuth{Token: fields["token"]}
	case "api_key", "apikey":
		loc, err := model.ParseKeyLocation(fields["in"])
		if err != nil {
			loc = model.KeyInHeader
		}
		return model.APIKeyAuth{Name: fields["key"], Value: fields["value"], Location: loc}
	}
	return model.NoAuth{}
}

// ExportMarkdown writes every request of root in tree order. Folders are
// flattened; the document has no way to express them.
func ExportMarkdown(name string, root *model.Folder) ([]byte, error) {
	if root == nil {
		return nil, errdef.New(errdef.CodeValidation, "nothing to export")
	}
	requests := root.AllRequests()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "*%d requests*\n", len(requests))

	for i, r := range requests {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "\n## %s\n\n", r.Name)
		fmt.Fprintf(&b, "- Method: %s\n", r.Method)
		fmt.Fprintf(&b, "- URL: %s\n", r.URL)
		writeMDList(&b, "Headers", r.Headers)
		writeMDList(&b, "Params", r.Params)

		switch body := r.Body.(type) {
		case model.RawBody:
			if body.Text != "" {
				fence := "```"
				if json.Valid([]byte(body.Text)) {
					fence = "```json"
				}
				fmt.Fprintf(&b, "- Body:\n%s\n%s\n```\n", fence, body.Text)
			}
		case model.URLEncodedBody:
			writeMDList(&b, "Form", body.Fields)
		case model.MultipartBody:
			writeMDList(&b, "Form", body.Fields)
		}

		switch a := r.Auth.(type) {
		case model.BasicAuth:
			writeMDAuth(&b, "basic", "username", a.Username, "password", a.Password)
		case model.BearerAuth:
			writeMDAuth(&b, "bearer", "token", a.Token)
		case model.APIKeyAuth:
			writeMDAuth(&b, "api_key", "key", a.Name, "value", a.Value, "in", string(a.Location))
		}
	}
	return []byte(b.String()), nil
}

func writeMDList(b *strings.Builder, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s:\n", title)
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(b, "  - %s: %s\n", k, m[k])
	}
}

func writeMDAuth(b *strings.Builder, kind string, kv ...string) {
	fmt.Fprintf(b, "- Auth:\n  - type: %s\n", kind)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(b, "  - %s: %s\n", kv[i], kv[i+1])
	}
}
