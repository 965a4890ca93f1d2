package convert

import (
	"encoding/json"
	"testing"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

const sampleInsomnia = `{
  "_type": "export",
  "__export_format": 4,
  "resources": [
    {"_id": "wrk_1", "_type": "workspace", "parentId": null, "name": "Shop"},
    {"_id": "fld_orders", "_type": "request_group", "parentId": "wrk_1", "name": "Orders"},
    {"_id": "fld_drafts", "_type": "request_group", "parentId": "fld_orders", "name": "Drafts"},
    {"_id": "fld_a", "_type": "request_group", "parentId": "fld_b", "name": "Loop A"},
    {"_id": "fld_b", "_type": "request_group", "parentId": "fld_a", "name": "Loop B"},
    {
      "_id": "req_list", "_type": "request", "parentId": "fld_orders", "name": "List orders",
      "method": "get", "url": "{{ base }}/orders",
      "headers": [{"name": "Accept", "value": "application/json"}, {"name": "X-Off", "value": "1", "disabled": true}],
      "parameters": [{"name": "page", "value": "2"}],
      "authentication": {"type": "bearer", "token": "{{ token }}", "prefix": "Bearer"}
    },
    {
      "_id": "req_login", "_type": "request", "parentId": "wrk_1", "name": "Login", "method": "POST", "url": "/login",
      "body": {"mimeType": "application/x-www-form-urlencoded", "params": [{"name": "user", "value": "me"}]},
      "authentication": {"type": "apikey", "key": "X-Key", "value": "k", "addTo": "queryParams"}
    },
    {
      "_id": "req_upload", "_type": "request", "parentId": "fld_drafts", "name": "Upload", "method": "PROPFIND", "url": "/up",
      "body": {"mimeType": "multipart/form-data", "params": [{"name": "note", "value": "hi"}, {"name": "f", "type": "file", "fileName": "/a"}]}
    },
    {"_id": "req_raw", "_type": "request", "parentId": "missing", "name": "Raw", "method": "PUT", "url": "/raw",
      "body": {"mimeType": "application/json", "text": "{\"a\":1}"}},
    {"_id": "env_base", "_type": "environment", "parentId": "wrk_1", "name": "Base Environment", "data": {"base": "https://shop.test", "retries": 3}},
    {"_id": "env_dev", "_type": "environment", "parentId": "env_base", "name": "Dev", "data": {"base": "https://dev.shop.test"}},
    {"_id": "jar_1", "_type": "cookie_jar", "parentId": "wrk_1", "name": "Default Jar", "cookies": []},
    {"_id": "bad", "_type": "request", "headers": "not a list"}
  ]
}`

func TestImportInsomnia(t *testing.T) {
	res, err := ImportInsomnia([]byte(sampleInsomnia))
	if err != nil {
		t.Fatalf("ImportInsomnia: %v", err)
	}
	root := res.Folder
	if root.Name != "Shop" {
		t.Fatalf("unexpected root name %q", root.Name)
	}
	if len(root.Requests) != 2 || root.Requests[0].Name != "Login" || root.Requests[1].Name != "Raw" {
		t.Fatalf("unexpected top-level requests %d", len(root.Requests))
	}
	if len(root.Folders) != 2 || root.Folders[0].Name != "Orders" {
		t.Fatalf("unexpected top-level folders %d", len(root.Folders))
	}
	if root.CountFolders() != 4 {
		t.Fatalf("expected 4 folders including the looped pair, got %d", root.CountFolders())
	}

	orders := root.Folders[0]
	list := orders.Requests[0]
	if list.Method != model.MethodGet || list.URL != "{{ base }}/orders" || list.Params["page"] != "2" {
		t.Fatalf("unexpected list request %#v", list)
	}
	if _, ok := list.Headers["X-Off"]; ok || list.Headers["Accept"] != "application/json" {
		t.Fatalf("unexpected headers %#v", list.Headers)
	}
	if auth, ok := list.Auth.(model.BearerAuth); !ok || auth.Token != "{{ token }}" {
		t.Fatalf("unexpected auth %#v", list.Auth)
	}

	upload := orders.Folders[0].Requests[0]
	if upload.Method != model.MethodGet {
		t.Fatalf("unknown method should fall back to GET, got %s", upload.Method)
	}
	if body, ok := upload.Body.(model.MultipartBody); !ok || len(body.Fields) != 1 || body.Fields["note"] != "hi" {
		t.Fatalf("unexpected multipart body %#v", upload.Body)
	}

	login := root.Requests[0]
	if body, ok := login.Body.(model.URLEncodedBody); !ok || body.Fields["user"] != "me" {
		t.Fatalf("unexpected form body %#v", login.Body)
	}
	if key, ok := login.Auth.(model.APIKeyAuth); !ok || key.Location != model.KeyInQuery || key.Name != "X-Key" {
		t.Fatalf("unexpected api key %#v", login.Auth)
	}
	if body, ok := root.Requests[1].Body.(model.RawBody); !ok || body.Text != `{"a":1}` {
		t.Fatalf("unexpected raw body %#v", root.Requests[1].Body)
	}

	if res.Globals["base"] != "https://shop.test" || res.Globals["retries"] != "3" {
		t.Fatalf("unexpected globals %#v", res.Globals)
	}
	if len(res.Environments) != 1 || res.Environments[0].Name != "Dev" || res.Environments[0].Variables["base"] != "https://dev.shop.test" {
		t.Fatalf("unexpected environments %#v", res.Environments)
	}
}

func TestImportInsomniaRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "nope", `{"info": {}}`} {
		if _, err := ImportInsomnia([]byte(in)); !errdef.Is(err, errdef.CodeImport) {
			t.Fatalf("expected import error for %q, got %v", in, err)
		}
	}
}

func TestExportInsomniaRoundTrip(t *testing.T) {
	root := model.NewFolder("Root")
	ping := model.NewRequest("Ping")
	ping.URL = "{{base}}/ping"
	ping.Params["v"] = "1"
	ping.Auth = model.BasicAuth{Username: "u", Password: "p"}
	root.AddRequest(ping)
	sub := model.NewFolder("Nested")
	deeper := model.NewFolder("Deeper")
	send := model.NewRequest("Send")
	send.Method = model.MethodPost
	send.Body = model.RawBody{Text: "plain text"}
	deeper.AddRequest(send)
	sub.AddFolder(deeper)
	root.AddFolder(sub)

	data, err := ExportInsomnia(Source{
		Name:         "Demo",
		Root:         root,
		Globals:      map[string]string{"base": "https://x.test"},
		Environments: []*vars.Environment{vars.NewEnvironment("Prod", map[string]string{"base": "https://prod.test"})},
	})
	if err != nil {
		t.Fatalf("ExportInsomnia: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("export is not json: %v", err)
	}
	if raw["_type"] != "export" || raw["__export_format"] != float64(4) {
		t.Fatalf("unexpected header %#v", raw)
	}

	back, err := ImportInsomnia(data)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if back.Folder.Name != "Demo" || len(back.Folder.Requests) != 1 {
		t.Fatalf("unexpected root %q with %d requests", back.Folder.Name, len(back.Folder.Requests))
	}
	got := back.Folder.Requests[0]
	if got.URL != "{{base}}/ping" || got.Params["v"] != "1" {
		t.Fatalf("unexpected request %#v", got)
	}
	if auth, ok := got.Auth.(model.BasicAuth); !ok || auth.Password != "p" {
		t.Fatalf("unexpected auth %#v", got.Auth)
	}
	nested := back.Folder.Folders[0].Folders[0]
	if nested.Name != "Deeper" || len(nested.Requests) != 1 {
		t.Fatalf("nesting lost: %#v", back.Folder.Folders[0])
	}
	if body, ok := nested.Requests[0].Body.(model.RawBody); !ok || body.Text != "plain text" {
		t.Fatalf("unexpected body %#v", nested.Requests[0].Body)
	}
	if back.Globals["base"] != "https://x.test" {
		t.Fatalf("globals lost: %#v", back.Globals)
	}
	if len(back.Environments) != 1 || back.Environments[0].Variables["base"] != "https://prod.test" {
		t.Fatalf("environments lost: %#v", back.Environments)
	}
}
