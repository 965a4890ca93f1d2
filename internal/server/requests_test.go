package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luminahq/lumina/internal/httpclient"
)

type requestView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	BodyType string            `json:"body_type"`
	BodyRaw  string            `json:"body_raw"`
	AuthType string            `json:"auth_type"`
}

func TestRequestCRUD(t *testing.T) {
	api := newAPI(t, Options{})

	var created requestView
	api.json(http.MethodPost, "/api/requests", map[string]string{
		"name":   "List users",
		"url":    "https://api.test/users",
		"method": "post",
	}, http.StatusCreated, &created)
	if created.Method != "POST" || created.ID == "" {
		t.Fatalf("unexpected created request %#v", created)
	}
	api.json(http.MethodPost, "/api/requests", map[string]string{"method": "BREW"}, http.StatusBadRequest, nil)
	api.json(http.MethodPost, "/api/requests", map[string]string{"folder_id": "nope"}, http.StatusNotFound, nil)

	var updated requestView
	api.json(http.MethodPut, "/api/requests/"+created.ID, map[string]any{
		"id":                "ignored",
		"method":            "PUT",
		"headers":           map[string]string{"Content-Type": "application/json"},
		"body_type":         "raw",
		"body_raw":          `{"x":1}`,
		"auth_type":         "bearer",
		"auth_bearer_token": "{{token}}",
	}, http.StatusOK, &updated)
	if updated.ID != created.ID || updated.Method != "PUT" || updated.Name != "List users" {
		t.Fatalf("unexpected update %#v", updated)
	}
	if updated.BodyType != "raw" || updated.BodyRaw != `{"x":1}` || updated.AuthType != "bearer" {
		t.Fatalf("unexpected body/auth after update %#v", updated)
	}

	api.json(http.MethodPut, "/api/requests/"+created.ID, map[string]any{"body_type": "xml"}, http.StatusBadRequest, nil)
	var unchanged requestView
	api.json(http.MethodGet, "/api/requests/"+created.ID, nil, http.StatusOK, &unchanged)
	if unchanged.BodyType != "raw" {
		t.Fatalf("rejected update must not apply, got %#v", unchanged)
	}

	var preview map[string]string
	api.json(http.MethodGet, "/api/requests/"+created.ID+"/auth", nil, http.StatusOK, &preview)
	if preview["preview"] != "Bearer Token: {{token}}" {
		t.Fatalf("unexpected auth preview %#v", preview)
	}

	var clone requestView
	api.json(http.MethodPost, "/api/requests/"+created.ID+"/clone", nil, http.StatusCreated, &clone)
	if clone.ID == created.ID || clone.Name != "List users (Copy)" {
		t.Fatalf("unexpected clone %#v", clone)
	}

	var all []requestView
	api.json(http.MethodGet, "/api/requests", nil, http.StatusOK, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(all))
	}

	if status, _ := api.do(http.MethodDelete, "/api/requests/"+clone.ID, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	api.json(http.MethodGet, "/api/requests/"+clone.ID, nil, http.StatusNotFound, nil)
}

func TestFoldersAndMoves(t *testing.T) {
	api := newAPI(t, Options{})

	var a, b folderView
	api.json(http.MethodPost, "/api/folders", map[string]string{"name": "A"}, http.StatusCreated, &a)
	api.json(http.MethodPost, "/api/folders", map[string]string{"name": "B", "parent_id": a.ID}, http.StatusCreated, &b)

	api.json(http.MethodPost, "/api/folders/"+a.ID+"/move", map[string]string{"parent_id": b.ID}, http.StatusConflict, nil)

	var req requestView
	api.json(http.MethodPost, "/api/requests", map[string]string{"name": "r"}, http.StatusCreated, &req)
	api.json(http.MethodPost, "/api/requests/"+req.ID+"/move", map[string]string{"folder_id": b.ID}, http.StatusOK, nil)

	var gotB folderView
	api.json(http.MethodGet, "/api/folders/"+b.ID, nil, http.StatusOK, &gotB)
	if len(gotB.Requests) != 1 || gotB.Requests[0].ID != req.ID {
		t.Fatalf("expected request in B, got %#v", gotB)
	}

	var renamed folderView
	api.json(http.MethodPut, "/api/folders/"+b.ID, map[string]string{"name": "Bee"}, http.StatusOK, &renamed)
	if renamed.Name != "Bee" {
		t.Fatalf("unexpected rename %#v", renamed)
	}
	api.json(http.MethodPut, "/api/folders/"+b.ID, map[string]string{"name": ""}, http.StatusBadRequest, nil)

	var view projectView
	api.json(http.MethodGet, "/api/project", nil, http.StatusOK, &view)
	api.json(http.MethodDelete, "/api/folders/"+view.Root.ID, nil, http.StatusBadRequest, nil)

	if status, _ := api.do(http.MethodDelete, "/api/folders/"+a.ID, nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	api.json(http.MethodGet, "/api/requests/"+req.ID, nil, http.StatusNotFound, nil)
}

type folderView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Requests []requestView `json:"requests"`
	Folders  []folderView  `json:"folders"`
}

func TestExecuteRecordsHistory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path":%q,"auth":%q,"body":%q}`, r.URL.Path, r.Header.Get("Authorization"), body)
	}))
	defer upstream.Close()

	api := newAPI(t, Options{})

	var env map[string]any
	api.json(http.MethodPost, "/api/environments", map[string]any{
		"name":      "Local",
		"variables": map[string]string{"base": upstream.URL},
	}, http.StatusCreated, &env)
	api.json(http.MethodPost, "/api/environments/active", map[string]string{"environment_id": env["id"].(string)}, http.StatusOK, nil)
	api.json(http.MethodPut, "/api/environments/global/variables/token", map[string]string{"value": "s3cret"}, http.StatusOK, nil)

	var req requestView
	api.json(http.MethodPost, "/api/requests", map[string]string{"name": "echo", "url": "{{base}}/echo", "method": "POST"}, http.StatusCreated, &req)
	api.json(http.MethodPut, "/api/requests/"+req.ID, map[string]any{
		"body_type":         "raw",
		"body_raw":          "hello {{token}}",
		"auth_type":         "bearer",
		"auth_bearer_token": "{{token}}",
	}, http.StatusOK, nil)

	var resp httpclient.Response
	api.json(http.MethodPost, "/api/requests/"+req.ID+"/execute", nil, http.StatusOK, &resp)
	if resp.StatusCode != http.StatusOK || resp.Error != "" {
		t.Fatalf("unexpected response %#v", resp)
	}
	want := `{"path":"/echo","auth":"Bearer s3cret","body":"hello s3cret"}`
	if resp.Body != want {
		t.Fatalf("unexpected upstream body %s", resp.Body)
	}

	var stored requestView
	api.json(http.MethodGet, "/api/requests/"+req.ID, nil, http.StatusOK, &stored)
	if stored.URL != "{{base}}/echo" {
		t.Fatalf("stored template must keep placeholders, got %q", stored.URL)
	}

	api.json(http.MethodPost, "/api/requests/"+req.ID+"/execute", nil, http.StatusOK, nil)
	var hist historyView
	api.json(http.MethodGet, "/api/requests/"+req.ID+"/history?limit=1", nil, http.StatusOK, &hist)
	if len(hist.Entries) != 1 || hist.Entries[0].Request.URL != "{{base}}/echo" {
		t.Fatalf("unexpected history %#v", hist)
	}
	api.json(http.MethodGet, "/api/requests/"+req.ID+"/history?limit=x", nil, http.StatusBadRequest, nil)

	if status, _ := api.do(http.MethodDelete, "/api/requests/"+req.ID+"/history", nil); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	api.json(http.MethodGet, "/api/requests/"+req.ID+"/history", nil, http.StatusOK, &hist)
	if len(hist.Entries) != 0 {
		t.Fatalf("expected history to be cleared, got %d", len(hist.Entries))
	}

	api.json(http.MethodPost, "/api/requests/missing/execute", nil, http.StatusNotFound, nil)
}

func TestExecuteFailureIsAResponse(t *testing.T) {
	api := newAPI(t, Options{})
	var req requestView
	api.json(http.MethodPost, "/api/requests", map[string]string{"name": "bad", "url": "not a url"}, http.StatusCreated, &req)
	var resp httpclient.Response
	api.json(http.MethodPost, "/api/requests/"+req.ID+"/execute", nil, http.StatusOK, &resp)
	if resp.Error == "" || resp.StatusCode != 0 {
		t.Fatalf("expected an error response, got %#v", resp)
	}
}
