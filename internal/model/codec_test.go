package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/luminahq/lumina/internal/errdef"
)

func TestRequestJSONUsesFlatFields(t *testing.T) {
	req := NewRequest("Create")
	req.Method = MethodPost
	req.Body = RawBody{Text: `{"a":1}`}
	req.Auth = APIKeyAuth{Name: "X-Key", Value: "secret", Location: KeyInQuery}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	for key, want := range map[string]any{
		"method":                "POST",
		"body_type":             "raw",
		"body_raw":              `{"a":1}`,
		"auth_type":             "api_key",
		"auth_api_key_name":     "X-Key",
		"auth_api_key_value":    "secret",
		"auth_api_key_location": "query",
		"auth_bearer_token":     "",
	} {
		if fields[key] != want {
			t.Fatalf("field %s: expected %v, got %v", key, want, fields[key])
		}
	}

	var back Request
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	auth, ok := back.Auth.(APIKeyAuth)
	if !ok || auth.Location != KeyInQuery || auth.Value != "secret" {
		t.Fatalf("unexpected auth %#v", back.Auth)
	}
	if raw, ok := back.Body.(RawBody); !ok || raw.Text != `{"a":1}` {
		t.Fatalf("unexpected body %#v", back.Body)
	}
}

func TestRequestJSONIgnoresInactiveFields(t *testing.T) {
	payload := `{"id":"r1","name":"x","method":"GET","body_type":"form_data",
		"body_raw":"ignored","body_form":{"k":"v"},"auth_type":"bearer",
		"auth_bearer_token":"tok","auth_basic_username":"ignored"}`
	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	body, ok := req.Body.(MultipartBody)
	if !ok || body.Fields["k"] != "v" {
		t.Fatalf("unexpected body %#v", req.Body)
	}
	if auth, ok := req.Auth.(BearerAuth); !ok || auth.Token != "tok" {
		t.Fatalf("unexpected auth %#v", req.Auth)
	}
}

func TestRequestJSONRejectsUnknownEnums(t *testing.T) {
	cases := map[string]string{
		"method":   `{"method":"FETCH"}`,
		"body":     `{"body_type":"binary"}`,
		"auth":     `{"auth_type":"oauth2"}`,
		"location": `{"auth_type":"api_key","auth_api_key_location":"cookie"}`,
	}
	for name, payload := range cases {
		var req Request
		err := json.Unmarshal([]byte(payload), &req)
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if errdef.CodeOf(err) != errdef.CodeValidation {
			t.Fatalf("%s: expected validation code, got %q (%v)", name, errdef.CodeOf(err), err)
		}
	}
}

func TestRequestJSONDefaults(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{}`), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.ID == "" || req.Method != MethodGet || req.BodyKind() != BodyNone || req.AuthKind() != AuthNone {
		t.Fatalf("unexpected defaults %#v", req)
	}
}

func TestFolderJSONNested(t *testing.T) {
	root := NewFolder("Root")
	child := NewFolder("Child")
	child.AddRequest(NewRequest("inner"))
	root.AddFolder(child)

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"requests":[]`) {
		t.Fatalf("expected empty request list to encode as [], got %s", data)
	}

	var back Folder
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Folders) != 1 || len(back.Folders[0].Requests) != 1 {
		t.Fatalf("unexpected tree %#v", back)
	}
	if back.Folders[0].Requests[0].Name != "inner" {
		t.Fatalf("unexpected request name %q", back.Folders[0].Requests[0].Name)
	}
}

func TestDescribeAuth(t *testing.T) {
	if got := Describe(BasicAuth{Username: "bob"}); got != "Basic Auth: bob" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Describe(BearerAuth{}); got != "Bearer Token: (none)" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Describe(BearerAuth{Token: strings.Repeat("a", 30)}); got != "Bearer Token: "+strings.Repeat("a", 20)+"..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := Describe(APIKeyAuth{Name: "X-Key", Location: KeyInQuery}); got != "API Key (Query Param): X-Key" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Describe(nil); got != "No authentication" {
		t.Fatalf("unexpected %q", got)
	}
}
