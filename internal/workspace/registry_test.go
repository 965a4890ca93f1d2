package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/history"
	"github.com/luminahq/lumina/internal/httpclient"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/project"
	"github.com/luminahq/lumina/internal/vars"
)

func TestLazySeedPerSession(t *testing.T) {
	reg := NewRegistry(Options{})

	a, ok := reg.Active("alice")
	if !ok || a.Name() != project.SampleName {
		t.Fatalf("expected seeded sample project, got %v", a)
	}
	b, _ := reg.Active("bob")
	if a == b || a.ID() == b.ID() {
		t.Fatalf("sessions must not share projects")
	}
	again, _ := reg.Active("alice")
	if again != a {
		t.Fatalf("expected the same project on repeated access")
	}
	list := reg.Projects("alice")
	if len(list) != 1 || !list[0].Active || list[0].RequestCount != 3 {
		t.Fatalf("unexpected listing %#v", list)
	}
}

func TestCreateRenameDeleteReassignsActive(t *testing.T) {
	reg := NewRegistry(Options{})
	first, _ := reg.Active("s")

	second, err := reg.Create("s", "Second")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if active, _ := reg.Active("s"); active != second {
		t.Fatalf("expected created project to be active")
	}
	if _, err := reg.Create("s", "  "); errdef.CodeOf(err) != errdef.CodeValidation {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}

	renamed, err := reg.Rename("s", second.ID(), "Renamed")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed != second || second.Name() != "Renamed" {
		t.Fatalf("unexpected rename result %v %q", renamed, second.Name())
	}
	if _, err := reg.Rename("s", "missing", "x"); errdef.CodeOf(err) != errdef.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	if !reg.Delete("s", second.ID()) {
		t.Fatalf("expected delete to succeed")
	}
	if active, ok := reg.Active("s"); !ok || active != first {
		t.Fatalf("expected remaining project to become active")
	}
	if !reg.Delete("s", first.ID()) {
		t.Fatalf("expected delete to succeed")
	}
	if _, ok := reg.Active("s"); ok {
		t.Fatalf("expected no active project once the workspace is empty")
	}
	if reg.Delete("s", first.ID()) {
		t.Fatalf("expected second delete to fail")
	}
}

func TestActivateUnknownKeepsSelection(t *testing.T) {
	reg := NewRegistry(Options{})
	p, _ := reg.Active("s")
	if got, ok := reg.Activate("s", "nope"); ok || got != nil {
		t.Fatalf("expected unknown project to be rejected")
	}
	if active, _ := reg.Active("s"); active != p {
		t.Fatalf("expected selection to be kept")
	}
	second, _ := reg.Create("s", "Second")
	_, _ = reg.Activate("s", p.ID())
	if got, ok := reg.Activate("s", second.ID()); !ok || got != second {
		t.Fatalf("expected activate to return the project, got %v %v", got, ok)
	}
}

func TestShareDefaultWorkspace(t *testing.T) {
	reg := NewRegistry(Options{ShareDefault: true})
	loaded := project.New("disk-1", "From Disk")
	reg.Preload(loaded)

	p, ok := reg.Active("new-session")
	if !ok || p != loaded {
		t.Fatalf("expected new session to see the preloaded project")
	}
	if len(reg.DefaultProjects()) != 1 {
		t.Fatalf("expected one project overall, got %d", len(reg.DefaultProjects()))
	}
}

func TestShareDefaultCreatesDefaultWorkspaceOnDemand(t *testing.T) {
	reg := NewRegistry(Options{ShareDefault: true})

	a, ok := reg.Active("a1b2c3")
	if !ok || a.Name() != project.SampleName {
		t.Fatalf("expected a seeded default workspace, got %v", a)
	}
	b, _ := reg.Active("d4e5f6")
	if a != b {
		t.Fatalf("sessions must share the default workspace")
	}
	created, _ := reg.Create("d4e5f6", "Shared")
	if got, ok := reg.Project("a1b2c3", created.ID()); !ok || got != created {
		t.Fatalf("project created in one session must be visible in another")
	}
	if n := len(reg.DefaultProjects()); n != 2 {
		t.Fatalf("expected 2 default projects, got %d", n)
	}
}

func TestDefaultProjectsSkipsPrivateWorkspaces(t *testing.T) {
	reg := NewRegistry(Options{})
	reg.Preload(project.New("disk-1", "From Disk"))
	_, _ = reg.Active("visitor")

	got := reg.DefaultProjects()
	if len(got) != 1 || got["disk-1"] == nil {
		t.Fatalf("expected only the preloaded project, got %v", got)
	}
}

func TestExecuteRecordsHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("user " + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	reg := NewRegistry(Options{HistoryLimit: 2, Seed: func() *project.Project {
		p := project.New("", "test")
		env := vars.NewEnvironment("Local", map[string]string{"BASE": srv.URL})
		p.AddEnvironment(env)
		p.SetActiveEnvironment(env.ID)
		return p
	}})

	p, _ := reg.Active("s")
	req := model.NewRequest("user")
	req.URL = "{{BASE}}/users/1"
	_ = p.AddRequest("", req)

	for i := 0; i < 3; i++ {
		resp, err := reg.Execute(context.Background(), "s", req.ID)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if resp.StatusCode != 200 || resp.Body != "user /users/1" {
			t.Fatalf("unexpected response %#v", resp)
		}
	}

	entries := reg.History("s", p.ID()).ByRequest(req.ID, 0)
	if len(entries) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(entries))
	}
	if entries[0].Request.URL != "{{BASE}}/users/1" || entries[0].Response.StatusCode != 200 {
		t.Fatalf("unexpected history entry %#v", entries[0])
	}
	if len(reg.History("other", p.ID()).All()) != 0 {
		t.Fatalf("history must be per session")
	}

	if _, err := reg.Execute(context.Background(), "s", "missing"); errdef.CodeOf(err) != errdef.CodeNotFound {
		t.Fatalf("expected not found for unknown request, got %v", err)
	}
}

func TestHistoryDirSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	loaded := project.New("disk-1", "From Disk")
	req := model.NewRequest("ping")
	_ = loaded.AddRequest("", req)

	reg := NewRegistry(Options{ShareDefault: true, HistoryDir: dir})
	reg.Preload(loaded)
	entry := history.NewEntry(req, &httpclient.Response{StatusCode: 204})
	if err := reg.History("visitor", loaded.ID()).Append(entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "disk-1.json")); err != nil {
		t.Fatalf("expected history file: %v", err)
	}

	restarted := NewRegistry(Options{ShareDefault: true, HistoryDir: dir})
	restarted.Preload(project.New("disk-1", "From Disk"))
	got := restarted.History("someone-else", "disk-1").ByRequest(req.ID, 0)
	if len(got) != 1 || got[0].Response.StatusCode != 204 {
		t.Fatalf("expected persisted history, got %#v", got)
	}

	if !restarted.Delete("someone-else", "disk-1") {
		t.Fatalf("expected delete to succeed")
	}
	if _, err := os.Stat(filepath.Join(dir, "disk-1.json")); !os.IsNotExist(err) {
		t.Fatalf("expected history file to be removed, got %v", err)
	}
}

func TestPrivateHistoryStaysInMemory(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(Options{HistoryDir: dir})
	p, _ := reg.Active("visitor")
	if err := reg.History("visitor", p.ID()).Append(history.Entry{ID: "1", RequestID: "r"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no history files, got %v (%v)", entries, err)
	}
}

func TestConcurrentSessions(t *testing.T) {
	reg := NewRegistry(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := fmt.Sprintf("s%d", i%8)
			p, err := reg.Create(session, fmt.Sprintf("p%d", i))
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			_ = p.AddRequest("", model.NewRequest("r"))
			_ = reg.Projects(session)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 8; i++ {
		total += len(reg.Projects(fmt.Sprintf("s%d", i)))
	}
	if total != 32+8 {
		t.Fatalf("expected 40 projects including seeds, got %d", total)
	}
}
