package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/project"
)

func TestSaveAndLoad(t *testing.T) {
	dir := NewDir(t.TempDir())
	p := project.New("p1", "Saved")
	req := model.NewRequest("Ping")
	req.URL = "https://example.com/ping"
	if err := p.AddRequest(p.RootID(), req); err != nil {
		t.Fatalf("AddRequest: %v", err)
	}
	if err := dir.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := dir.Load("p1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name() != "Saved" || loaded.RequestCount() != 1 {
		t.Fatalf("unexpected project %q with %d requests", loaded.Name(), loaded.RequestCount())
	}
	if _, ok := loaded.Request(req.ID); !ok {
		t.Fatalf("expected request %s to survive", req.ID)
	}
}

func TestLoadMissing(t *testing.T) {
	dir := NewDir(t.TempDir())
	_, err := dir.Load("nope")
	if !errdef.Is(err, errdef.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsPathLikeIDs(t *testing.T) {
	dir := NewDir(t.TempDir())
	if err := dir.Save(project.New("../escape", "x")); !errdef.Is(err, errdef.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadAllSeedsEmptyDir(t *testing.T) {
	root := t.TempDir()
	dir := NewDir(root)
	projects, err := dir.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(projects) != 1 || projects[0].Name() != project.SampleName {
		t.Fatalf("expected seeded sample project, got %d", len(projects))
	}
	if _, err := os.Stat(filepath.Join(root, projects[0].ID()+".json")); err != nil {
		t.Fatalf("expected seed to be written: %v", err)
	}

	again, err := dir.LoadAll()
	if err != nil || len(again) != 1 || again[0].ID() != projects[0].ID() {
		t.Fatalf("expected the saved seed on reload, got %d (%v)", len(again), err)
	}
}

func TestLoadAllSkipsBrokenFiles(t *testing.T) {
	root := t.TempDir()
	dir := NewDir(root)
	if err := dir.Save(project.New("good", "Good")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	projects, err := dir.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(projects) != 1 || projects[0].ID() != "good" {
		t.Fatalf("expected only the good project, got %d", len(projects))
	}
}

func TestDelete(t *testing.T) {
	dir := NewDir(t.TempDir())
	if err := dir.Save(project.New("gone", "Gone")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := dir.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := dir.Delete("gone"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
}

func TestAutosaveFlushesOnCancel(t *testing.T) {
	root := t.TempDir()
	dir := NewDir(root)
	p := project.New("auto", "Auto")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- dir.Autosave(ctx, time.Hour, func() map[string]*project.Project {
			return map[string]*project.Project{p.ID(): p}
		})
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Autosave: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("autosave did not stop")
	}
	if _, err := os.Stat(filepath.Join(root, "auto.json")); err != nil {
		t.Fatalf("expected final flush: %v", err)
	}
}
