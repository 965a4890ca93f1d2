package vars

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEffectiveValuePrefersActive(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Global().Set("HOST", "prod")
	staging := NewEnvironment("Staging", map[string]string{"HOST": "staging"})
	store.Add(staging)
	if !store.SetActive(staging.ID) {
		t.Fatalf("expected SetActive to succeed")
	}

	if got := store.EffectiveValue("HOST", ""); got != "staging" {
		t.Fatalf("expected staging, got %q", got)
	}

	staging.Set("HOST", "")
	if got := store.EffectiveValue("HOST", ""); got != "prod" {
		t.Fatalf("expected empty active value to fall back to prod, got %q", got)
	}
	if got := store.EffectiveValue("MISSING", "dflt"); got != "dflt" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestSetActiveUnknownKeepsSelection(t *testing.T) {
	t.Parallel()

	store := NewStore()
	env := NewEnvironment("Dev", nil)
	store.Add(env)
	store.SetActive(env.ID)

	if store.SetActive("nope") {
		t.Fatalf("expected unknown id to be rejected")
	}
	if store.ActiveID() != env.ID {
		t.Fatalf("expected previous active selection to stay, got %q", store.ActiveID())
	}
}

func TestRemoveActiveClearsPointer(t *testing.T) {
	t.Parallel()

	store := NewStore()
	env := NewEnvironment("Dev", nil)
	store.Add(env)
	store.SetActive(env.ID)

	if !store.Remove(env.ID) {
		t.Fatalf("expected removal")
	}
	if _, ok := store.Active(); ok {
		t.Fatalf("expected no active environment after removal")
	}
	if store.Remove(env.ID) {
		t.Fatalf("expected second removal to report false")
	}
}

func TestFlattenAppliesPrecedence(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Global().Set("HOST", "prod")
	store.Global().Set("TOKEN", "global-token")
	env := NewEnvironment("Dev", map[string]string{"HOST": "dev", "TOKEN": "", "ONLY": "x"})
	store.Add(env)
	store.SetActive(env.ID)

	flat := store.Flatten()
	if flat["HOST"] != "dev" || flat["TOKEN"] != "global-token" || flat["ONLY"] != "x" {
		t.Fatalf("unexpected flattened map %v", flat)
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Global().Set("A", "1")
	env := NewEnvironment("Dev", map[string]string{"B": "2"})
	store.Add(env)
	store.SetActive(env.ID)

	restored := StoreFromState(store.State())
	if restored.Global().ID != store.Global().ID || restored.Global().Get("A", "") != "1" {
		t.Fatalf("global environment not restored")
	}
	active, ok := restored.Active()
	if !ok || active.ID != env.ID || active.Get("B", "") != "2" {
		t.Fatalf("active environment not restored")
	}

	missing := "gone"
	restored = StoreFromState(State{ActiveID: &missing})
	if restored.ActiveID() != "" {
		t.Fatalf("expected dangling active id to be dropped")
	}
}

func TestLoadFileFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dotenv := filepath.Join(dir, "staging.env")
	if err := os.WriteFile(dotenv, []byte("HOST=staging\n# comment\nTOKEN=\"abc\"\n"), 0o644); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	values, err := LoadFile(dotenv)
	if err != nil {
		t.Fatalf("LoadFile dotenv: %v", err)
	}
	if values["HOST"] != "staging" || values["TOKEN"] != "abc" {
		t.Fatalf("unexpected dotenv values %v", values)
	}

	yml := filepath.Join(dir, "prod.yaml")
	if err := os.WriteFile(yml, []byte("HOST: prod\nPORT: \"443\"\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	values, err = LoadFile(yml)
	if err != nil {
		t.Fatalf("LoadFile yaml: %v", err)
	}
	if values["HOST"] != "prod" || values["PORT"] != "443" {
		t.Fatalf("unexpected yaml values %v", values)
	}
	if EnvironmentName(yml) != "prod" || EnvironmentName(filepath.Join(dir, ".env")) != "Imported" {
		t.Fatalf("unexpected environment names")
	}
}
