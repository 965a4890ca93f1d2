package share

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sh, err := store.Create(ctx, "Demo", []byte(`{"project_name":"Demo"}`), CreateOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !regexp.MustCompile(`^[a-z0-9]{8}$`).MatchString(sh.ID) {
		t.Fatalf("unexpected share id %q", sh.ID)
	}
	if sh.ExpiresAt != nil {
		t.Fatalf("expected no expiry")
	}

	got, ok, err := store.Get(ctx, sh.ID)
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if got.ProjectName != "Demo" || !got.ReadOnly || string(got.Data) != `{"project_name":"Demo"}` {
		t.Fatalf("unexpected share %#v", got)
	}
	if !got.CreatedAt.Equal(sh.CreatedAt) {
		t.Fatalf("created_at mismatch %v vs %v", got.CreatedAt, sh.CreatedAt)
	}

	if _, ok, _ := store.Get(ctx, "zzzzzzzz"); ok {
		t.Fatalf("expected unknown id to be absent")
	}
}

func TestCreateRejectsInvalidJSON(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Create(context.Background(), "x", []byte("{"), CreateOptions{}); err == nil {
		t.Fatalf("expected error for invalid snapshot")
	}
}

func TestExpiredShareIsDeletedOnRead(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sh, err := store.Create(ctx, "Soon", []byte(`{}`), CreateOptions{ExpiresIn: time.Hour})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok, _ := store.Get(ctx, sh.ID); !ok {
		t.Fatalf("expected share before expiry")
	}

	now = now.Add(2 * time.Hour)
	list, err := store.List(ctx)
	if err != nil || len(list) != 1 || !list[0].Expired {
		t.Fatalf("expected one expired listing, got %#v (%v)", list, err)
	}
	if _, ok, _ := store.Get(ctx, sh.ID); ok {
		t.Fatalf("expected expired share to be absent")
	}
	if list, _ := store.List(ctx); len(list) != 0 {
		t.Fatalf("expected expired share to be deleted, got %d", len(list))
	}
}

func TestCleanupAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	keep, _ := store.Create(ctx, "keep", []byte(`{}`), CreateOptions{})
	_, _ = store.Create(ctx, "old", []byte(`{}`), CreateOptions{ExpiresIn: time.Minute})

	now = now.Add(time.Hour)
	n, err := store.Cleanup(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one share cleaned, got %d (%v)", n, err)
	}

	ok, err := store.Delete(ctx, keep.ID)
	if err != nil || !ok {
		t.Fatalf("expected delete to succeed: %v", err)
	}
	if ok, _ := store.Delete(ctx, keep.ID); ok {
		t.Fatalf("expected second delete to report false")
	}
}

func TestFileBackedStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shares.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sh, err := store.Create(ctx, "disk", []byte(`{"a":1}`), CreateOptions{ReadOnly: false})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Get(ctx, sh.ID)
	if err != nil || !ok || got.ReadOnly {
		t.Fatalf("unexpected reopened share %#v ok=%v err=%v", got, ok, err)
	}
}
