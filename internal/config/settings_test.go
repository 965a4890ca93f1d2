package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luminahq/lumina/internal/errdef"
)

func TestLoadSettingsReturnsDefaultHandleWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)

	settings, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	expectedPath := filepath.Join(dir, "settings.toml")
	if handle.Path != expectedPath {
		t.Fatalf("expected handle path %q, got %q", expectedPath, handle.Path)
	}
	if handle.Format != SettingsFormatTOML {
		t.Fatalf("expected format %q, got %q", SettingsFormatTOML, handle.Format)
	}
	if settings.ListenAddr != DefaultListenAddr {
		t.Fatalf("expected default listen addr, got %q", settings.ListenAddr)
	}
	if settings.RequestTimeout.Std() != DefaultRequestTimeout {
		t.Fatalf("expected default timeout, got %v", settings.RequestTimeout)
	}
	if settings.DataDir != filepath.Join(dir, "projects") {
		t.Fatalf("unexpected data dir %q", settings.DataDir)
	}
	if settings.SessionCookie != DefaultSessionCookie {
		t.Fatalf("unexpected cookie name %q", settings.SessionCookie)
	}
}

func TestSaveAndLoadSettingsTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)

	want := Settings{ListenAddr: "127.0.0.1:9000", RequestTimeout: Duration(5 * time.Second)}
	if err := SaveSettings(want, SettingsHandle{}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got.ListenAddr != want.ListenAddr {
		t.Fatalf("expected addr %q, got %q", want.ListenAddr, got.ListenAddr)
	}
	if got.RequestTimeout != want.RequestTimeout {
		t.Fatalf("expected timeout %v, got %v", want.RequestTimeout, got.RequestTimeout)
	}
	if handle.Format != SettingsFormatTOML {
		t.Fatalf("expected format %q after save, got %q", SettingsFormatTOML, handle.Format)
	}
}

func TestLoadSettingsTOMLDurationsAndClamp(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)

	data := []byte("request_timeout = \"2m\"\nautosave_interval = \"10s\"\nhistory_limit = 99999\nallowed_origins = [\"http://localhost:3000\"]\n")
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), data, 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	got, _, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got.RequestTimeout.Std() != 2*time.Minute || got.AutosaveInterval.Std() != 10*time.Second {
		t.Fatalf("unexpected durations %v %v", got.RequestTimeout, got.AutosaveInterval)
	}
	if got.HistoryLimit != HistoryLimitMax {
		t.Fatalf("expected clamped history limit, got %d", got.HistoryLimit)
	}
	if len(got.AllowedOrigins) != 1 || got.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %#v", got.AllowedOrigins)
	}
}

func TestLoadSettingsJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)

	path := filepath.Join(dir, "settings.json")
	payload := `{"listen_addr": ":7000", "request_timeout": "45s", "shared_workspace": true}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write json settings: %v", err)
	}

	got, handle, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got.ListenAddr != ":7000" || got.RequestTimeout.Std() != 45*time.Second || !got.SharedWorkspace {
		t.Fatalf("unexpected settings %#v", got)
	}
	if handle.Format != SettingsFormatJSON {
		t.Fatalf("expected json format, got %q", handle.Format)
	}
	if handle.Path != path {
		t.Fatalf("expected handle path %q, got %q", path, handle.Path)
	}
}

func TestLoadSettingsRejectsUnknownJSONFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"theme": "x"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadSettings(); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDirPrecedence(t *testing.T) {
	t.Setenv("LUMINA_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := Dir(); got != filepath.Join("/tmp/xdg", "lumina") {
		t.Fatalf("unexpected dir %q", got)
	}
	t.Setenv("LUMINA_CONFIG_DIR", "/tmp/explicit")
	if got := Dir(); got != "/tmp/explicit" {
		t.Fatalf("unexpected dir %q", got)
	}
}

func TestSaveSettingsJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)

	handle := SettingsHandle{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON}
	if err := SaveSettings(Settings{HistoryLimit: 10, SharedWorkspace: true}, handle); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, loaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.Format != SettingsFormatJSON {
		t.Fatalf("format = %q, want json", loaded.Format)
	}
	if got.HistoryLimit != 10 || !got.SharedWorkspace {
		t.Fatalf("settings = %+v", got)
	}
}

func TestLoadSettingsParseErrorIsConfigError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LUMINA_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("listen_addr = "), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	_, _, err := LoadSettings()
	if !errdef.Is(err, errdef.CodeConfig) {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestSaveSettingsRejectsUnknownFormat(t *testing.T) {
	t.Setenv("LUMINA_CONFIG_DIR", t.TempDir())
	if err := SaveSettings(Settings{}, SettingsHandle{Format: "yaml"}); !errdef.Is(err, errdef.CodeConfig) {
		t.Fatalf("err = %v, want config error", err)
	}
}
