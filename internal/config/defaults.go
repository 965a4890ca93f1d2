package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultListenAddr       = ":5000"
	DefaultRequestTimeout   = 30 * time.Second
	DefaultHistoryLimit     = 50
	DefaultAutosaveInterval = 30 * time.Second
	DefaultSessionCookie    = "lumina_session"

	HistoryLimitMax = 1000
)

// Dir is $LUMINA_CONFIG_DIR, else $XDG_CONFIG_HOME/lumina, else
// ~/.config/lumina.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv("LUMINA_CONFIG_DIR")); dir != "" {
		return dir
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "lumina")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".lumina"
	}
	return filepath.Join(home, ".config", "lumina")
}

func Defaults() Settings {
	return Normalise(Settings{})
}

// Normalise fills zero values with defaults and clamps out-of-range ones.
func Normalise(in Settings) Settings {
	out := in
	if strings.TrimSpace(out.ListenAddr) == "" {
		out.ListenAddr = DefaultListenAddr
	}
	if strings.TrimSpace(out.DataDir) == "" {
		out.DataDir = filepath.Join(Dir(), "projects")
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	out.HistoryLimit = clampInt(out.HistoryLimit, 1, HistoryLimitMax, DefaultHistoryLimit)
	if out.AutosaveInterval <= 0 {
		out.AutosaveInterval = Duration(DefaultAutosaveInterval)
	}
	if strings.TrimSpace(out.ShareDB) == "" {
		out.ShareDB = filepath.Join(Dir(), "shares.db")
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = []string{"*"}
	}
	if strings.TrimSpace(out.SessionCookie) == "" {
		out.SessionCookie = DefaultSessionCookie
	}
	return out
}

func clampInt(value, min, max, fallback int) int {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
