package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/luminahq/lumina/internal/errdef"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

// Settings is the server configuration file. Zero fields take the values
// from Defaults.
type Settings struct {
	ListenAddr         string   `json:"listen_addr"          toml:"listen_addr"`
	DataDir            string   `json:"data_dir"             toml:"data_dir"`
	RequestTimeout     Duration `json:"request_timeout"      toml:"request_timeout"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify" toml:"insecure_skip_verify"`
	HistoryLimit       int      `json:"history_limit"        toml:"history_limit"`
	AutosaveInterval   Duration `json:"autosave_interval"    toml:"autosave_interval"`
	ShareDB            string   `json:"share_db"             toml:"share_db"`
	SharedWorkspace    bool     `json:"shared_workspace"     toml:"shared_workspace"`
	AllowedOrigins     []string `json:"allowed_origins"      toml:"allowed_origins"`
	SessionCookie      string   `json:"session_cookie"       toml:"session_cookie"`
}

type SettingsFormat string

// SettingsHandle says where settings came from, and where SaveSettings
// writes them back.
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

type codec struct {
	file   string
	decode func([]byte, *Settings) error
	encode func(Settings) ([]byte, error)
}

var codecs = map[SettingsFormat]codec{
	SettingsFormatTOML: {
		file:   "settings.toml",
		decode: func(data []byte, s *Settings) error { return toml.Unmarshal(data, s) },
		encode: func(s Settings) ([]byte, error) { return toml.Marshal(s) },
	},
	SettingsFormatJSON: {
		file: "settings.json",
		decode: func(data []byte, s *Settings) error {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			return dec.Decode(s)
		},
		encode: func(s Settings) ([]byte, error) {
			data, err := json.MarshalIndent(s, "", "  ")
			return append(data, '\n'), err
		},
	},
}

// LoadSettings reads settings.toml, then settings.json, from Dir. The first
// file found wins; a parse error is returned rather than skipped. With no
// file present it returns Defaults and a handle for settings.toml.
func LoadSettings() (Settings, SettingsHandle, error) {
	dir := Dir()
	var readErrs []error
	for _, format := range []SettingsFormat{SettingsFormatTOML, SettingsFormatJSON} {
		c := codecs[format]
		handle := SettingsHandle{Path: filepath.Join(dir, c.file), Format: format}
		data, err := os.ReadFile(handle.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			readErrs = append(readErrs, errdef.Wrap(errdef.CodeConfig, err, "read settings %s", handle.Path))
			continue
		}
		var s Settings
		if err := c.decode(data, &s); err != nil {
			return Settings{}, SettingsHandle{}, errdef.Wrap(errdef.CodeConfig, err, "parse settings %s", handle.Path)
		}
		return Normalise(s), handle, nil
	}
	if len(readErrs) > 0 {
		return Settings{}, SettingsHandle{}, errors.Join(readErrs...)
	}
	return Defaults(), SettingsHandle{
		Path:   filepath.Join(dir, codecs[SettingsFormatTOML].file),
		Format: SettingsFormatTOML,
	}, nil
}

// SaveSettings writes normalised settings to handle, defaulting to
// settings.toml in Dir.
func SaveSettings(settings Settings, handle SettingsHandle) error {
	if handle.Format == "" {
		handle.Format = SettingsFormatTOML
	}
	c, ok := codecs[handle.Format]
	if !ok {
		return errdef.New(errdef.CodeConfig, "unsupported settings format %q", handle.Format)
	}
	if handle.Path == "" {
		handle.Path = filepath.Join(Dir(), c.file)
	}
	data, err := c.encode(Normalise(settings))
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}
	if err := os.MkdirAll(filepath.Dir(handle.Path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create settings dir")
	}
	if err := writeFileAtomic(handle.Path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings %s", handle.Path)
	}
	return nil
}

// writeFileAtomic renames a fully written temp file over path.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lumina-settings-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(perm)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(name, path)
}
