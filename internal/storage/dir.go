// Package storage keeps projects on disk as one <id>.json file each.
package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/project"
)

const fileExt = ".json"

type Dir struct {
	path   string
	logger *slog.Logger
	seed   func() *project.Project
}

type Option func(*Dir)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dir) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSeed sets the project written by LoadAll when the directory is empty.
func WithSeed(fn func() *project.Project) Option {
	return func(d *Dir) {
		d.seed = fn
	}
}

func NewDir(path string, opts ...Option) *Dir {
	d := &Dir{
		path:   path,
		logger: slog.New(slog.DiscardHandler),
		seed:   func() *project.Project { return project.NewSample("") },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dir) Path() string { return d.path }

func (d *Dir) file(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", errdef.New(errdef.CodeValidation, "invalid project id %q", id)
	}
	return filepath.Join(d.path, id+fileExt), nil
}

func (d *Dir) Save(p *project.Project) error {
	path, err := d.file(p.ID())
	if err != nil {
		return err
	}
	data, err := p.MarshalJSON()
	if err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "encode project %s", p.ID())
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create data dir")
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write project %s", p.ID())
	}
	return nil
}

func (d *Dir) Load(id string) (*project.Project, error) {
	path, err := d.file(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errdef.New(errdef.CodeNotFound, "project %s not found", id)
		}
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read project %s", id)
	}
	return project.Decode(id, data)
}

func (d *Dir) Delete(id string) error {
	path, err := d.file(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "remove project %s", id)
	}
	return nil
}

// LoadAll reads every project file in id order. Files that fail to decode
// are logged and skipped. An empty directory gets a seed project, which is
// saved before it is returned.
func (d *Dir) LoadAll() ([]*project.Project, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read data dir")
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != fileExt || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	slices.Sort(ids)

	out := make([]*project.Project, 0, len(ids))
	for _, id := range ids {
		p, err := d.Load(id)
		if err != nil {
			d.logger.Warn("skip project file", "id", id, "err", err)
			continue
		}
		out = append(out, p)
	}
	if len(out) > 0 || d.seed == nil {
		return out, nil
	}

	p := d.seed()
	if err := d.Save(p); err != nil {
		return nil, err
	}
	d.logger.Info("seeded project", "id", p.ID(), "name", p.Name())
	return []*project.Project{p}, nil
}

// SaveAll writes every project and joins the failures.
func (d *Dir) SaveAll(projects map[string]*project.Project) error {
	var errs []error
	for _, p := range projects {
		if err := d.Save(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Autosave calls SaveAll on every tick and once more when ctx is done.
func (d *Dir) Autosave(ctx context.Context, interval time.Duration, source func() map[string]*project.Project) error {
	if interval <= 0 {
		<-ctx.Done()
		return d.flush(source)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return d.flush(source)
		case <-ticker.C:
			if err := d.flush(source); err != nil {
				d.logger.Error("autosave failed", "err", err)
			}
		}
	}
}

func (d *Dir) flush(source func() map[string]*project.Project) error {
	projects := source()
	if err := d.SaveAll(projects); err != nil {
		return err
	}
	d.logger.Debug("projects saved", "count", len(projects), "dir", d.path)
	return nil
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lumina-project-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
