// Package share keeps project snapshots behind short ids.
package share

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/luminahq/lumina/internal/errdef"
)

const (
	IDLength   = 8
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxIDTries = 16
)

type Share struct {
	ID          string          `json:"share_id"`
	ProjectName string          `json:"project_name"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at"`
	ReadOnly    bool            `json:"read_only"`
	Data        json.RawMessage `json:"project_data"`
}

func (s Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Info is the listing view of a share, without the snapshot.
type Info struct {
	ID          string     `json:"share_id"`
	ProjectName string     `json:"project_name"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ReadOnly    bool       `json:"read_only"`
	Expired     bool       `json:"is_expired"`
}

type CreateOptions struct {
	// ExpiresIn <= 0 means the share never expires.
	ExpiresIn time.Duration
	ReadOnly  bool
}

const createSharesTable = `
CREATE TABLE IF NOT EXISTS shares (
    id TEXT PRIMARY KEY,
    project_name TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER,
    read_only INTEGER NOT NULL DEFAULT 1,
    data TEXT NOT NULL
);
`

const createSharesExpiryIdx = `
CREATE INDEX IF NOT EXISTS idx_shares_expires_at ON shares(expires_at);
`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the sqlite database at path. An empty path opens a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if strings.TrimSpace(path) == "" {
		dsn = fmt.Sprintf("file:shares_%s?mode=memory&cache=shared", uuid.NewString())
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeShare, err, "open share db")
	}
	db.SetMaxOpenConns(1)
	s := NewStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSharesTable); err != nil {
		return errdef.Wrap(errdef.CodeShare, err, "create shares table")
	}
	if _, err := s.db.ExecContext(ctx, createSharesExpiryIdx); err != nil {
		return errdef.Wrap(errdef.CodeShare, err, "create shares index")
	}
	return nil
}

// Create stores a snapshot under a fresh id.
func (s *Store) Create(ctx context.Context, name string, data []byte, opts CreateOptions) (Share, error) {
	if !json.Valid(data) {
		return Share{}, errdef.New(errdef.CodeValidation, "share snapshot is not valid json")
	}
	now := s.now().UTC()
	sh := Share{
		ProjectName: name,
		CreatedAt:   now,
		ReadOnly:    opts.ReadOnly,
		Data:        json.RawMessage(data),
	}
	var expires sql.NullInt64
	if opts.ExpiresIn > 0 {
		at := now.Add(opts.ExpiresIn)
		sh.ExpiresAt = &at
		expires = sql.NullInt64{Int64: at.UnixMilli(), Valid: true}
	}

	for range maxIDTries {
		id, err := newID()
		if err != nil {
			return Share{}, errdef.Wrap(errdef.CodeShare, err, "generate share id")
		}
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO shares (id, project_name, created_at, expires_at, read_only, data)
             VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			id,
			name,
			now.UnixMilli(),
			expires,
			opts.ReadOnly,
			string(data),
		)
		if err != nil {
			return Share{}, errdef.Wrap(errdef.CodeShare, err, "insert share")
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			sh.ID = id
			sh.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
			if sh.ExpiresAt != nil {
				at := time.UnixMilli(expires.Int64).UTC()
				sh.ExpiresAt = &at
			}
			return sh, nil
		}
	}
	return Share{}, errdef.New(errdef.CodeShare, "could not allocate a unique share id")
}

// Get returns the share. Expired shares are deleted and reported as absent.
func (s *Store) Get(ctx context.Context, id string) (Share, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, project_name, created_at, expires_at, read_only, data FROM shares WHERE id = ?`,
		id,
	)
	var (
		sh       Share
		created  int64
		expires  sql.NullInt64
		readOnly bool
		data     string
	)
	err := row.Scan(&sh.ID, &sh.ProjectName, &created, &expires, &readOnly, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Share{}, false, nil
	}
	if err != nil {
		return Share{}, false, errdef.Wrap(errdef.CodeShare, err, "read share %s", id)
	}
	sh.CreatedAt = time.UnixMilli(created).UTC()
	sh.ExpiresAt = fromNull(expires)
	sh.ReadOnly = readOnly
	sh.Data = json.RawMessage(data)

	if sh.Expired(s.now()) {
		if _, err := s.Delete(ctx, id); err != nil {
			return Share{}, false, err
		}
		return Share{}, false, nil
	}
	return sh, true, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE id = ?`, id)
	if err != nil {
		return false, errdef.Wrap(errdef.CodeShare, err, "delete share %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errdef.Wrap(errdef.CodeShare, err, "delete share %s", id)
	}
	return n > 0, nil
}

// List returns every stored share, expired ones included, newest first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, project_name, created_at, expires_at, read_only FROM shares ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeShare, err, "list shares")
	}
	defer func() {
		_ = rows.Close()
	}()

	now := s.now()
	out := []Info{}
	for rows.Next() {
		var (
			info    Info
			created int64
			expires sql.NullInt64
		)
		if err := rows.Scan(&info.ID, &info.ProjectName, &created, &expires, &info.ReadOnly); err != nil {
			return nil, errdef.Wrap(errdef.CodeShare, err, "scan share")
		}
		info.CreatedAt = time.UnixMilli(created).UTC()
		info.ExpiresAt = fromNull(expires)
		info.Expired = info.ExpiresAt != nil && now.After(*info.ExpiresAt)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeShare, err, "list shares")
	}
	return out, nil
}

// Cleanup removes expired shares and reports how many were dropped.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM shares WHERE expires_at IS NOT NULL AND expires_at < ?`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeShare, err, "cleanup shares")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errdef.Wrap(errdef.CodeShare, err, "cleanup shares")
	}
	return int(n), nil
}

func fromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func newID() (string, error) {
	var b strings.Builder
	b.Grow(IDLength)
	max := big.NewInt(int64(len(idAlphabet)))
	for range IDLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String(), nil
}
