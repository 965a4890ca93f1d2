package history

import (
	"encoding/json"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/httpclient"
	"github.com/luminahq/lumina/internal/model"
)

const (
	DefaultLimit     = 50
	BodySnippetLimit = 1000
)

type RequestSnapshot struct {
	Name    string            `json:"name"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Params  map[string]string `json:"params"`
	Body    string            `json:"body,omitempty"`
}

type ResponseSummary struct {
	StatusCode  int               `json:"status_code"`
	StatusText  string            `json:"status_text"`
	ElapsedMS   float64           `json:"elapsed_ms"`
	Size        int               `json:"size_bytes"`
	Headers     map[string]string `json:"headers"`
	BodySnippet string            `json:"body"`
	Error       string            `json:"error,omitempty"`
}

type Entry struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id"`
	ExecutedAt time.Time       `json:"timestamp"`
	Request    RequestSnapshot `json:"request"`
	Response   ResponseSummary `json:"response"`
}

// NewEntry records the stored template, not the resolved copy, next to a
// summary of the response. The body is cut to BodySnippetLimit runes.
func NewEntry(req *model.Request, resp *httpclient.Response) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		RequestID:  req.ID,
		ExecutedAt: time.Now(),
		Request: RequestSnapshot{
			Name:    req.Name,
			Method:  string(req.Method),
			URL:     req.URL,
			Headers: maps.Clone(req.Headers),
			Params:  maps.Clone(req.Params),
		},
	}
	if raw, ok := req.Body.(model.RawBody); ok {
		e.Request.Body = raw.Text
	}
	if resp != nil {
		e.Response = ResponseSummary{
			StatusCode:  resp.StatusCode,
			StatusText:  resp.StatusText,
			ElapsedMS:   resp.ElapsedMS,
			Size:        resp.Size,
			Headers:     maps.Clone(resp.Headers),
			BodySnippet: truncate(resp.Body, BodySnippetLimit),
			Error:       resp.Error,
		}
		if !resp.Timestamp.IsZero() {
			e.ExecutedAt = resp.Timestamp
		}
	}
	return e
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Store keeps newest-first entries per request id, at most limit each. An
// empty path keeps everything in memory.
type Store struct {
	path    string
	limit   int
	entries map[string][]Entry
	mu      sync.RWMutex
	loaded  bool
}

func NewStore(path string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{path: path, limit: limit, entries: map[string][]Entry{}}
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

// Append records entry as the newest for its request, evicting the oldest
// beyond the limit.
func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}

	list := append([]Entry{entry}, s.entries[entry.RequestID]...)
	if len(list) > s.limit {
		list = list[:s.limit]
	}
	s.entries[entry.RequestID] = list
	return s.persistLocked()
}

// ByRequest returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) ByRequest(requestID string, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[requestID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return slices.Clone(list)
}

func (s *Store) All() map[string][]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]Entry, len(s.entries))
	for id, list := range s.entries {
		out[id] = slices.Clone(list)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, list := range s.entries {
		n += len(list)
	}
	return n
}

func (s *Store) Clear(requestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return false, err
	}
	if _, ok := s.entries[requestID]; !ok {
		return false, nil
	}
	delete(s.entries, requestID)
	return true, s.persistLocked()
}

func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string][]Entry{}
	s.loaded = true
	return s.persistLocked()
}

// Drop forgets every entry and removes the backing file, if any.
func (s *Store) Drop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string][]Entry{}
	s.loaded = true
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "remove history file")
	}
	return nil
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write history tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace history file")
	}
	return nil
}

func (s *Store) ensureLoadedLocked() error {
	if s.loaded || s.path == "" {
		s.loaded = true
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return errdef.Wrap(errdef.CodeHistory, err, "read history")
	}
	if len(data) == 0 {
		s.loaded = true
		return nil
	}

	entries := map[string][]Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "parse history")
	}
	for id, list := range entries {
		if len(list) > s.limit {
			entries[id] = list[:s.limit]
		}
	}
	s.entries = entries
	s.loaded = true
	return nil
}
