// Package cache persists tool results per target so repeated scans with the
// same module and profile can be served without re-running the tool.
//
// Each target gets one JSON record named after the MD5 of the target string.
// The record maps "<module>:<profile>" to the latest entry. Writes are
// serialised inside one process only; two processes writing the same target
// concurrently race and the last write wins.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Entry is one cached run.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Stdout    string                 `json:"stdout"`
	Stderr    string                 `json:"stderr"`
	Parsed    map[string]interface{} `json:"parsed"`
}

// Store is the cache contract used by the orchestrator.
type Store interface {
	// Get returns the entry for the key if it is at most ttl old.
	Get(target, module, profile string, ttl time.Duration) (*Entry, bool)
	// Set replaces the entry for the key with a freshly timestamped one.
	Set(target, module, profile, stdout, stderr string, parsed map[string]interface{}) error
	// Clear removes one target's record, or every record when target is empty.
	Clear(target string) error
}

// record is the on-disk layout of one target.
type record map[string]Entry

// FileStore is a Store backed by one JSON file per target.
type FileStore struct {
	fs  afero.Fs
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// Option customises a FileStore.
type Option func(*FileStore)

// WithFs replaces the filesystem, mostly for tests.
func WithFs(fs afero.Fs) Option {
	return func(s *FileStore) { s.fs = fs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{
		fs:  afero.NewOsFs(),
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key is the sub-key of an entry inside a target record.
func Key(module, profile string) string {
	return module + ":" + profile
}

// TargetFile is the file name used for a target.
func TargetFile(target string) string {
	sum := md5.Sum([]byte(target))
	return hex.EncodeToString(sum[:]) + ".json"
}

func (s *FileStore) path(target string) string {
	return filepath.Join(s.dir, TargetFile(target))
}

// Get implements Store. Missing, unreadable, or malformed records are misses.
func (s *FileStore) Get(target, module, profile string, ttl time.Duration) (*Entry, bool) {
	rec, err := s.load(target)
	if err != nil {
		return nil, false
	}
	entry, ok := rec[Key(module, profile)]
	if !ok || entry.Timestamp.IsZero() {
		return nil, false
	}
	if s.now().Sub(entry.Timestamp) > ttl {
		return nil, false
	}
	return &entry, true
}

// Set implements Store.
func (s *FileStore) Set(target, module, profile, stdout, stderr string, parsed map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(target)
	if err != nil {
		// A corrupt record is overwritten.
		rec = record{}
	}
	rec[Key(module, profile)] = Entry{
		Timestamp: s.now(),
		Stdout:    stdout,
		Stderr:    stderr,
		Parsed:    parsed,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return writeFileAtomic(s.fs, s.path(target), data)
}

// Clear implements Store.
func (s *FileStore) Clear(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if target != "" {
		err := s.fs.Remove(s.path(target))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove cache record: %w", err)
		}
		return nil
	}
	if err := s.fs.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	return s.fs.MkdirAll(s.dir, 0755)
}

func (s *FileStore) load(target string) (record, error) {
	data, err := afero.ReadFile(s.fs, s.path(target))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return record{}, nil
		}
		return nil, err
	}
	rec := record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// writeFileAtomic replaces path with data via a temp file and rename.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(name)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := fs.Rename(name, path); err != nil {
		fs.Remove(name)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
