// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache memoizes oracle calls in a content-addressed key/value store
// that survives process restarts. Every cached operation is a pure function
// of its key, so concurrent writers to one key store equal values and the
// last write wins harmlessly.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// Store is a key/value store for cache entries.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any existing entry.
	Set(key string, value []byte) error

	// Len returns the number of entries.
	Len() (int, error)

	// Clear removes every entry.
	Clear() error

	Close() error
}

// Open creates the store selected by cfg.
func Open(cfg types.CacheConfig) (Store, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Backend {
	case types.CacheFiles:
		return NewFileStore(cfg.Dir)
	case types.CacheSQLite:
		return NewSQLiteStore(cfg.Dir)
	case types.CacheMemory:
		return NewMemoryStore(), nil
	default:
		return nil, types.NewInputError(types.ErrCodeInvalidOption, "unknown cache backend %q", cfg.Backend)
	}
}

const entrySuffix = ".json"

// FileStore keeps one file per entry.
//
// Structure:
//
//	{Dir}/
//	  {hash[0:2]}/
//	    {kind}-{hash}.json
type FileStore struct {
	Dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// Get reads the entry file for key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return data, true, nil
}

// Set writes the entry through a temp file and rename, so a crash never
// leaves a partial entry at the canonical path.
func (s *FileStore) Set(key string, value []byte) error {
	path := s.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache shard: %w", err)
	}
	return writeFileAtomic(path, value, 0o644)
}

// Len counts entry files.
func (s *FileStore) Len() (int, error) {
	n := 0
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), entrySuffix) {
			n++
		}
		return nil
	})
	return n, err
}

// Clear removes the shard directories and everything in them.
func (s *FileStore) Clear() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.Dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// entryPath shards on the first two hex characters of the key's hash.
func (s *FileStore) entryPath(key string) string {
	name := key + entrySuffix
	hash := key
	if i := strings.LastIndexByte(key, '-'); i >= 0 {
		hash = key[i+1:]
	}
	if len(hash) < 2 {
		return filepath.Join(s.Dir, name)
	}
	return filepath.Join(s.Dir, hash[:2], name)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// MemoryStore keeps entries in memory. Useful for tests and one-shot runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
