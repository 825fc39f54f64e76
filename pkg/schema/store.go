package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Store.Load when no schema file exists for the
// requested database. Callers are expected to degrade to syntax-only
// validation rather than fail the whole call.
var ErrNotFound = errors.New("schema: database not found")

// Store serves per-database schema maps from a directory of JSON files
// named "<database>.json", each holding {table: {column: type}}. Files are
// produced out-of-band and treated as read-only input; loaded maps are
// cached for the life of the store and shared across goroutines.
//
// The cache is constructor-injected state with a defined lifecycle, not a
// package global: create one store at process start and share it.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]Map
}

// NewStore creates a store over dir. The directory is not read until the
// first Load.
func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string]Map)}
}

// Load returns the schema map for database, reading and caching the JSON
// file on first use. Returns ErrNotFound when the file does not exist.
func (s *Store) Load(database string) (Map, error) {
	s.mu.RLock()
	m, ok := s.cache[database]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	path := filepath.Join(s.dir, database+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, database)
		}
		return nil, fmt.Errorf("schema: reading %s: %w", path, err)
	}

	var loaded Map
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("schema: parsing %s: %w", path, err)
	}

	s.mu.Lock()
	s.cache[database] = loaded
	s.mu.Unlock()
	return loaded, nil
}

// Databases lists the database names with a schema file present.
func (s *Store) Databases() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("schema: reading %s: %w", s.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, e.Name()[:len(e.Name())-len(".json")])
	}
	return out, nil
}
