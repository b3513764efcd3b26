// Package cache provides a file-backed cache for retrieval results.
//
// Each entry is one JSON file named by a hash of the normalized query.
// Entries older than the TTL are treated as absent. The cache is an
// optimization only: every I/O failure degrades to a miss, and Put never
// reports an error to the caller. Concurrent writers for the same query
// are last-writer-wins.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-generator-service/internal/domain"
)

// Entry is the on-disk format of a single cache entry.
type Entry struct {
	Timestamp time.Time          `json:"timestamp"`
	Query     string             `json:"query"`
	Documents []domain.Reference `json:"documents"`
}

// Store is a file-backed retrieval cache.
type Store struct {
	dir    string
	ttl    time.Duration
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Store rooted at dir with the given TTL. The directory is
// created if missing; creation failure is logged and every subsequent
// operation degrades to a miss.
func New(dir string, ttl time.Duration, logger zerolog.Logger) *Store {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("failed to create cache directory")
	}
	return &Store{
		dir:    dir,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}
}

// Get returns the cached documents for query if a fresh entry exists.
func (s *Store) Get(query string) ([]domain.Reference, bool) {
	path := s.entryPath(query)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("cache read failed")
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("cache entry corrupt")
		return nil, false
	}

	if s.now().Sub(entry.Timestamp) > s.ttl {
		return nil, false
	}
	return entry.Documents, true
}

// Put stores documents for query. Failures are logged and swallowed.
func (s *Store) Put(query string, docs []domain.Reference) {
	entry := Entry{
		Timestamp: s.now(),
		Query:     query,
		Documents: docs,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache entry marshal failed")
		return
	}

	path := s.entryPath(query)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("cache write failed")
	}
}

// ClearExpired removes entries older than the TTL and returns how many
// files were deleted.
func (s *Store) ClearExpired() int {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache scan failed")
		return 0
	}

	removed := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err == nil && s.now().Sub(entry.Timestamp) <= s.ttl {
			continue
		}
		// Expired or unreadable entries are both removed.
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed
}

// entryPath maps a query to its cache file.
func (s *Store) entryPath(query string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%016x.json", keyFor(query)))
}

// keyFor hashes the normalized query. Queries differing only in case or
// surrounding whitespace share an entry.
func keyFor(query string) uint64 {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return xxhash.Sum64String(normalized)
}
