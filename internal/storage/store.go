// Package storage persists assembled papers as JSON files.
//
// Persistence is best-effort bookkeeping: the generated paper is always
// returned to the caller whether or not the save succeeded, so Save
// failures are reported but never abort a request.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-generator-service/internal/domain"
)

// filenameFormat is the timestamp layout embedded in paper filenames.
// Lexicographic order on filenames matches chronological order.
const filenameFormat = "20060102_150405"

// Store writes papers to a directory, one JSON file each.
type Store struct {
	dir    string
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Store rooted at dir. The directory is created if
// missing; creation failure is logged and surfaces on the first Save.
func New(dir string, logger zerolog.Logger) *Store {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("failed to create storage directory")
	}
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "storage").Logger(),
		now:    time.Now,
	}
}

// Save writes the paper as paper_<timestamp>.json and returns the path.
func (s *Store) Save(paper *domain.Paper) (string, error) {
	data, err := json.MarshalIndent(paper, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal paper: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("paper_%s.json", s.now().UTC().Format(filenameFormat)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write paper: %w", err)
	}

	s.logger.Info().Str("path", path).Str("paper_id", paper.ID.String()).Msg("paper saved")
	return path, nil
}

// Latest loads the most recently saved paper. Returns
// domain.ErrNotFound when no paper has been saved yet.
func (s *Store) Latest() (*domain.Paper, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "paper_*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan storage directory: %w", err)
	}
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	path := matches[len(matches)-1]

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read paper %s: %w", path, err)
	}

	var paper domain.Paper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("decode paper %s: %w", path, err)
	}
	return &paper, nil
}
