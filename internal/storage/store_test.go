package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-generator-service/internal/domain"
)

func testPaper(title string) *domain.Paper {
	return &domain.Paper{
		ID:      uuid.New(),
		Title:   title,
		Authors: []domain.Author{{Name: "Dana Reyes"}},
		Sections: map[string]string{
			"introduction": "Intro text.",
			"references":   `[1] A. Author, "Some Paper," IEEE Access, 2022.`,
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func TestStore_SaveAndLatest(t *testing.T) {
	store := New(t.TempDir(), zerolog.Nop())

	paper := testPaper("First Paper")
	path, err := store.Save(paper)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Regexp(t, `paper_\d{8}_\d{6}\.json$`, path)

	loaded, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, paper.ID, loaded.ID)
	assert.Equal(t, paper.Title, loaded.Title)
	assert.Equal(t, paper.Sections, loaded.Sections)
}

func TestStore_LatestPicksNewest(t *testing.T) {
	store := New(t.TempDir(), zerolog.Nop())

	// Freeze and advance the clock so filenames differ.
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	_, err := store.Save(testPaper("Older Paper"))
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(time.Minute) }
	_, err = store.Save(testPaper("Newer Paper"))
	require.NoError(t, err)

	loaded, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "Newer Paper", loaded.Title)
}

func TestStore_LatestEmpty(t *testing.T) {
	store := New(t.TempDir(), zerolog.Nop())

	_, err := store.Latest()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_LatestCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, zerolog.Nop())

	path := filepath.Join(dir, "paper_20260310_120000.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := store.Latest()
	assert.Error(t, err)
}

func TestStore_SaveUnwritableDir(t *testing.T) {
	store := New(t.TempDir(), zerolog.Nop())
	// Point the store at a path that cannot be a directory.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	store.dir = filepath.Join(blocker, "sub")

	_, err := store.Save(testPaper("Doomed Paper"))
	assert.Error(t, err)
}
