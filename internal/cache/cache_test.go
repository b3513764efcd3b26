package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-generator-service/internal/domain"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	return New(t.TempDir(), ttl, zerolog.Nop())
}

func sampleDocs() []domain.Reference {
	return []domain.Reference{
		{Title: "Edge Inference Survey", Authors: []string{"A. One"}, Year: 2022, Venue: "IEEE Access", Abstract: "A survey."},
		{Title: "Quantization Methods", Authors: []string{"B. Two"}, Year: 2021, Venue: "ICML", Abstract: "Methods."},
	}
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t, 24*time.Hour)

	docs := sampleDocs()
	s.Put("edge computing inference", docs)

	got, ok := s.Get("edge computing inference")
	require.True(t, ok)
	assert.Equal(t, docs, got)
}

func TestStore_Get_Miss(t *testing.T) {
	s := newTestStore(t, 24*time.Hour)

	got, ok := s.Get("never stored")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_KeyNormalization(t *testing.T) {
	s := newTestStore(t, 24*time.Hour)

	s.Put("Edge  Computing   Inference", sampleDocs())

	// Case and whitespace differences map to the same entry.
	_, ok := s.Get("edge computing inference")
	assert.True(t, ok)

	_, ok = s.Get("  EDGE COMPUTING INFERENCE  ")
	assert.True(t, ok)

	_, ok = s.Get("edge computing")
	assert.False(t, ok)
}

func TestStore_TTLExpiry(t *testing.T) {
	s := newTestStore(t, time.Hour)

	s.Put("stale query", sampleDocs())

	// Advance the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, ok := s.Get("stale query")
	assert.False(t, ok)
}

func TestStore_Get_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 24*time.Hour, zerolog.Nop())

	// Write garbage where the entry would live.
	require.NoError(t, os.WriteFile(s.entryPath("bad entry"), []byte("{not json"), 0o644))

	_, ok := s.Get("bad entry")
	assert.False(t, ok)
}

func TestStore_Put_UnwritableDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "nested"), 24*time.Hour, zerolog.Nop())
	// Remove the directory to force write failures.
	require.NoError(t, os.RemoveAll(s.dir))

	// Must not panic or error.
	s.Put("query", sampleDocs())

	_, ok := s.Get("query")
	assert.False(t, ok)
}

func TestStore_ClearExpired(t *testing.T) {
	s := newTestStore(t, time.Hour)

	s.Put("fresh", sampleDocs())

	// Back-date one entry past the TTL.
	old := s.now
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	s.Put("expired", sampleDocs())
	s.now = old

	removed := s.ClearExpired()
	assert.Equal(t, 1, removed)

	_, ok := s.Get("fresh")
	assert.True(t, ok)
	_, ok = s.Get("expired")
	assert.False(t, ok)
}
