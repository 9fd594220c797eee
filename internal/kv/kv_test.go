package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	_, ok := s.Get(ctx, "user:ash")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "user:ash", "v1"))
	v, ok := s.Get(ctx, "user:ash")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, s.Set(ctx, "user:ash", "v2"))
	v, _ = s.Get(ctx, "user:ash")
	assert.Equal(t, "v2", v)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	assert.Equal(t, 1, m.Len())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	s, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	exerciseStore(t, s)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())

	// Values survive reopening.
	s2, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()
	v, ok := s2.Get(context.Background(), "user:ash")
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("", zerolog.Nop())
	assert.Error(t, err)
}

func TestSQLite_ClosedDBGetIsNotFound(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "p.db"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	require.NoError(t, s.Close())
	_, ok := s.Get(context.Background(), "k")
	assert.False(t, ok)
}
