package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFSRoundTrip(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "2026/decisions.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, "2026/decisions.jsonl", []byte("line\n")))

	ok, err = store.Exists(ctx, "2026/decisions.jsonl")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Read(ctx, "2026/decisions.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestLocalFSList(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "a/one.jsonl", []byte("1")))
	require.NoError(t, store.Write(ctx, "a/two.jsonl", []byte("2")))
	require.NoError(t, store.Write(ctx, "b/three.jsonl", []byte("3")))

	paths, err := store.List(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.jsonl", "a/two.jsonl"}, paths)

	paths, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.jsonl", "a/two.jsonl", "b/three.jsonl"}, paths)

	// Listing an absent prefix is empty, not an error.
	paths, err = store.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}
