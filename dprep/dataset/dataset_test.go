package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePairs() []pairs.Pair {
	return []pairs.Pair{
		{Source: []string{"hello", "world", "<PAD>"}, Target: []string{"im", "fine", "<PAD>"}},
		{Source: []string{"a", "b", "c"}, Target: []string{"<PAD>", "<PAD>", "<PAD>"}},
		{Source: []string{"x&y", "<tag>", "ünï"}, Target: []string{"1", "2", "3"}},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, indent := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "out.json")
		want := samplePairs()
		require.NoError(t, Write(context.Background(), path, want, WriteOptions{Indent: indent}))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestWriteFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Write(context.Background(), path, samplePairs()[:1], WriteOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[[["hello","world","<PAD>"],["im","fine","<PAD>"]]]`+"\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, Write(context.Background(), path, nil, WriteOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	got, err := Read(path)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWriteCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.json")
	require.NoError(t, Write(context.Background(), path, samplePairs(), WriteOptions{}))
	assert.FileExists(t, path)
}

func TestWriteUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := Write(context.Background(), filepath.Join(blocker, "out.json"), samplePairs(), WriteOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ENOTDIR)
	assert.Contains(t, err.Error(), "write dataset")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, Write(context.Background(), path, samplePairs(), WriteOptions{}))

	// A directory at the destination makes the final rename fail.
	bad := filepath.Join(dir, "taken")
	require.NoError(t, os.MkdirAll(filepath.Join(bad, "child"), 0o755))
	require.Error(t, Write(context.Background(), bad, samplePairs(), WriteOptions{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "leftover %s", e.Name())
	}
}

func TestWriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Write(context.Background(), path, samplePairs(), WriteOptions{}))
	require.NoError(t, Write(context.Background(), path, samplePairs()[:1], WriteOptions{}))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteRejectsEmptyPathAndCanceledContext(t *testing.T) {
	err := Write(context.Background(), " ", samplePairs(), WriteOptions{})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "out.json")
	assert.ErrorIs(t, Write(ctx, path, samplePairs(), WriteOptions{}), context.Canceled)
	assert.NoFileExists(t, path)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.json")
	_, err := Read(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "read dataset "+missing)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[[["a"]]]`), 0o644))
	_, err = Read(bad)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSplitPaths(t *testing.T) {
	train, val := SplitPaths("out/preprocessed_data.json")
	assert.Equal(t, "out/preprocessed_data.train.json", train)
	assert.Equal(t, "out/preprocessed_data.validation.json", val)

	train, val = SplitPaths("data")
	assert.Equal(t, "data.train.json", train)
	assert.Equal(t, "data.validation.json", val)
}
