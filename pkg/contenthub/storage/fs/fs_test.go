package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-hub/pkg/contenthub"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "pdfs")
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.EnsureRoot(ctx))

	data := []byte("hello fs")
	name, err := backend.Save(ctx, bytes.NewReader(data), ".pdf")
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(name))

	exists, err := backend.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := backend.Open(ctx, name)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, data, got)

	names, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	require.NoError(t, backend.Delete(ctx, name))
	_, err = os.Stat(filepath.Join(tmp, name))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, backend.Delete(ctx, name))
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestFSBackend_NeverOverwrites(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, NameFunc: func(ext string) string { return "same" + ext }})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = backend.Save(ctx, bytes.NewReader([]byte("first")), ".png")
	require.NoError(t, err)

	_, err = backend.Save(ctx, bytes.NewReader([]byte("second")), ".png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contenthub.ErrStorageConflict))
	var sErr *contenthub.StorageError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, "fs", sErr.Backend)
	assert.Equal(t, "same.png", sErr.Key)

	data, err := os.ReadFile(filepath.Join(tmp, "same.png"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestFSBackend_MissingFiles(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = backend.Open(ctx, "nope.pdf")
	assert.True(t, errors.Is(err, contenthub.ErrNotFound))

	exists, err := backend.Exists(ctx, "nope.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	missingRoot, err := New(Config{BaseDir: filepath.Join(t.TempDir(), "absent")})
	require.NoError(t, err)
	names, err := missingRoot.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFSBackend_ResolvePathRejectsTraversal(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../secret", "a/b.png", `a\b.png`} {
		_, err := backend.ResolvePath(name)
		assert.True(t, errors.Is(err, contenthub.ErrNotFound), "name %q", name)
	}

	path, err := backend.ResolvePath("ok.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "ok.png"), path)

	_, err = backend.Open(context.Background(), "../index.json")
	assert.True(t, errors.Is(err, contenthub.ErrNotFound))
}

func TestFSBackend_ListSkipsHiddenAndDirectories(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "b.pdf"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a.pdf"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".index-123.tmp"), []byte("{}"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(tmp, "nested"), 0755))

	names, err := backend.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, names)
}

func TestFSBackend_SaveHonoursCancelledContext(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = backend.Save(ctx, bytes.NewReader([]byte("x")), ".png")
	assert.ErrorIs(t, err, context.Canceled)
}
