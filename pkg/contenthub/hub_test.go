package contenthub_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-hub/pkg/contenthub"
	fsstorage "github.com/tendant/content-hub/pkg/contenthub/storage/fs"
)

func newFSHub(t *testing.T) *contenthub.Hub {
	t.Helper()
	hub, err := contenthub.NewHub(t.TempDir(), func(kind, localDir string) (contenthub.FileStore, error) {
		return fsstorage.New(fsstorage.Config{BaseDir: localDir})
	})
	require.NoError(t, err)
	return hub
}

func TestNewHub_RequiresArguments(t *testing.T) {
	_, err := contenthub.NewHub("", func(string, string) (contenthub.FileStore, error) { return nil, nil })
	assert.Error(t, err)

	_, err = contenthub.NewHub(t.TempDir(), nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = contenthub.NewHub(t.TempDir(), func(string, string) (contenthub.FileStore, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewHub_RootsEachKindInItsOwnDirectory(t *testing.T) {
	hub := newFSHub(t)
	assert.Equal(t, filepath.Join(hub.DataDir, "articles", contenthub.IndexFilename), hub.Articles.Repository().Index().Path())
	assert.Equal(t, filepath.Join(hub.DataDir, "pdfs", contenthub.IndexFilename), hub.Pdfs.Repository().Index().Path())
	assert.Equal(t, filepath.Join(hub.DataDir, "infographics", contenthub.IndexFilename), hub.Infographics.Repository().Index().Path())
}

func TestHub_KindsAreIndependent(t *testing.T) {
	hub := newFSHub(t)
	ctx := context.Background()

	_, err := hub.Pdfs.Upload(ctx, contenthub.Upload{Data: pdfBytes, Filename: "a.pdf", Title: "A"})
	require.NoError(t, err)

	res, err := hub.Infographics.List(ctx, contenthub.Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)

	reports, err := hub.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.Empty(t, r.Orphans, r.Kind)
		assert.Empty(t, r.Dangling, r.Kind)
	}
}

func TestUploads_Save(t *testing.T) {
	hub := newFSHub(t)
	ctx := context.Background()

	name, err := hub.Uploads.Save(ctx, pngBytes(t), "photo.PNG")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(name))

	rc, err := hub.Uploads.Open(ctx, name)
	require.NoError(t, err)
	rc.Close()

	_, err = hub.Uploads.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, contenthub.ErrNotFound)

	tests := []struct {
		name     string
		data     []byte
		filename string
	}{
		{"empty", nil, "a.png"},
		{"svg not accepted", []byte("<svg></svg>"), "a.svg"},
		{"pdf not accepted", pdfBytes, "a.pdf"},
		{"bytes are not an image", []byte("hello"), "a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hub.Uploads.Save(ctx, tt.data, tt.filename)
			var vErr *contenthub.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.True(t, errors.Is(err, contenthub.ErrValidation))
		})
	}
}
