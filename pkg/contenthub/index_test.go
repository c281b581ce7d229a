package contenthub_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-hub/pkg/contenthub"
)

func TestIndexStore_BootstrapsMissingIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pdfs")
	store := contenthub.NewIndexStore[contenthub.PdfMetadata](dir, "pdfs")
	ctx := context.Background()

	records, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"pdfs": []}`, string(data))

	// idempotent
	records, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIndexStore_SaveIsPrettyPrintedAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := contenthub.NewIndexStore[contenthub.InfographicMetadata](dir, "infographics")
	ctx := context.Background()

	in := []contenthub.InfographicMetadata{
		{ID: "1", Filename: "1.png", Title: "One", Description: "first", Tags: []string{"a"}, UploadedAt: "2024-01-01T00:00:00.000Z"},
	}
	require.NoError(t, store.Save(ctx, in))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "{\n  \"infographics\": [\n    {\n")

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, contenthub.IndexFilename, entries[0].Name())
}

func TestIndexStore_CorruptDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"truncated", `{"pdfs": [{"id": "1"`},
		{"missing key", `{"articles": []}`},
		{"null list", `{"pdfs": null}`},
		{"wrong shape", `{"pdfs": {"id": "1"}}`},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := contenthub.NewIndexStore[contenthub.PdfMetadata](dir, "pdfs")
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0644))

			records, err := store.Load(context.Background())
			assert.Nil(t, records)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contenthub.ErrCorruptIndex), "got %v", err)

			var indexErr *contenthub.IndexError
			assert.True(t, errors.As(err, &indexErr))

			// the corrupt document is left untouched
			data, err := os.ReadFile(store.Path())
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestIndexStore_SaveIfDetectsConcurrentWrite(t *testing.T) {
	dir := t.TempDir()
	store := contenthub.NewIndexStore[contenthub.PdfMetadata](dir, "pdfs")
	other := contenthub.NewIndexStore[contenthub.PdfMetadata](dir, "pdfs")
	ctx := context.Background()

	records, version, err := store.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Save(ctx, []contenthub.PdfMetadata{{ID: "from-other"}}))

	err = store.SaveIf(ctx, append(records, contenthub.PdfMetadata{ID: "mine"}), version)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contenthub.ErrConcurrentWrite))
	assert.True(t, contenthub.IsRetryable(err))

	current, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "from-other", current[0].ID)

	records, version, err = store.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SaveIf(ctx, append(records, contenthub.PdfMetadata{ID: "mine"}), version))

	current, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, current, 2)
}

func TestIndexStore_LockExcludesOtherStores(t *testing.T) {
	dir := t.TempDir()
	first := contenthub.NewIndexStore[contenthub.PdfMetadata](dir, "pdfs")
	second := contenthub.NewIndexStore[contenthub.PdfMetadata](dir, "pdfs")

	unlock, err := first.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	unlockSecond, err := second.Lock(context.Background())
	require.NoError(t, err)
	unlockSecond()
}
