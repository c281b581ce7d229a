package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-hub/pkg/contenthub"
	fsstorage "github.com/tendant/content-hub/pkg/contenthub/storage/fs"
	memorystorage "github.com/tendant/content-hub/pkg/contenthub/storage/memory"
	s3storage "github.com/tendant/content-hub/pkg/contenthub/storage/s3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, filepath.Join("..", "data"), cfg.DataDir)
	assert.False(t, cfg.AdminMode)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestOptions(t *testing.T) {
	cfg, err := Load(WithPort("9090"), WithDataDir("/srv/data"), WithAdminMode(true), WithStorageURL("memory://"))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/srv/data", cfg.DataDir)
	assert.True(t, cfg.AdminMode)
	assert.Equal(t, "memory://", cfg.StorageURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty port", WithPort("")},
		{"non-numeric port", WithPort("http")},
		{"port out of range", WithPort("70000")},
		{"empty data dir", WithDataDir("")},
		{"unknown storage scheme", WithStorageURL("ftp://example.com")},
		{"s3 without bucket", WithStorageURL("s3://")},
		{"bad log level", func(c *ServerConfig) error { c.LogLevel = "loud"; return nil }},
		{"zero upload limit", func(c *ServerConfig) error { c.MaxUploadBytes = 0; return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATA_DIR", "/var/lib/content")
	t.Setenv("ADMIN_MODE", "true")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("S3_ACCESS_KEY_ID", "key")

	cfg, err := Load(WithEnv())
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "/var/lib/content", cfg.DataDir)
	assert.True(t, cfg.AdminMode)
	assert.Equal(t, "s3cret", cfg.AdminJWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "key", cfg.S3.AccessKeyID)
}

func TestWithEnvKeepsDefaultsForUnsetVariables(t *testing.T) {
	t.Setenv("PORT", "4000")

	cfg, err := Load(WithEnv())
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "file://", cfg.StorageURL)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
}

func TestWithEnvInvalidBool(t *testing.T) {
	t.Setenv("ADMIN_MODE", "maybe")
	_, err := Load(WithEnv())
	assert.Error(t, err)
}

func TestWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contenthub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "5000"
data_dir: /opt/content
admin_mode: true
storage_url: s3://assets?region=eu-west-1
s3:
  prefix: site
  use_path_style: true
`), 0644))

	cfg, err := Load(WithFile(path))
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "/opt/content", cfg.DataDir)
	assert.True(t, cfg.AdminMode)

	target, err := cfg.storage()
	require.NoError(t, err)
	assert.Equal(t, "s3", target.scheme)
	assert.Equal(t, "assets", target.s3.Bucket)
	assert.Equal(t, "eu-west-1", target.s3.Region)
	assert.Equal(t, "site", target.s3.Prefix)
	assert.True(t, target.s3.UsePathStyle)

	_, err = Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestStorageURL(t *testing.T) {
	tests := []struct {
		url        string
		wantScheme string
		wantPath   string
	}{
		{"", "file", ""},
		{"file://", "file", ""},
		{"file:///var/content", "file", filepath.FromSlash("/var/content")},
		{"memory", "memory", ""},
		{"memory://", "memory", ""},
		{"s3://bucket", "s3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := defaults()
			cfg.StorageURL = tt.url
			target, err := cfg.storage()
			require.NoError(t, err)
			assert.Equal(t, tt.wantScheme, target.scheme)
			assert.Equal(t, tt.wantPath, target.path)
		})
	}

	cfg := defaults()
	cfg.StorageURL = "s3://bucket/content?endpoint=http://localhost:9000&path_style=true"
	target, err := cfg.storage()
	require.NoError(t, err)
	assert.Equal(t, "bucket", target.s3.Bucket)
	assert.Equal(t, "content", target.s3.Prefix)
	assert.Equal(t, "http://localhost:9000", target.s3.Endpoint)
	assert.True(t, target.s3.UsePathStyle)

	cfg.StorageURL = "s3://bucket?path_style=sometimes"
	_, err = cfg.storage()
	assert.Error(t, err)
}

func TestFileStoreFactory(t *testing.T) {
	t.Run("file defaults to the data dir", func(t *testing.T) {
		cfg, err := Load(WithDataDir(t.TempDir()))
		require.NoError(t, err)
		factory, err := cfg.FileStoreFactory()
		require.NoError(t, err)

		store, err := factory("pdfs", filepath.Join(cfg.DataDir, "pdfs"))
		require.NoError(t, err)
		fsStore, ok := store.(*fsstorage.Backend)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(cfg.DataDir, "pdfs"), fsStore.BaseDir())
	})

	t.Run("file with a separate content root", func(t *testing.T) {
		root := t.TempDir()
		cfg, err := Load(WithStorageURL("file://" + filepath.ToSlash(root)))
		require.NoError(t, err)
		factory, err := cfg.FileStoreFactory()
		require.NoError(t, err)

		store, err := factory("infographics", "/ignored")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "infographics"), store.(*fsstorage.Backend).BaseDir())
	})

	t.Run("memory", func(t *testing.T) {
		cfg, err := Load(WithStorageURL("memory://"))
		require.NoError(t, err)
		factory, err := cfg.FileStoreFactory()
		require.NoError(t, err)
		store, err := factory("pdfs", "/ignored")
		require.NoError(t, err)
		assert.IsType(t, &memorystorage.Backend{}, store)
	})

	t.Run("s3 prefixes keys with the kind", func(t *testing.T) {
		cfg, err := Load(WithStorageURL("s3://bucket/site?region=us-west-2"))
		require.NoError(t, err)
		cfg.S3.AccessKeyID = "key"
		cfg.S3.SecretAccessKey = "secret"
		factory, err := cfg.FileStoreFactory()
		require.NoError(t, err)
		store, err := factory("pdfs", "/ignored")
		require.NoError(t, err)
		assert.IsType(t, &s3storage.Backend{}, store)
	})
}

func TestBuildHub(t *testing.T) {
	cfg, err := Load(WithDataDir(t.TempDir()), WithStorageURL("memory://"))
	require.NoError(t, err)

	sink := contenthub.NewNoopEventSink()
	hub, err := cfg.BuildHub(slog.Default(), sink)
	require.NoError(t, err)
	assert.Equal(t, cfg.DataDir, hub.DataDir)

	res, err := hub.Pdfs.List(context.Background(), contenthub.Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "pdfs", contenthub.IndexFilename))
}
