// Package config loads server settings and builds a contenthub.Hub from them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/content-hub/pkg/contenthub"
	fsstorage "github.com/tendant/content-hub/pkg/contenthub/storage/fs"
	memorystorage "github.com/tendant/content-hub/pkg/contenthub/storage/memory"
	s3storage "github.com/tendant/content-hub/pkg/contenthub/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// ServerConfig represents server configuration for the content hub
type ServerConfig struct {
	Port        string `yaml:"port" env:"PORT" env-description:"HTTP listen port"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-description:"development, production, testing"`

	// DataDir holds one directory per content type with its index.json
	DataDir string `yaml:"data_dir" env:"DATA_DIR" env-description:"Root of the content directories"`

	AdminMode      bool   `yaml:"admin_mode" env:"ADMIN_MODE" env-description:"Enable upload and delete endpoints"`
	AdminJWTSecret string `yaml:"admin_jwt_secret" env:"ADMIN_JWT_SECRET" env-description:"HS256 secret; when set admin endpoints require a bearer token"`

	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-description:"Allowed CORS origins"`

	// StorageURL selects where content bytes live: file://[path], memory:// or s3://bucket?region=...
	StorageURL string   `yaml:"storage_url" env:"STORAGE_URL" env-description:"Content file storage"`
	S3         S3Config `yaml:"s3"`

	MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-description:"Upper bound for upload request bodies"`
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-description:"Serve Prometheus metrics at /metrics"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL" env-description:"debug, info, warn, error"`
}

// S3Config carries credentials and endpoint settings for s3:// storage URLs
type S3Config struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Region          string `yaml:"region" env:"S3_REGION"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	Prefix          string `yaml:"prefix" env:"S3_PREFIX"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE"`
	CreateBucket    bool   `yaml:"create_bucket" env:"S3_CREATE_BUCKET"`
}

// Load constructs a ServerConfig by applying the supplied options on top of defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "3001",
		Environment:    "development",
		DataDir:        filepath.Join("..", "data"),
		CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
		StorageURL:     "file://",
		MaxUploadBytes: 50 << 20,
		LogLevel:       "info",
	}
}

// WithEnv reads overrides from the environment. Unset variables keep their current value.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return nil
	}
}

// WithFile reads a YAML (or JSON/TOML, by extension) config file, then the environment.
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}
}

// WithPort sets the listen port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		c.Port = port
		return nil
	}
}

// WithDataDir sets the content root
func WithDataDir(dir string) Option {
	return func(c *ServerConfig) error {
		c.DataDir = dir
		return nil
	}
}

// WithAdminMode toggles the mutating endpoints
func WithAdminMode(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AdminMode = enabled
		return nil
	}
}

// WithStorageURL selects the content file storage
func WithStorageURL(storageURL string) Option {
	return func(c *ServerConfig) error {
		c.StorageURL = storageURL
		return nil
	}
}

func (c *ServerConfig) normalize() {
	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSOrigins = origins
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if _, err := c.storage(); err != nil {
		return err
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level
func (c *ServerConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// storageTarget is the parsed form of StorageURL
type storageTarget struct {
	scheme string // "file", "memory" or "s3"
	path   string // file: content root, empty means DataDir
	s3     s3storage.Config
}

func (c *ServerConfig) storage() (storageTarget, error) {
	raw := strings.TrimSpace(c.StorageURL)
	if raw == "" || raw == "file://" {
		return storageTarget{scheme: "file"}, nil
	}
	if raw == "memory" || raw == "memory://" {
		return storageTarget{scheme: "memory"}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storageTarget{}, fmt.Errorf("invalid STORAGE_URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "file":
		return storageTarget{scheme: "file", path: filepath.FromSlash(u.Host + u.Path)}, nil
	case "s3":
		if u.Host == "" {
			return storageTarget{}, errors.New("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		s3cfg := s3storage.Config{
			Bucket:                 u.Host,
			Region:                 firstNonEmpty(q.Get("region"), c.S3.Region),
			Endpoint:               firstNonEmpty(q.Get("endpoint"), c.S3.Endpoint),
			Prefix:                 firstNonEmpty(strings.TrimPrefix(u.Path, "/"), c.S3.Prefix),
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		}
		if v := q.Get("path_style"); v != "" {
			if s3cfg.UsePathStyle, err = strconv.ParseBool(v); err != nil {
				return storageTarget{}, fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
			}
		}
		return storageTarget{scheme: "s3", s3: s3cfg}, nil
	default:
		return storageTarget{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'file://...', 'memory://', or 's3://...')", raw)
	}
}

// FileStoreFactory returns the factory that places each content type's files according to StorageURL.
func (c *ServerConfig) FileStoreFactory() (contenthub.FileStoreFactory, error) {
	target, err := c.storage()
	if err != nil {
		return nil, err
	}

	switch target.scheme {
	case "memory":
		return func(kind, localDir string) (contenthub.FileStore, error) {
			return memorystorage.New(), nil
		}, nil
	case "s3":
		return func(kind, localDir string) (contenthub.FileStore, error) {
			cfg := target.s3
			cfg.Prefix = s3storage.NormalizePrefix(cfg.Prefix) + kind
			return s3storage.New(cfg)
		}, nil
	default:
		return func(kind, localDir string) (contenthub.FileStore, error) {
			dir := localDir
			if target.path != "" {
				dir = filepath.Join(target.path, kind)
			}
			return fsstorage.New(fsstorage.Config{BaseDir: dir})
		}, nil
	}
}

// BuildHub creates the content hub described by the configuration.
func (c *ServerConfig) BuildHub(logger *slog.Logger, sink contenthub.EventSink) (*contenthub.Hub, error) {
	factory, err := c.FileStoreFactory()
	if err != nil {
		return nil, err
	}

	opts := []contenthub.Option{contenthub.WithLogger(logger)}
	if sink != nil {
		opts = append(opts, contenthub.WithEventSink(sink))
	}

	hub, err := contenthub.NewHub(c.DataDir, factory, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build content hub: %w", err)
	}
	return hub, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
