package testsupport

import (
	"path/filepath"
	"testing"

	"encodeflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config seeded with unique temp directories per test.
// The encoding section requests one mobile rendition and one small thumbnail.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Provider.UserID = "test-user"
	cfgVal.Provider.UserKey = "test-key"
	cfgVal.Provider.NotifyURL = "https://app.example.com/encoding/callback"
	cfgVal.Storage.Endpoint = "s3.amazonaws.com"
	cfgVal.Storage.Bucket = "test-bucket"
	cfgVal.Encoding.Renditions = []config.Rendition{{Suffix: "mobile", OutputFormat: "mp4"}}
	cfgVal.Encoding.Thumbnails = []config.Thumbnail{{Suffix: "small", Width: 120, Height: 90}}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithProviderEndpoint points the provider client at a test server.
func WithProviderEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.Endpoint = endpoint
	}
}

// WithRenditions replaces the configured renditions.
func WithRenditions(renditions ...config.Rendition) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Renditions = renditions
	}
}

// WithThumbnails replaces the configured thumbnails.
func WithThumbnails(thumbnails ...config.Thumbnail) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoding.Thumbnails = thumbnails
	}
}

// WithRedisLocking switches the lock backend to redis at addr.
func WithRedisLocking(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Locking.Backend = config.LockBackendRedis
		b.cfg.Locking.RedisAddr = addr
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
