package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Provider contains credentials and endpoints for the remote encoding provider.
type Provider struct {
	Endpoint       string `toml:"endpoint"`
	UserID         string `toml:"user_id"`
	UserKey        string `toml:"user_key"`
	NotifyURL      string `toml:"notify_url"`
	SuccessStatus  string `toml:"success_status"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Storage describes the object storage bucket holding originals and derived files.
type Storage struct {
	Endpoint       string `toml:"endpoint"`
	Bucket         string `toml:"bucket"`
	PublicEndpoint string `toml:"public_endpoint"`
	Prefix         string `toml:"prefix"`
	UseSSL         bool   `toml:"use_ssl"`
	ACL            string `toml:"acl"`
}

// Rendition describes one encoded video output requested from the provider.
type Rendition struct {
	Suffix       string `toml:"suffix"`
	OutputFormat string `toml:"output_format"`
	VideoCodec   string `toml:"video_codec"`
	TwoPass      bool   `toml:"two_pass"`
}

// Output returns the provider output format, falling back to the suffix.
func (r Rendition) Output() string {
	if out := strings.TrimSpace(r.OutputFormat); out != "" {
		return out
	}
	return r.Suffix
}

// Thumbnail describes one still image requested from the provider.
type Thumbnail struct {
	Suffix string `toml:"suffix"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Encoding lists the derived artifacts produced for every root asset.
type Encoding struct {
	Renditions []Rendition `toml:"renditions"`
	Thumbnails []Thumbnail `toml:"thumbnails"`
}

// Locking selects how per-asset critical sections are serialized.
type Locking struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
	RetryMillis   int    `toml:"retry_millis"`
}

// Workflow contains operational thresholds.
type Workflow struct {
	StuckAfterMinutes int `toml:"stuck_after_minutes"`
}

// Notifications configures operator alerts for job outcomes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for encodeflow.
//
// Configuration sections by subsystem:
//   - Paths: database, lock, and log directories
//   - Provider: encoding.com credentials, endpoint, and callback URL
//   - Storage: bucket layout used for source and destination URLs
//   - Encoding: declarative renditions and thumbnails
//   - Locking: per-asset serialization backend (file or redis)
//   - Workflow: stuck job threshold
//   - Notifications: optional ntfy topic for job outcomes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Provider      Provider      `toml:"provider"`
	Storage       Storage       `toml:"storage"`
	Encoding      Encoding      `toml:"encoding"`
	Locking       Locking       `toml:"locking"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("encodeflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store, locks, and logs live in.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.LockDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the asset store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "assets.db")
}

// LockDir returns the directory holding per-asset lock files.
func (c *Config) LockDir() string {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.DataDir, "locks")
}

// ProviderTimeout bounds a single provider submission.
func (c *Config) ProviderTimeout() time.Duration {
	if c.Provider.RequestTimeout <= 0 {
		return time.Duration(defaultProviderRequestTimeout) * time.Second
	}
	return time.Duration(c.Provider.RequestTimeout) * time.Second
}

// StuckThreshold is the age after which a started job counts as stuck.
func (c *Config) StuckThreshold() time.Duration {
	if c.Workflow.StuckAfterMinutes <= 0 {
		return time.Duration(defaultStuckAfterMinutes) * time.Minute
	}
	return time.Duration(c.Workflow.StuckAfterMinutes) * time.Minute
}

// NotificationTimeout bounds a single ntfy delivery.
func (c *Config) NotificationTimeout() time.Duration {
	if c.Notifications.RequestTimeout <= 0 {
		return time.Duration(defaultNotifyRequestTimeout) * time.Second
	}
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// LockTTL bounds how long a redis lock is held if its owner disappears.
func (c *Config) LockTTL() time.Duration {
	if c.Locking.TTLSeconds <= 0 {
		return time.Duration(defaultLockTTLSeconds) * time.Second
	}
	return time.Duration(c.Locking.TTLSeconds) * time.Second
}

// LockRetry is the polling interval used while waiting on a held lock.
func (c *Config) LockRetry() time.Duration {
	if c.Locking.RetryMillis <= 0 {
		return time.Duration(defaultLockRetryMillis) * time.Millisecond
	}
	return time.Duration(c.Locking.RetryMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
