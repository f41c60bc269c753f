package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateLocking(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		if err := validateHTTPURL("notifications.ntfy_topic", c.Notifications.NtfyTopic); err != nil {
			return err
		}
	}
	if c.Workflow.StuckAfterMinutes <= 0 {
		return errors.New("workflow.stuck_after_minutes must be positive")
	}
	return nil
}

func (c *Config) validateProvider() error {
	if c.Provider.UserID == "" || c.Provider.UserKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("provider.user_id and provider.user_key are required. Set ENCODING_USER_ID/ENCODING_USER_KEY or edit %s (create with 'encodeflow config init')", defaultPath)
	}
	if err := validateHTTPURL("provider.endpoint", c.Provider.Endpoint); err != nil {
		return err
	}
	if c.Provider.NotifyURL == "" {
		return errors.New("provider.notify_url must be set")
	}
	if err := validateHTTPURL("provider.notify_url", c.Provider.NotifyURL); err != nil {
		return err
	}
	if c.Provider.RequestTimeout <= 0 {
		return errors.New("provider.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set")
	}
	if strings.ContainsAny(c.Storage.Bucket, "/ ") {
		return fmt.Errorf("storage.bucket %q must not contain slashes or spaces", c.Storage.Bucket)
	}
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set")
	}
	if c.Storage.PublicEndpoint != "" {
		if err := validateHTTPURL("storage.public_endpoint", c.Storage.PublicEndpoint); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateEncoding() error {
	seen := make(map[string]string, len(c.Encoding.Renditions)+len(c.Encoding.Thumbnails))
	claim := func(kind, suffix string) error {
		if suffix == "" {
			return fmt.Errorf("encoding.%s: suffix must be set", kind)
		}
		if strings.ContainsAny(suffix, "/\\. ") {
			return fmt.Errorf("encoding.%s: suffix %q must not contain path separators, dots, or spaces", kind, suffix)
		}
		if prev, ok := seen[suffix]; ok {
			return fmt.Errorf("encoding.%s: suffix %q already used by encoding.%s", kind, suffix, prev)
		}
		seen[suffix] = kind
		return nil
	}
	for _, r := range c.Encoding.Renditions {
		if err := claim("renditions", r.Suffix); err != nil {
			return err
		}
	}
	for _, t := range c.Encoding.Thumbnails {
		if err := claim("thumbnails", t.Suffix); err != nil {
			return err
		}
		if t.Width <= 0 || t.Height <= 0 {
			return fmt.Errorf("encoding.thumbnails: %q width and height must be positive", t.Suffix)
		}
	}
	return nil
}

func (c *Config) validateLocking() error {
	switch c.Locking.Backend {
	case LockBackendFile:
	case LockBackendRedis:
		if c.Locking.RedisAddr == "" {
			return errors.New("locking.redis_addr must be set when locking.backend is redis")
		}
	default:
		return fmt.Errorf("locking.backend: unsupported value %q (want file or redis)", c.Locking.Backend)
	}
	if c.Locking.RedisDB < 0 {
		return errors.New("locking.redis_db must be >= 0")
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}
