package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeStorage()
	c.normalizeEncoding()
	c.normalizeLocking()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.Endpoint = strings.TrimSpace(c.Provider.Endpoint)
	if c.Provider.Endpoint == "" {
		c.Provider.Endpoint = defaultProviderEndpoint
	}
	c.Provider.UserID = strings.TrimSpace(c.Provider.UserID)
	if c.Provider.UserID == "" {
		if value, ok := os.LookupEnv("ENCODING_USER_ID"); ok {
			c.Provider.UserID = strings.TrimSpace(value)
		}
	}
	c.Provider.UserKey = strings.TrimSpace(c.Provider.UserKey)
	if c.Provider.UserKey == "" {
		if value, ok := os.LookupEnv("ENCODING_USER_KEY"); ok {
			c.Provider.UserKey = strings.TrimSpace(value)
		}
	}
	c.Provider.NotifyURL = strings.TrimSpace(c.Provider.NotifyURL)
	c.Provider.SuccessStatus = strings.TrimSpace(c.Provider.SuccessStatus)
	if c.Provider.SuccessStatus == "" {
		c.Provider.SuccessStatus = defaultSuccessStatus
	}
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = defaultProviderRequestTimeout
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.PublicEndpoint = strings.TrimRight(strings.TrimSpace(c.Storage.PublicEndpoint), "/")
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.ACL = strings.TrimSpace(c.Storage.ACL)
	if c.Storage.ACL == "" {
		c.Storage.ACL = defaultStorageACL
	}
}

func (c *Config) normalizeEncoding() {
	for i := range c.Encoding.Renditions {
		r := &c.Encoding.Renditions[i]
		r.Suffix = strings.TrimSpace(r.Suffix)
		r.OutputFormat = strings.TrimSpace(r.OutputFormat)
		r.VideoCodec = strings.TrimSpace(r.VideoCodec)
	}
	for i := range c.Encoding.Thumbnails {
		c.Encoding.Thumbnails[i].Suffix = strings.TrimSpace(c.Encoding.Thumbnails[i].Suffix)
	}
}

func (c *Config) normalizeLocking() {
	c.Locking.Backend = strings.ToLower(strings.TrimSpace(c.Locking.Backend))
	if c.Locking.Backend == "" {
		c.Locking.Backend = defaultLockBackend
	}
	c.Locking.RedisAddr = strings.TrimSpace(c.Locking.RedisAddr)
	if c.Locking.RedisPassword == "" {
		if value, ok := os.LookupEnv("ENCODEFLOW_REDIS_PASSWORD"); ok {
			c.Locking.RedisPassword = value
		}
	}
	if c.Locking.TTLSeconds <= 0 {
		c.Locking.TTLSeconds = defaultLockTTLSeconds
	}
	if c.Locking.RetryMillis <= 0 {
		c.Locking.RetryMillis = defaultLockRetryMillis
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
