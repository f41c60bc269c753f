package config

const (
	defaultConfigPath             = "~/.config/encodeflow/config.toml"
	defaultDataDir                = "~/.local/share/encodeflow"
	defaultLogDir                 = "~/.local/share/encodeflow/logs"
	defaultProviderEndpoint       = "https://manage.encoding.com/"
	defaultSuccessStatus          = "Finished"
	defaultProviderRequestTimeout = 30
	defaultStorageACL             = "public-read"
	defaultLockBackend            = LockBackendFile
	defaultLockTTLSeconds         = 120
	defaultLockRetryMillis        = 50
	defaultStuckAfterMinutes      = 240
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Lock backends accepted by locking.backend.
const (
	LockBackendFile  = "file"
	LockBackendRedis = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Provider: Provider{
			Endpoint:       defaultProviderEndpoint,
			SuccessStatus:  defaultSuccessStatus,
			RequestTimeout: defaultProviderRequestTimeout,
		},
		Storage: Storage{
			ACL: defaultStorageACL,
		},
		Locking: Locking{
			Backend:     defaultLockBackend,
			TTLSeconds:  defaultLockTTLSeconds,
			RetryMillis: defaultLockRetryMillis,
		},
		Workflow: Workflow{
			StuckAfterMinutes: defaultStuckAfterMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
