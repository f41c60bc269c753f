package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"encodeflow/internal/logging"
	"encodeflow/internal/services"
)

const redisKeyPrefix = "encodeflow:lock:"

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions configures a RedisLocker.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Retry    time.Duration
	Logger   *slog.Logger
}

// RedisLocker serializes across hosts with SET NX PX keys. A crashed holder's
// lock expires after TTL.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	local  *Keyed
	logger *slog.Logger
}

// NewRedisLocker connects to redis at opts.Addr and verifies it with PING.
func NewRedisLocker(opts RedisOptions) (*RedisLocker, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, services.Wrap(services.ErrConfiguration, "locks", "redis", "redis addr is required", nil)
	}
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   opts.Password,
		DB:         opts.DB,
		MaxRetries: 2,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrTransport, "locks", "redis", "ping "+addr, err)
	}
	return newRedisLocker(client, opts), nil
}

func newRedisLocker(client *redis.Client, opts RedisOptions) *RedisLocker {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	retry := opts.Retry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisLocker{client: client, ttl: ttl, retry: retry, local: NewKeyed(), logger: logger}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	releaseLocal, err := r.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			releaseLocal()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, services.Wrap(services.ErrTransport, "locks", "redis", "acquire "+redisKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			releaseLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
				logging.WarnWithContext(r.logger, "failed to release redis lock", "lock_release_failed",
					logging.String("key", redisKey),
					logging.Error(err),
					logging.String(logging.FieldImpact, fmt.Sprintf("lock expires after %s", r.ttl)),
				)
			}
			releaseLocal()
		})
	}, nil
}

// Close closes the redis client.
func (r *RedisLocker) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
