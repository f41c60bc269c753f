package locks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"encodeflow/internal/config"
	"encodeflow/internal/logging"
	"encodeflow/internal/services"
)

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker serializes critical sections by key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// New builds the locker selected by locking.backend. The returned close
// function releases backend connections.
func New(cfg *config.Config, logger *slog.Logger) (Locker, func() error, error) {
	if cfg == nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "locks", "new", "config is nil", nil)
	}
	logger = logging.NewComponentLogger(logger, "locks")
	switch cfg.Locking.Backend {
	case config.LockBackendRedis:
		locker, err := NewRedisLocker(RedisOptions{
			Addr:     cfg.Locking.RedisAddr,
			Password: cfg.Locking.RedisPassword,
			DB:       cfg.Locking.RedisDB,
			TTL:      cfg.LockTTL(),
			Retry:    cfg.LockRetry(),
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return locker, locker.Close, nil
	case config.LockBackendFile, "":
		locker, err := NewFileLocker(cfg.LockDir(), cfg.LockRetry(), logger)
		if err != nil {
			return nil, nil, err
		}
		return locker, func() error { return nil }, nil
	default:
		return nil, nil, services.Wrap(services.ErrConfiguration, "locks", "new",
			fmt.Sprintf("unsupported backend %q", cfg.Locking.Backend), nil)
	}
}

// AssetKey is the lock key guarding one asset's lifecycle.
func AssetKey(id int64) string {
	return fmt.Sprintf("asset-%d", id)
}

// Keyed is an in-process mutex per key. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyed returns an empty keyed mutex.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done.
func (k *Keyed) Lock(ctx context.Context, key string) (Unlock, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, services.Wrap(services.ErrValidation, "locks", "lock", "key is required", nil)
	}

	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			k.release(key, entry)
		})
	}, nil
}

func (k *Keyed) release(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

// Len reports how many keys are currently tracked.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
