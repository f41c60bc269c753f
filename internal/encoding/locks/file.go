package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"encodeflow/internal/logging"
	"encodeflow/internal/services"
)

// FileLocker serializes across processes sharing a data directory with
// advisory file locks, and within the process with a Keyed mutex.
type FileLocker struct {
	dir    string
	retry  time.Duration
	local  *Keyed
	logger *slog.Logger
}

// NewFileLocker creates lock files under dir, polling every retry while held elsewhere.
func NewFileLocker(dir string, retry time.Duration, logger *slog.Logger) (*FileLocker, error) {
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "locks", "file", "lock directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileLocker{dir: dir, retry: retry, local: NewKeyed(), logger: logger}, nil
}

// Path returns the lock file used for key.
func (f *FileLocker) Path(key string) string {
	return filepath.Join(f.dir, key+".lock")
}

func (f *FileLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	releaseLocal, err := f.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	lock := flock.New(f.Path(key))
	ok, err := lock.TryLockContext(ctx, f.retry)
	if err != nil || !ok {
		releaseLocal()
		if err == nil {
			err = errors.New("lock not acquired")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransport, "locks", "file", "acquire "+f.Path(key), err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := lock.Unlock(); err != nil {
				logging.WarnWithContext(f.logger, "failed to release file lock", "lock_release_failed",
					logging.String("path", f.Path(key)),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "remove the stale lock file if no encodeflow process is running"),
				)
			}
			releaseLocal()
		})
	}, nil
}
