package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"encodeflow/internal/config"
)

// Store persists root uploads and their renditions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// ErrDatabaseBusy reports that an asset write kept colliding with another
// writer, typically a concurrent CLI run or callback handler, until the retry
// budget ran out.
var ErrDatabaseBusy = errors.New("asset database busy")

const (
	sqliteBusyCode    = 5
	writeAttempts     = 5
	writeBackoffStart = 10 * time.Millisecond
	writeBackoffLimit = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryAssetWrite runs write until it succeeds, fails for a reason other than
// lock contention, or exhausts writeAttempts. Exhaustion is reported as
// ErrDatabaseBusy labelled with op.
func retryAssetWrite(ctx context.Context, op string, write func() error) error {
	delay := writeBackoffStart
	for attempt := 1; ; attempt++ {
		err := write()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt == writeAttempts {
			return fmt.Errorf("%s: %w after %d attempts: %v", op, ErrDatabaseBusy, attempt, err)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		delay = min(delay*2, writeBackoffLimit)
	}
}

// writeAsset executes an INSERT or UPDATE against the assets table under
// retryAssetWrite.
func (s *Store) writeAsset(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryAssetWrite(ctx, op, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Open opens the asset and rendition database at cfg.DatabasePath(), creating
// the data directory and schema on first use.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens an asset database file directly. WAL mode lets callback
// handling read while another process writes. A database written by a newer
// schema version is rejected with ErrSchemaMismatch.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open asset db %s: %w", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the asset database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
