package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"encodeflow/internal/services"
)

// NewRoot describes an uploaded original to record.
type NewRoot struct {
	Filename    string
	ContentType string
	Size        int64
	Width       *int
	Height      *int
}

// CreateRoot inserts a root asset in the init state.
func (s *Store) CreateRoot(ctx context.Context, in NewRoot) (*Asset, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, services.Wrap(services.ErrValidation, "assets", "create", "filename is required", nil)
	}
	if in.Size < 0 {
		return nil, services.Wrap(services.ErrValidation, "assets", "create", "size must not be negative", nil)
	}
	timestamp := formatTime(time.Now())

	res, err := s.writeAsset(
		ctx,
		"create",
		`INSERT INTO assets (
            parent_id, suffix, filename, content_type, size, width, height,
            encoding_status, external_encoding_id, status_changed_at, created_at, updated_at
        ) VALUES (NULL, NULL, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
		filename,
		strings.TrimSpace(in.ContentType),
		in.Size,
		nullableInt(in.Width),
		nullableInt(in.Height),
		StatusInit,
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an asset by identifier. A missing row yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// FindByExternalEncodingID returns the root asset tracking the given provider job.
func (s *Store) FindByExternalEncodingID(ctx context.Context, externalID string) (*Asset, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+assetColumns+` FROM assets WHERE external_encoding_id = ? AND parent_id IS NULL ORDER BY id LIMIT 1`,
		externalID,
	)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by external encoding id: %w", err)
	}
	return asset, nil
}

// FindOrInitChild returns the derived asset for (parentID, suffix), or an
// unsaved asset carrying that identity when none exists yet.
func (s *Store) FindOrInitChild(ctx context.Context, parentID int64, suffix string) (*Asset, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+assetColumns+` FROM assets WHERE parent_id = ? AND suffix = ?`,
		parentID,
		suffix,
	)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		parent := parentID
		return &Asset{ParentID: &parent, Suffix: suffix, EncodingStatus: StatusInit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find child asset: %w", err)
	}
	return asset, nil
}

// Children lists derived assets of a root ordered by id.
func (s *Store) Children(ctx context.Context, parentID int64) ([]*Asset, error) {
	return s.query(ctx, "list children",
		`SELECT `+assetColumns+` FROM assets WHERE parent_id = ? ORDER BY id`, parentID)
}

// ListRoots lists root assets, optionally filtered by status.
func (s *Store) ListRoots(ctx context.Context, statuses ...Status) ([]*Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE parent_id IS NULL`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` AND encoding_status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id`
	return s.query(ctx, "list roots", query, args...)
}

// StuckStarted lists roots that entered started before cutoff and never left it.
func (s *Store) StuckStarted(ctx context.Context, cutoff time.Time) ([]*Asset, error) {
	return s.query(ctx, "list stuck",
		`SELECT `+assetColumns+` FROM assets
         WHERE parent_id IS NULL AND encoding_status = ? AND status_changed_at IS NOT NULL AND status_changed_at < ?
         ORDER BY status_changed_at`,
		StatusStarted,
		formatTime(cutoff),
	)
}

// Save inserts an unsaved asset or updates an existing one. Timestamps are
// refreshed; CreatedAt is set on first insert.
func (s *Store) Save(ctx context.Context, asset *Asset) error {
	if asset == nil {
		return errors.New("asset is nil")
	}
	if strings.TrimSpace(asset.Filename) == "" {
		return services.Wrap(services.ErrValidation, "assets", "save", "filename is required", nil)
	}
	if asset.EncodingStatus == "" {
		asset.EncodingStatus = StatusInit
	}
	if !asset.EncodingStatus.Valid() {
		return services.Wrap(services.ErrValidation, "assets", "save", fmt.Sprintf("unknown status %q", asset.EncodingStatus), nil)
	}
	if asset.ParentID != nil && strings.TrimSpace(asset.Suffix) == "" {
		return services.Wrap(services.ErrValidation, "assets", "save", "derived asset requires a suffix", nil)
	}

	now := time.Now().UTC()
	if asset.ID == 0 {
		return s.insert(ctx, asset, now)
	}

	asset.UpdatedAt = now
	res, err := s.writeAsset(
		ctx,
		"save",
		`UPDATE assets SET
            parent_id = ?, suffix = ?, filename = ?, content_type = ?, size = ?, width = ?, height = ?,
            encoding_status = ?, external_encoding_id = ?, status_changed_at = ?, updated_at = ?
        WHERE id = ?`,
		nullableInt64(asset.ParentID),
		nullableString(asset.Suffix),
		asset.Filename,
		asset.ContentType,
		asset.Size,
		nullableInt(asset.Width),
		nullableInt(asset.Height),
		asset.EncodingStatus,
		nullableString(asset.ExternalEncodingID),
		nullableTime(asset.StatusChangedAt),
		formatTime(asset.UpdatedAt),
		asset.ID,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "assets", "save", fmt.Sprintf("asset %d does not exist", asset.ID), nil)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, asset *Asset, now time.Time) error {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now
	res, err := s.writeAsset(
		ctx,
		"insert",
		`INSERT INTO assets (
            parent_id, suffix, filename, content_type, size, width, height,
            encoding_status, external_encoding_id, status_changed_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(asset.ParentID),
		nullableString(asset.Suffix),
		asset.Filename,
		asset.ContentType,
		asset.Size,
		nullableInt(asset.Width),
		nullableInt(asset.Height),
		asset.EncodingStatus,
		nullableString(asset.ExternalEncodingID),
		nullableTime(asset.StatusChangedAt),
		formatTime(asset.CreatedAt),
		formatTime(asset.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	asset.ID = id
	return nil
}

func (s *Store) query(ctx context.Context, operation, query string, args ...any) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	var out []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		out = append(out, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return out, nil
}
