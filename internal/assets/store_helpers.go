package assets

import (
	"database/sql"
	"fmt"
	"time"
)

const assetColumns = "id, parent_id, suffix, filename, content_type, size, width, height, encoding_status, external_encoding_id, status_changed_at, created_at, updated_at"

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*Asset, error) {
	var (
		id               int64
		parentID         sql.NullInt64
		suffix           sql.NullString
		filename         string
		contentType      sql.NullString
		size             sql.NullInt64
		width            sql.NullInt64
		height           sql.NullInt64
		statusStr        string
		externalID       sql.NullString
		statusChangedRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&parentID,
		&suffix,
		&filename,
		&contentType,
		&size,
		&width,
		&height,
		&statusStr,
		&externalID,
		&statusChangedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	status, err := ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("asset %d: %w", id, err)
	}

	asset := &Asset{
		ID:                 id,
		Suffix:             suffix.String,
		Filename:           filename,
		ContentType:        contentType.String,
		Size:               size.Int64,
		EncodingStatus:     status,
		ExternalEncodingID: externalID.String,
		StatusChangedAt:    parseTimeString(statusChangedRaw),
		CreatedAt:          parseTimeString(createdRaw),
		UpdatedAt:          parseTimeString(updatedRaw),
	}
	if parentID.Valid {
		parent := parentID.Int64
		asset.ParentID = &parent
	}
	if width.Valid {
		w := int(width.Int64)
		asset.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		asset.Height = &h
	}
	return asset, nil
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(raw sql.NullString) time.Time {
	if !raw.Valid || raw.String == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw.String); err == nil {
		return ts
	}
	return time.Time{}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
