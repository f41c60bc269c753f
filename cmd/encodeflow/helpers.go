package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"encodeflow/internal/assets"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAssetIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid asset id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var statusCaser = cases.Title(language.Und)

func statusLabel(status assets.Status) string {
	if status == "" {
		return "-"
	}
	return statusCaser.String(string(status))
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func formatAge(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return now.Sub(ts).Truncate(time.Minute).String()
}

func formatDimensions(width, height *int) string {
	if width == nil || height == nil {
		return "-"
	}
	return fmt.Sprintf("%dx%d", *width, *height)
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

// assetView is the JSON shape of an asset.
type assetView struct {
	ID                 int64       `json:"id"`
	ParentID           *int64      `json:"parent_id,omitempty"`
	Suffix             string      `json:"suffix,omitempty"`
	Filename           string      `json:"filename"`
	ContentType        string      `json:"content_type"`
	Size               int64       `json:"size"`
	Width              *int        `json:"width,omitempty"`
	Height             *int        `json:"height,omitempty"`
	EncodingStatus     string      `json:"encoding_status,omitempty"`
	ExternalEncodingID string      `json:"external_encoding_id,omitempty"`
	StatusChangedAt    *time.Time  `json:"status_changed_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	Derived            []assetView `json:"derived,omitempty"`
}

func newAssetView(asset *assets.Asset) assetView {
	view := assetView{
		ID:                 asset.ID,
		ParentID:           asset.ParentID,
		Suffix:             asset.Suffix,
		Filename:           asset.Filename,
		ContentType:        asset.ContentType,
		Size:               asset.Size,
		Width:              asset.Width,
		Height:             asset.Height,
		ExternalEncodingID: asset.ExternalEncodingID,
		CreatedAt:          asset.CreatedAt,
		UpdatedAt:          asset.UpdatedAt,
	}
	if asset.IsRoot() {
		view.EncodingStatus = string(asset.EncodingStatus)
		if !asset.StatusChangedAt.IsZero() {
			changed := asset.StatusChangedAt
			view.StatusChangedAt = &changed
		}
	}
	return view
}
