package assets

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"encodeflow/internal/services"
)

// Status represents the encoding lifecycle state of a root asset.
type Status string

const (
	StatusInit    Status = "init"
	StatusStarted Status = "started"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

var allStatuses = []Status{StatusInit, StatusStarted, StatusDone, StatusError}

// AllStatuses returns every lifecycle state in declaration order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusInit, StatusStarted, StatusDone, StatusError:
		return true
	default:
		return false
	}
}

// ParseStatus converts a stored or user supplied value into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", services.Wrap(services.ErrValidation, "assets", "parse status", fmt.Sprintf("unknown status %q", value), nil)
	}
	return status, nil
}

// Asset is an uploaded original (root) or one of its derived renditions and thumbnails.
type Asset struct {
	ID                 int64
	ParentID           *int64
	Suffix             string
	Filename           string
	ContentType        string
	Size               int64
	Width              *int
	Height             *int
	EncodingStatus     Status
	ExternalEncodingID string
	StatusChangedAt    time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsRoot reports whether the asset is an original upload.
func (a *Asset) IsRoot() bool {
	return a != nil && a.ParentID == nil
}

// IsVideo reports whether the asset's content type is a recognised video type.
func (a *Asset) IsVideo() bool {
	return a != nil && IsVideoContentType(a.ContentType)
}

// Clone returns a deep copy so callers can mutate without aliasing pointer fields.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	out := *a
	if a.ParentID != nil {
		parent := *a.ParentID
		out.ParentID = &parent
	}
	if a.Width != nil {
		w := *a.Width
		out.Width = &w
	}
	if a.Height != nil {
		h := *a.Height
		out.Height = &h
	}
	return &out
}

var videoContentTypes = map[string]struct{}{
	"video/3gpp":             {},
	"video/3gpp2":            {},
	"video/mp4":              {},
	"video/mpeg":             {},
	"video/mj2":              {},
	"video/ogg":              {},
	"video/quicktime":        {},
	"video/vnd.objectvideo":  {},
	"video/x-flv":            {},
	"application/vnd.ms-asf": {},
	"video/x-ms-asf":         {},
	"video/x-ms-wmv":         {},
	"video/x-msvideo":        {},
}

// IsVideoContentType reports whether contentType names a video the provider accepts.
// Parameters such as "; codecs=..." are ignored and the comparison is case-insensitive.
func IsVideoContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	_, ok := videoContentTypes[ct]
	return ok
}

const (
	// VideoContentType is recorded on every derived rendition.
	VideoContentType = "video/mp4"
	// ImageContentType is recorded on every derived thumbnail.
	ImageContentType = "image/jpeg"

	videoExtension = ".mp4"
	imageExtension = ".jpg"
)

var trailingExtension = regexp.MustCompile(`\.\w+$`)

// BaseName strips the final word-character extension from filename.
func BaseName(filename string) string {
	return trailingExtension.ReplaceAllString(path.Base(filename), "")
}

// RenditionFilename names a derived video: clip.mov + mobile -> clip_mobile.mp4.
func RenditionFilename(rootFilename, suffix string) string {
	return BaseName(rootFilename) + "_" + suffix + videoExtension
}

// ThumbnailFilename names a derived still: clip.mov + small -> clip_small.jpg.
func ThumbnailFilename(rootFilename, suffix string) string {
	return BaseName(rootFilename) + "_" + suffix + imageExtension
}
