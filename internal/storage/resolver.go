package storage

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"encodeflow/internal/assets"
	"encodeflow/internal/config"
	"encodeflow/internal/services"
)

// Resolver maps assets onto object keys and the public and writable URLs the
// provider reads from and uploads to.
type Resolver struct {
	endpoint       string
	bucket         string
	publicEndpoint string
	prefix         string
	acl            string
	scheme         string
}

// NewResolver builds a resolver from the storage section of the config.
func NewResolver(cfg config.Storage) *Resolver {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &Resolver{
		endpoint:       strings.TrimSpace(cfg.Endpoint),
		bucket:         strings.TrimSpace(cfg.Bucket),
		publicEndpoint: strings.TrimRight(strings.TrimSpace(cfg.PublicEndpoint), "/"),
		prefix:         strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		acl:            strings.TrimSpace(cfg.ACL),
		scheme:         scheme,
	}
}

// Key returns the object key for filename stored under the root asset.
// Keys are partitioned by zero-padded id: 42 -> 0000/0042.
func (r *Resolver) Key(rootID int64, filename string) string {
	parts := make([]string, 0, 4)
	if r.prefix != "" {
		parts = append(parts, r.prefix)
	}
	parts = append(parts, Partition(rootID)...)
	parts = append(parts, SanitizeFilename(filename))
	return path.Join(parts...)
}

// SourceURL is the publicly readable location of a root asset's original file.
func (r *Resolver) SourceURL(asset *assets.Asset) (string, error) {
	if asset == nil || asset.ID <= 0 {
		return "", services.Wrap(services.ErrValidation, "storage", "source url", "asset must be persisted", nil)
	}
	if !asset.IsRoot() {
		return "", services.Wrap(services.ErrValidation, "storage", "source url", fmt.Sprintf("asset %d is derived", asset.ID), nil)
	}
	key := r.Key(asset.ID, asset.Filename)
	return r.baseURL(r.publicEndpoint) + "/" + escapeKey(key), nil
}

// DestinationURL is the write-enabled, publicly readable target for a
// derived file of root.
func (r *Resolver) DestinationURL(root *assets.Asset, filename string) (string, error) {
	if root == nil || root.ID <= 0 {
		return "", services.Wrap(services.ErrValidation, "storage", "destination url", "root asset must be persisted", nil)
	}
	if strings.TrimSpace(filename) == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "destination url", "filename is required", nil)
	}
	target := r.baseURL("") + "/" + escapeKey(r.Key(root.ID, filename))
	if r.acl != "" {
		target += "?acl=" + url.QueryEscape(r.acl)
	}
	return target, nil
}

// Destinations resolves one destination per configured rendition and thumbnail suffix.
func (r *Resolver) Destinations(root *assets.Asset, enc config.Encoding) (map[string]string, error) {
	out := make(map[string]string, len(enc.Renditions)+len(enc.Thumbnails))
	for _, rendition := range enc.Renditions {
		target, err := r.DestinationURL(root, assets.RenditionFilename(root.Filename, rendition.Suffix))
		if err != nil {
			return nil, err
		}
		out[rendition.Suffix] = target
	}
	for _, thumb := range enc.Thumbnails {
		target, err := r.DestinationURL(root, assets.ThumbnailFilename(root.Filename, thumb.Suffix))
		if err != nil {
			return nil, err
		}
		out[thumb.Suffix] = target
	}
	return out, nil
}

func (r *Resolver) baseURL(override string) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf("%s://%s.%s", r.scheme, r.bucket, r.endpoint)
}

// Partition splits an id into two four-digit directory segments.
func Partition(id int64) []string {
	padded := fmt.Sprintf("%08d", id)
	if len(padded) > 8 {
		return []string{padded[:len(padded)-4], padded[len(padded)-4:]}
	}
	return []string{padded[:4], padded[4:]}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename folds diacritics to ASCII, drops any directory part, and
// replaces the remaining unsafe characters with underscores.
func SanitizeFilename(filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		name = ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err == nil {
		name = folded
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" {
		return "unnamed"
	}
	return name
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
