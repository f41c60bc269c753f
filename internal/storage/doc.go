// Package storage resolves object keys and URLs for asset files so the
// provider can read originals and upload renditions and thumbnails directly
// into the bucket.
package storage
