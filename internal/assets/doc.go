// Package assets owns the asset record and its encoding lifecycle.
//
// Root assets are uploaded originals; derived assets are renditions and
// thumbnails keyed by (parent, suffix). The lifecycle is a pure transition
// table (Transition) applied through Asset.Apply, and Store persists records
// in SQLite with busy retries and a versioned schema.
package assets
