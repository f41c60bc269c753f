// Package config loads, normalizes, and validates encodeflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ENCODING_USER_ID and ENCODING_USER_KEY. The declarative rendition and
// thumbnail lists live here so the request builder and materializer receive
// them as an explicit value rather than looking them up globally.
package config
