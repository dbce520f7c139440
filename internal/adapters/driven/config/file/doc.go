// Package file provides the TOML-backed configuration store.
// Values are addressed with dot-notation keys ("spotify.client_id") and
// written back to disk as nested tables.
package file
