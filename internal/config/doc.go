// Package config loads, normalizes, and validates nmrupload configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as ACDATA_USERNAME and
// ACDATA_SESSION. Command-line flags are layered on top by the CLI after Load
// returns, so every command sees the same sanitized server URL, log settings
// and upload defaults.
package config
