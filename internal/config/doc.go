// Package config loads, normalizes, and validates vcxenc configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files and honours environment
// overrides such as VCXENC_FFMPEG. The Config type centralizes every knob the
// CLI needs so tool binaries, encode defaults and the run ledger are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
