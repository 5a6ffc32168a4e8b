// Package config loads, normalizes, and validates reel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need: worker pool sizing, queue capacity, API bind
// address, ffmpeg binary locations, and history settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
