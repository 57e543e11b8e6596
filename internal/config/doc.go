// Package config loads, normalizes, and validates Cliplift's TOML
// configuration. Load falls back to built-in defaults when no config file
// exists, expands ~ in path fields, and rejects configurations whose scoring
// weights or escalation thresholds are inconsistent.
package config
