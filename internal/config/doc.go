// Package config loads and validates instrain configuration.
//
// Configuration lives in a TOML file resolved from an explicit --config
// flag, ~/.config/instrain/config.toml, or an instrain.toml in the working
// directory, in that order. Missing files are not an error; defaults cover
// every field so a bare checkout works without any setup.
package config
