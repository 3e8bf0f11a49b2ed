// Package config loads mergefiles configuration.
//
// Precedence, lowest to highest: embedded defaults, a .mergefiles.toml
// file (current directory, then the XDG config dir), then MERGEFILES_*
// environment variables.
package config
