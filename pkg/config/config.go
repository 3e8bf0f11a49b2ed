package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Merge holds the merge engine settings a config file can set.
type Merge struct {
	Policy           string `koanf:"policy"`
	Concurrency      int    `koanf:"concurrency"`
	PreserveMetadata bool   `koanf:"preserve_metadata"`
	FollowSymlinks   bool   `koanf:"follow_symlinks"`
	CaseInsensitive  bool   `koanf:"case_insensitive"`
}

// Config is the full loaded configuration.
type Config struct {
	Merge Merge `koanf:"merge"`
}

// Load reads configuration in precedence order: embedded defaults, a
// .mergefiles.toml file, then MERGEFILES_* environment variables
// (MERGEFILES_MERGE_CONCURRENCY=8 sets merge.concurrency).
func Load() (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, if one exists
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// 3. Environment overrides
	// Only the first underscore separates the section from the key, so
	// MERGEFILES_MERGE_PRESERVE_METADATA maps to merge.preserve_metadata.
	err := k.Load(env.Provider("MERGEFILES_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MERGEFILES_")), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// findConfigFile looks for .mergefiles.toml in the working directory
// first, then in the XDG config dir.
func findConfigFile() string {
	candidates := []string{
		".mergefiles.toml",
		filepath.Join(xdg.ConfigHome, "mergefiles", "mergefiles.toml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
