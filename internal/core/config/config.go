// Package config loads the two inputs of a run: the tool settings file
// (obscura.toml) and the XML obfuscation project.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"obscura/internal/core/errors"
)

// DefaultFile is looked up next to the project file when -config is not given.
const DefaultFile = "obscura.toml"

type Config struct {
	Version       int           `toml:"version"`
	Project       ProjectRef    `toml:"project"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Resolver      Resolver      `toml:"resolver"`
	Observability Observability `toml:"observability"`
	Strings       Strings       `toml:"strings"`

	// Dir is the directory of the loaded file; relative paths resolve against it.
	Dir string `toml:"-"`
}

type ProjectRef struct {
	File string `toml:"file"`
	// Key groups history runs; defaults to the project file's base name.
	Key string `toml:"key"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// MinInterval spaces out reruns after the debounce has fired.
	MinInterval  time.Duration `toml:"min_interval"`
	ExcludeFiles []string      `toml:"exclude_files"`
}

type Resolver struct {
	TypeCacheSize int      `toml:"type_cache_size"`
	SearchPaths   []string `toml:"search_paths"`
}

type Observability struct {
	MetricsFile  string `toml:"metrics_file"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
}

// Strings tunes the secret detector run while hiding string literals.
type Strings struct {
	EntropyThreshold float64         `toml:"entropy_threshold"`
	MinTokenLength   int             `toml:"min_token_length"`
	Patterns         []StringPattern `toml:"patterns"`
}

type StringPattern struct {
	Name     string `toml:"name"`
	Regex    string `toml:"regex"`
	Severity string `toml:"severity"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "unable to read config file"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "invalid config file"), errors.CtxPath, path)
	}
	cfg.Dir = filepath.Dir(path)

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.Dir = filepath.Dir(path)
		return cfg, nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = filepath.Join(".obscura", "history.db")
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = 2 * time.Second
	}
	if cfg.Resolver.TypeCacheSize == 0 {
		cfg.Resolver.TypeCacheSize = 4096
	}
}

// HistoryPath returns the history database path resolved against Dir.
func (c *Config) HistoryPath() string {
	return ResolveRelative(c.Dir, c.History.Path)
}

// SearchPaths returns the extra dependency directories resolved against Dir.
func (c *Config) SearchPaths() []string {
	out := make([]string, 0, len(c.Resolver.SearchPaths))
	for _, p := range c.Resolver.SearchPaths {
		out = append(out, ResolveRelative(c.Dir, p))
	}
	return out
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	if base == "" {
		base = "."
	}
	return filepath.Clean(filepath.Join(base, raw))
}
