package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"obscura/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[project]
file = "obfuscar.xml"
key = "app"

[history]
enabled = true
path = "state/history.db"

[watch]
debounce = "1s"
exclude_files = ["*.tmp"]

[resolver]
type_cache_size = 128
search_paths = ["refs"]

[observability]
metrics_file = "obscura.prom"
otlp_endpoint = "localhost:4317"
otlp_insecure = true

[strings]
min_token_length = 16

[[strings.patterns]]
name = "internal-token"
regex = "^itk_[a-z0-9]{8}$"
severity = "high"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	dir := filepath.Dir(path)

	if cfg.Version != 1 || cfg.Project.Key != "app" || !cfg.History.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.MinInterval != 2*time.Second {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Resolver.TypeCacheSize != 128 {
		t.Errorf("type cache size = %d", cfg.Resolver.TypeCacheSize)
	}
	if cfg.Strings.MinTokenLength != 16 || len(cfg.Strings.Patterns) != 1 || cfg.Strings.Patterns[0].Name != "internal-token" {
		t.Errorf("strings = %+v", cfg.Strings)
	}
	if got := cfg.HistoryPath(); got != filepath.Join(dir, "state", "history.db") {
		t.Errorf("history path = %q", got)
	}
	if got := cfg.SearchPaths(); len(got) != 1 || got[0] != filepath.Join(dir, "refs") {
		t.Errorf("search paths = %v", got)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"version":    "version = 3",
		"debounce":   "[watch]\ndebounce = \"-1s\"",
		"glob":       "[watch]\nexclude_files = [\"[\"]",
		"cache size": "[resolver]\ntype_cache_size = -4",
		"endpoint":   "[observability]\notlp_endpoint = \"collector\"",
		"syntax":     "[history\n",
		"pattern":    "[[strings.patterns]]\nname = \"bad\"\nregex = \"(\"",
		"unnamed":    "[[strings.patterns]]\nregex = \"x\"",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			if !errors.IsCode(err, errors.CodeConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond || cfg.Resolver.TypeCacheSize != 4096 || cfg.History.Enabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OBSCURA_HISTORY_ENABLED", "true")
	t.Setenv("OBSCURA_WATCH_DEBOUNCE", "250ms")
	t.Setenv("OBSCURA_RESOLVER_TYPE_CACHE_SIZE", "not-a-number")
	t.Setenv("OBSCURA_RESOLVER_SEARCH_PATHS", "a"+string(os.PathListSeparator)+" b ")

	cfg := Default()
	ApplyEnvOverrides(cfg)
	if !cfg.History.Enabled || cfg.Watch.Debounce != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Resolver.TypeCacheSize != 4096 {
		t.Fatalf("invalid int override should be ignored, got %d", cfg.Resolver.TypeCacheSize)
	}
	if len(cfg.Resolver.SearchPaths) != 2 || cfg.Resolver.SearchPaths[1] != "b" {
		t.Fatalf("search paths = %v", cfg.Resolver.SearchPaths)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("OBSCURA_PROJECT_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OBSCURA_PROJECT_KEY", "")
	os.Unsetenv("OBSCURA_PROJECT_KEY")

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := Default()
	ApplyEnvOverrides(cfg)
	if cfg.Project.Key != "from-dotenv" {
		t.Fatalf("project key = %q", cfg.Project.Key)
	}
}
