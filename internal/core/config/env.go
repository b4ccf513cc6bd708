package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
		slog.Debug("loaded environment file", "path", p)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: OBSCURA_[SECTION]_[KEY] (e.g., OBSCURA_HISTORY_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Project.File, "OBSCURA_PROJECT_FILE")
	setEnvString(&cfg.Project.Key, "OBSCURA_PROJECT_KEY")

	setEnvBool(&cfg.History.Enabled, "OBSCURA_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "OBSCURA_HISTORY_PATH")

	setEnvDuration(&cfg.Watch.Debounce, "OBSCURA_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "OBSCURA_WATCH_MIN_INTERVAL")

	setEnvInt(&cfg.Resolver.TypeCacheSize, "OBSCURA_RESOLVER_TYPE_CACHE_SIZE")
	if val, ok := os.LookupEnv("OBSCURA_RESOLVER_SEARCH_PATHS"); ok {
		slog.Debug("applying env override", "key", "OBSCURA_RESOLVER_SEARCH_PATHS", "value", val)
		cfg.Resolver.SearchPaths = splitList(val)
	}

	setEnvString(&cfg.Observability.MetricsFile, "OBSCURA_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.OTLPEndpoint, "OBSCURA_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "OBSCURA_OBSERVABILITY_OTLP_INSECURE")
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
