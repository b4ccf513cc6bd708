package config

import (
	"net"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"obscura/internal/core/errors"
)

func (c *Config) Validate() error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateWatch,
		validateResolver,
		validateObservability,
		validateStrings,
	} {
		if err := check(c); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.Newf(errors.CodeConfig, "unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return errors.Newf(errors.CodeConfig, "watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.MinInterval < 0 {
		return errors.Newf(errors.CodeConfig, "watch.min_interval must not be negative, got %s", cfg.Watch.MinInterval)
	}
	for i, pattern := range cfg.Watch.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeConfig, "invalid watch.exclude_files pattern"), "index", i)
		}
	}
	return nil
}

func validateResolver(cfg *Config) error {
	if cfg.Resolver.TypeCacheSize < 0 {
		return errors.Newf(errors.CodeConfig, "resolver.type_cache_size must be positive, got %d", cfg.Resolver.TypeCacheSize)
	}
	for i, p := range cfg.Resolver.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return errors.Newf(errors.CodeConfig, "resolver.search_paths[%d] must not be empty", i)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	endpoint := strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	if endpoint == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(endpoint); err != nil {
		return errors.Wrap(err, errors.CodeConfig, "observability.otlp_endpoint must be host:port")
	}
	return nil
}

func validateStrings(cfg *Config) error {
	if cfg.Strings.EntropyThreshold < 0 {
		return errors.Newf(errors.CodeConfig, "strings.entropy_threshold must not be negative, got %v", cfg.Strings.EntropyThreshold)
	}
	if cfg.Strings.MinTokenLength < 0 {
		return errors.Newf(errors.CodeConfig, "strings.min_token_length must not be negative, got %d", cfg.Strings.MinTokenLength)
	}
	for i, p := range cfg.Strings.Patterns {
		if strings.TrimSpace(p.Name) == "" {
			return errors.Newf(errors.CodeConfig, "strings.patterns[%d].name must not be empty", i)
		}
		if _, err := regexp.Compile(p.Regex); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeConfig, "invalid strings pattern"), "pattern", p.Name)
		}
	}
	return nil
}
