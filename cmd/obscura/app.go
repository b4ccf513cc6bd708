package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"obscura/internal/core/app"
	"obscura/internal/core/config"
	"obscura/internal/core/errors"
	"obscura/internal/data/history"
	"obscura/internal/data/image"
	"obscura/internal/engine/strhide"
	"obscura/internal/shared/observability"
)

type options struct {
	ProjectPath string
	ConfigPath  string
	Watch       bool
	History     bool
	Lookup      string
	MetricsFile string
}

// run wires config, tracing and history around a single or watched run.
func run(ctx context.Context, opts options, stdout io.Writer) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return errors.Wrap(err, errors.CodeConfig, "failed to load .env")
	}

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}
	config.ApplyEnvOverrides(cfg)
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.OTLPInsecure)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	var store *history.Store
	if cfg.History.Enabled || opts.Lookup != "" {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "failed to open history"), errors.CtxPath, cfg.HistoryPath())
		}
		defer store.Close()
	}

	if opts.Lookup != "" {
		return lookupName(cfg, store, opts.Lookup, stdout)
	}

	if cfg.Project.File == "" {
		return errors.New(errors.CodeConfig, "no project file given; pass -project or set project.file")
	}

	hider, err := newStringHider(cfg)
	if err != nil {
		return err
	}
	deps := app.Dependencies{Reader: image.Codec{}, Writer: image.Codec{}, StringHider: hider}
	if store != nil {
		deps.History = store
	}

	w := &app.Watcher{
		ProjectPath: cfg.Project.File,
		Config:      cfg,
		Deps:        deps,
		OnResult: func(res *app.Result, err error) {
			if err == nil {
				fmt.Fprint(stdout, renderSummary(res))
			}
			writeMetrics(cfg.Observability.MetricsFile)
		},
	}

	if opts.Watch {
		return w.Run(ctx)
	}
	res, _, err := w.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, renderSummary(res))
	writeMetrics(cfg.Observability.MetricsFile)
	return nil
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.ProjectPath != "" {
		cfg.Project.File = opts.ProjectPath
	}
	if opts.History {
		cfg.History.Enabled = true
	}
	if opts.MetricsFile != "" {
		cfg.Observability.MetricsFile = opts.MetricsFile
	}
}

func lookupName(cfg *config.Config, store *history.Store, name string, stdout io.Writer) error {
	key := cfg.Project.Key
	if key == "" && cfg.Project.File != "" {
		proj := &config.Project{Path: cfg.Project.File}
		o, err := app.New(proj, cfg, app.Dependencies{Reader: image.Codec{}, Writer: image.Codec{}})
		if err != nil {
			return err
		}
		key = o.ProjectKey()
	}
	matches, err := store.Lookup(key, name)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "history lookup failed")
	}
	fmt.Fprint(stdout, renderMatches(name, matches))
	return nil
}

func newStringHider(cfg *config.Config) (*strhide.Hider, error) {
	patterns := make([]strhide.PatternConfig, len(cfg.Strings.Patterns))
	for i, p := range cfg.Strings.Patterns {
		patterns[i] = strhide.PatternConfig{Name: p.Name, Regex: p.Regex, Severity: p.Severity}
	}
	return strhide.New(strhide.Config{
		EntropyThreshold: cfg.Strings.EntropyThreshold,
		MinTokenLength:   cfg.Strings.MinTokenLength,
		Patterns:         patterns,
	})
}

func writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := observability.WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics textfile", "path", path, "error", err)
	}
}
