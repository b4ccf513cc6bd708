package app

import (
	"context"
	"log/slog"
	"path/filepath"

	"obscura/internal/core/config"
	"obscura/internal/core/watcher"
	"obscura/internal/shared/util"
)

// Watcher reruns a project whenever its project file, key file or module
// inputs change.
type Watcher struct {
	ProjectPath string
	Config      *config.Config
	Deps        Dependencies
	// OnResult is called after every run, successful or not.
	OnResult func(*Result, error)
}

// RunOnce loads the project file fresh and runs it. Metadata is mutated by
// a run, so nothing is reused between calls.
func (w *Watcher) RunOnce(ctx context.Context) (*Result, *config.Project, error) {
	proj, err := config.LoadProject(w.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	o, err := New(proj, w.Config, w.Deps)
	if err != nil {
		return nil, proj, err
	}
	res, err := o.Run(ctx)
	return res, proj, err
}

// Run performs an initial run, then blocks rerunning on change until ctx is
// done. Reruns are debounced by the file watcher and spaced out by
// Watch.MinInterval.
func (w *Watcher) Run(ctx context.Context) error {
	cfg := w.Config
	if cfg == nil {
		cfg = config.Default()
		w.Config = cfg
	}

	res, proj, err := w.RunOnce(ctx)
	w.report(res, err)
	if proj == nil {
		return err
	}

	limiter := util.NewIntervalLimiter(cfg.Watch.MinInterval)
	limiter.Allow(1)

	trigger := make(chan []string, 1)
	fw, err := watcher.NewWatcher(cfg.Watch.Debounce, []string{proj.Settings.OutPath}, cfg.Watch.ExcludeFiles, func(paths []string) {
		select {
		case trigger <- paths:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer fw.Close()

	fw.SetTargets(watchTargets(w.ProjectPath, proj))
	if err := fw.Watch(watchDirs(w.ProjectPath, proj)); err != nil {
		return err
	}
	slog.Info("watching project inputs", "project", w.ProjectPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-trigger:
			if err := limiter.Wait(ctx, 1); err != nil {
				return nil
			}
			slog.Info("inputs changed, rerunning", "files", len(paths))
			res, next, err := w.RunOnce(ctx)
			w.report(res, err)
			if next != nil {
				fw.SetTargets(watchTargets(w.ProjectPath, next))
			}
		}
	}
}

func (w *Watcher) report(res *Result, err error) {
	if err != nil {
		slog.Error("run failed", "project", w.ProjectPath, "error", err)
	}
	if w.OnResult != nil {
		w.OnResult(res, err)
	}
}

func watchTargets(projectPath string, proj *config.Project) []string {
	targets := []string{projectPath}
	if proj.Settings.KeyFile != "" {
		targets = append(targets, proj.Settings.KeyFile)
	}
	for _, m := range proj.Modules {
		targets = append(targets, m.File)
	}
	return targets
}

func watchDirs(projectPath string, proj *config.Project) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, target := range watchTargets(projectPath, proj) {
		dir := filepath.Dir(target)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
