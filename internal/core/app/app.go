// Package app drives one obfuscation run: load the project, plan and apply
// the renames, then write assemblies, the mapping report and history.
package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"obscura/internal/core/config"
	"obscura/internal/core/errors"
	"obscura/internal/core/ports"
	"obscura/internal/engine/closure"
	"obscura/internal/engine/mapping"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
	"obscura/internal/engine/rename"
	"obscura/internal/shared/observability"
)

// Dependencies are the collaborators of a run. Reader and Writer are
// required; the rest are optional.
type Dependencies struct {
	Reader      metadata.Reader
	Writer      metadata.Writer
	History     ports.HistoryStore
	StringHider ports.StringHider
	// Preloaded assemblies are registered as dependencies before resolution,
	// so frameworks need not exist on disk.
	Preloaded []*metadata.Assembly
}

// Obfuscator owns the state of a single run. Loaded metadata is mutated in
// place, so a new Obfuscator is needed for every run.
type Obfuscator struct {
	Project *config.Project
	Config  *config.Config
	deps    Dependencies

	proj    *project.Project
	groups  *closure.Map
	renamer *rename.Context
	report  *mapping.Map
	sites   []rename.StringSite
}

func New(proj *config.Project, cfg *config.Config, deps Dependencies) (*Obfuscator, error) {
	if proj == nil {
		return nil, errors.New(errors.CodeConfig, "project is required")
	}
	if deps.Reader == nil || deps.Writer == nil {
		return nil, errors.New(errors.CodeInternal, "assembly reader and writer are required")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Obfuscator{Project: proj, Config: cfg, deps: deps, report: mapping.New()}, nil
}

// Load reads every module, resolves dependencies and creates the output
// directory. Nothing is renamed yet.
func (o *Obfuscator) Load(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "obfuscator.Load", trace.WithAttributes(
		attribute.Int("modules", len(o.Project.Modules)),
	))
	defer span.End()

	settings := o.Project.Settings
	if len(o.Project.Modules) == 0 {
		return errors.New(errors.CodeConfig, "project lists no modules")
	}
	p, err := project.New(o.deps.Reader, project.Options{
		InPath:        settings.InPath,
		SearchPaths:   append(append([]string(nil), settings.SearchPaths...), o.Config.SearchPaths()...),
		KeyFile:       settings.KeyFile,
		TypeCacheSize: o.Config.Resolver.TypeCacheSize,
	})
	if err != nil {
		return err
	}
	for _, asm := range o.deps.Preloaded {
		p.AddDependency(asm)
	}
	for _, mod := range o.Project.Modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.AddAssembly(moduleSpec(mod)); err != nil {
			return err
		}
	}
	if err := p.Init(); err != nil {
		return err
	}
	if err := os.MkdirAll(settings.OutPath, 0o755); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "unable to create output directory"), errors.CtxPath, settings.OutPath)
	}

	o.proj = p
	observability.AssembliesLoaded.Set(float64(len(p.Assemblies())))
	observability.DependenciesResolved.Set(float64(p.DependencyCount()))
	return nil
}

// Map exposes the rename plan.
func (o *Obfuscator) Map() *mapping.Map {
	return o.report
}

// ProjectKey names the run series in history.
func (o *Obfuscator) ProjectKey() string {
	if key := strings.TrimSpace(o.Config.Project.Key); key != "" {
		return key
	}
	if o.Project.Path == "" {
		return "default"
	}
	base := filepath.Base(o.Project.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func moduleSpec(m config.Module) project.ModuleSpec {
	return project.ModuleSpec{
		File:             m.File,
		SkipNamespaces:   rules(m.SkipNamespaces),
		SkipTypes:        typeRules(m.SkipTypes),
		SkipMethods:      rules(m.SkipMethods),
		SkipFields:       rules(m.SkipFields),
		SkipProperties:   rules(m.SkipProperties),
		SkipEvents:       rules(m.SkipEvents),
		SkipStringHiding: rules(m.SkipStringHiding),
	}
}

func rules(in []config.Rule) []project.Rule {
	out := make([]project.Rule, len(in))
	for i, r := range in {
		out[i] = project.Rule{Name: r.Name, Rx: r.Rx, Type: r.Type, Attrib: r.Attrib, TypeAttrib: r.TypeAttrib}
	}
	return out
}

func typeRules(in []config.TypeRule) []project.TypeRule {
	out := make([]project.TypeRule, len(in))
	for i, r := range in {
		out[i] = project.TypeRule{
			Name:             r.Name,
			Rx:               r.Rx,
			Attrib:           r.Attrib,
			SkipMethods:      r.SkipMethods,
			SkipFields:       r.SkipFields,
			SkipProperties:   r.SkipProperties,
			SkipEvents:       r.SkipEvents,
			SkipStringHiding: r.SkipStringHiding,
		}
	}
	return out
}
