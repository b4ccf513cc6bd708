package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"obscura/internal/core/errors"
	"obscura/internal/engine/closure"
	"obscura/internal/engine/rename"
	"obscura/internal/shared/observability"
	"obscura/internal/shared/util"
)

// RunRules computes override groups and runs the rename phases in their
// fixed order, then plans string hiding and strips consumed markers.
func (o *Obfuscator) RunRules(ctx context.Context) error {
	if o.proj == nil {
		return errors.New(errors.CodeInternal, "project not loaded")
	}
	ctx, span := observability.Tracer.Start(ctx, "obfuscator.RunRules")
	defer span.End()

	groups, err := closure.Build(o.proj, o.proj.Types())
	if err != nil {
		return err
	}
	o.groups = groups
	observability.VirtualGroups.Set(float64(len(groups.Groups())))

	settings := o.Project.Settings
	o.renamer = rename.NewContext(o.proj, groups, o.report, rename.Options{
		KeepPublicAPI:    settings.KeepPublicAPI,
		HidePrivateAPI:   settings.HidePrivateAPI,
		MarkedOnly:       settings.MarkedOnly,
		RenameProperties: settings.RenameProperties,
		RenameEvents:     settings.RenameEvents,
		ReuseNames:       settings.ReuseNames,
	})

	for _, phase := range o.renamer.Phases() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.runPhase(ctx, phase); err != nil {
			return errors.AddContext(err, errors.CtxPhase, phase.Name)
		}
	}

	if settings.HideStrings {
		if err := o.hideStrings(ctx); err != nil {
			return err
		}
	}
	if n := o.renamer.StripMarkers(); n > 0 {
		slog.Debug("stripped obfuscation markers", "count", n)
	}
	return nil
}

func (o *Obfuscator) runPhase(ctx context.Context, phase rename.Phase) error {
	_, span := observability.Tracer.Start(ctx, "phase."+phase.Name, trace.WithAttributes(
		attribute.String("phase", phase.Name),
	))
	defer span.End()

	start := time.Now()
	slog.Debug("phase started", "phase", phase.Name)
	err := phase.Run()
	elapsed := time.Since(start)
	observability.PhaseDuration.WithLabelValues(phase.Name).Observe(elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		return err
	}
	slog.Debug("phase finished", "phase", phase.Name, "elapsed", elapsed)
	return nil
}

func (o *Obfuscator) hideStrings(ctx context.Context) error {
	o.sites = o.renamer.StringHidingPlan()
	total := 0
	for _, s := range o.sites {
		total += s.Literals
	}
	observability.StringLiterals.Set(float64(total))
	if o.deps.StringHider == nil {
		slog.Warn("string hiding requested but no string hider is configured", "methods", len(o.sites), "literals", total)
		return nil
	}
	hidden, err := o.deps.StringHider.HideStrings(ctx, o.sites)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "string hiding failed")
	}
	slog.Info("strings hidden", "literals", hidden, "methods", len(o.sites))
	return nil
}

// StringSites returns the string hiding plan of the last RunRules.
func (o *Obfuscator) StringSites() []rename.StringSite {
	return o.sites
}

// Run executes the whole pipeline: load, rename, save assemblies and
// mapping, and record history when a store is configured.
func (o *Obfuscator) Run(ctx context.Context) (*Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "obfuscator.Run")
	defer span.End()

	start, heap := time.Now(), util.ReadHeap()
	res, err := o.run(ctx)
	observability.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RunsTotal.WithLabelValues("failure").Inc()
		span.RecordError(err)
		return nil, err
	}
	res.Duration = time.Since(start)
	res.HeapGrowthMB = util.ReadHeap().GrowthMB(heap)
	observability.RunsTotal.WithLabelValues("success").Inc()

	if err := o.recordHistory(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (o *Obfuscator) run(ctx context.Context) (*Result, error) {
	if err := o.Load(ctx); err != nil {
		return nil, err
	}
	if err := o.RunRules(ctx); err != nil {
		return nil, err
	}
	outputs, err := o.SaveAssemblies(ctx)
	if err != nil {
		return nil, err
	}
	mappingPath, err := o.SaveMapping()
	if err != nil {
		return nil, err
	}
	res := o.result()
	res.Outputs = outputs
	res.MappingPath = mappingPath
	return res, nil
}
