package app

import (
	"log/slog"
	"time"

	"obscura/internal/core/errors"
	"obscura/internal/data/history"
	"obscura/internal/engine/mapping"
	"obscura/internal/shared/observability"
	"obscura/internal/shared/util"
)

// Result summarizes a finished run.
type Result struct {
	RunID       string
	ProjectKey  string
	Assemblies  int
	Counts      map[mapping.Kind]mapping.Counts
	Outputs     []string
	MappingPath string
	StringSites int
	Duration    time.Duration
	// HeapGrowthMB is how much the heap grew while the run held the project.
	HeapGrowthMB float64
}

// Totals sums renamed and skipped entities over every kind.
func (r *Result) Totals() (renamed, skipped int) {
	for _, c := range r.Counts {
		renamed += c.Renamed
		skipped += c.Skipped
	}
	return renamed, skipped
}

func (o *Obfuscator) result() *Result {
	counts := o.report.Counts()
	for _, kind := range util.SortedStringKeys(kindKeys(counts)) {
		c := counts[mapping.Kind(kind)]
		observability.NamesRenamedTotal.WithLabelValues(kind).Add(float64(c.Renamed))
		observability.NamesSkippedTotal.WithLabelValues(kind).Add(float64(c.Skipped))
	}
	return &Result{
		ProjectKey:  o.ProjectKey(),
		Assemblies:  len(o.proj.Assemblies()),
		Counts:      counts,
		StringSites: len(o.sites),
	}
}

func (o *Obfuscator) recordHistory(res *Result) error {
	if o.deps.History == nil {
		return nil
	}
	renamed, skipped := res.Totals()
	run, err := o.deps.History.SaveRun(history.Run{
		ProjectKey: res.ProjectKey,
		Assemblies: res.Assemblies,
		Renamed:    renamed,
		Skipped:    skipped,
		Duration:   res.Duration,
		OutPath:    o.Project.Settings.OutPath,
	}, history.FromEntries(o.report.Entries()))
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "unable to record run history")
	}
	res.RunID = run.ID
	slog.Debug("run recorded", "run_id", run.ID, "project", res.ProjectKey, "heap_growth_mb", res.HeapGrowthMB)
	return nil
}

func kindKeys(counts map[mapping.Kind]mapping.Counts) map[string]mapping.Counts {
	out := make(map[string]mapping.Counts, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}
