package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "obscura_phase_seconds",
		Help:    "Time spent in one renaming phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "obscura_run_seconds",
		Help:    "Wall time of a complete obfuscation run.",
		Buckets: prometheus.DefBuckets,
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obscura_runs_total",
		Help: "Obfuscation runs by outcome.",
	}, []string{"result"})

	AssembliesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "obscura_assemblies_loaded",
		Help: "Project assemblies loaded by the last run.",
	})

	DependenciesResolved = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "obscura_dependencies_resolved",
		Help: "External assemblies resolved by the last run.",
	})

	VirtualGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "obscura_virtual_groups",
		Help: "Virtual method groups found by the last run.",
	})

	NamesRenamedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obscura_names_renamed_total",
		Help: "Entities renamed, by kind.",
	}, []string{"kind"})

	NamesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "obscura_names_skipped_total",
		Help: "Entities kept under their original name, by kind.",
	}, []string{"kind"})

	StringLiterals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "obscura_string_literals",
		Help: "String literals eligible for hiding in the last run.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obscura_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
