package history

import "time"

// SchemaVersion is the highest migration this build understands.
const SchemaVersion = 2

// Run summarizes one obfuscation run.
type Run struct {
	ID         string
	ProjectKey string
	Timestamp  time.Time
	Assemblies int
	Renamed    int
	Skipped    int
	Duration   time.Duration
	OutPath    string
}

// Rename is one persisted map entry.
type Rename struct {
	Kind     string
	Original string
	NewName  string
	Status   string
	Reason   string
}

// Match is a Rename found by Lookup together with the run it belongs to.
type Match struct {
	Run    Run
	Rename Rename
}
