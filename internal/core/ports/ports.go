// Package ports declares the collaborators the orchestrator drives but does
// not implement itself.
package ports

import (
	"context"

	"obscura/internal/data/history"
	"obscura/internal/engine/rename"
)

// StringHider moves string literals out of method bodies. Implementations
// receive the sites after renaming and before the assemblies are written.
type StringHider interface {
	HideStrings(ctx context.Context, sites []rename.StringSite) (int, error)
}

// HistoryStore abstracts run persistence for reverse lookups.
type HistoryStore interface {
	SaveRun(run history.Run, renames []history.Rename) (history.Run, error)
	Lookup(projectKey, name string) ([]history.Match, error)
}
