package history

import "obscura/internal/engine/mapping"

// FromEntries converts flattened map entries into storable rows.
func FromEntries(entries []mapping.Entry) []Rename {
	out := make([]Rename, len(entries))
	for i, e := range entries {
		out[i] = Rename{
			Kind:     string(e.Kind),
			Original: e.Original,
			NewName:  e.NewName,
			Status:   e.Status.String(),
			Reason:   e.Reason,
		}
	}
	return out
}
