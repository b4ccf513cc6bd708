package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"obscura/internal/core/app"
	"obscura/internal/core/errors"
	"obscura/internal/data/history"
	"obscura/internal/engine/mapping"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	renamedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func renderSummary(res *app.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Obfuscated %d assemblies", res.Assemblies)))
	b.WriteString("\n")

	kinds := make([]string, 0, len(res.Counts))
	for k := range res.Counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		c := res.Counts[mapping.Kind(k)]
		fmt.Fprintf(&b, "  %-9s %s %s\n", k,
			renamedStyle.Render(fmt.Sprintf("%d renamed", c.Renamed)),
			skippedStyle.Render(fmt.Sprintf("%d skipped", c.Skipped)))
	}
	if res.StringSites > 0 {
		fmt.Fprintf(&b, "  strings   %d methods planned\n", res.StringSites)
	}

	for _, out := range res.Outputs {
		fmt.Fprintf(&b, "  -> %s\n", out)
	}
	if res.MappingPath != "" {
		fmt.Fprintf(&b, "  map %s\n", res.MappingPath)
	}

	status := fmt.Sprintf("finished in %v", res.Duration.Round(time.Millisecond))
	if res.RunID != "" {
		status += " | run " + res.RunID
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	return b.String()
}

func renderMatches(name string, matches []history.Match) string {
	if len(matches) == 0 {
		return statusStyle.Render(fmt.Sprintf("no recorded run mentions %q", name)) + "\n"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d matches for %q", len(matches), name)))
	b.WriteString("\n")
	for _, m := range matches {
		ts := m.Run.Timestamp.Format("2006-01-02 15:04:05")
		switch {
		case m.Rename.NewName != "":
			fmt.Fprintf(&b, "  %s  %s %s -> %s\n", ts, m.Rename.Kind, m.Rename.Original, renamedStyle.Render(m.Rename.NewName))
		default:
			fmt.Fprintf(&b, "  %s  %s %s %s\n", ts, m.Rename.Kind, m.Rename.Original, skippedStyle.Render("skipped: "+m.Rename.Reason))
		}
	}
	return b.String()
}

func printError(w io.Writer, err error) {
	msg, inner := errors.Inner(err)
	fmt.Fprintln(w, errorStyle.Render("error: "+msg))
	if inner != nil {
		fmt.Fprintln(w, statusStyle.Render("  caused by: "+inner.Error()))
	}
}
