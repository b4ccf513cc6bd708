package match

import (
	"strings"

	"github.com/gobwas/glob"
)

// MatchWithWildCards reports whether text matches pattern in full, where '*'
// matches any run of characters (including none) and '?' exactly one.
// Matching is case-sensitive. An empty pattern never matches; an empty text
// only matches a pattern made of '*'.
func MatchWithWildCards(text, pattern string) bool {
	if pattern == "" {
		return false
	}
	if text == "" {
		return strings.Trim(pattern, "*") == ""
	}
	g, err := compileWildcard(pattern)
	if err != nil {
		return false
	}
	return g.Match(text)
}

// compileWildcard builds a glob where only '*' and '?' are special.
func compileWildcard(pattern string) (glob.Glob, error) {
	var b strings.Builder
	b.Grow(len(pattern) * 2)
	for _, r := range pattern {
		switch r {
		case '*', '?':
			b.WriteRune(r)
		default:
			b.WriteString(glob.QuoteMeta(string(r)))
		}
	}
	return glob.Compile(b.String())
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}
