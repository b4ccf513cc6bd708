package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Pattern matches a name literally, by wildcard, or by regular expression.
// The zero Pattern matches everything.
type Pattern struct {
	raw  string
	glob glob.Glob
	rx   *regexp.Regexp
}

// NewPattern compiles either name (literal or wildcard) or rx; supplying both is an error.
func NewPattern(name, rx string) (Pattern, error) {
	name = strings.TrimSpace(name)
	rx = strings.TrimSpace(rx)
	switch {
	case name != "" && rx != "":
		return Pattern{}, fmt.Errorf("name %q and rx %q are mutually exclusive", name, rx)
	case rx != "":
		compiled, err := regexp.Compile(rx)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid rx %q: %w", rx, err)
		}
		return Pattern{raw: rx, rx: compiled}, nil
	case name == "":
		return Pattern{}, nil
	case hasWildcard(name):
		g, err := compileWildcard(name)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid wildcard %q: %w", name, err)
		}
		return Pattern{raw: name, glob: g}, nil
	default:
		return Pattern{raw: name}, nil
	}
}

// MustPattern is NewPattern for patterns known to be valid.
func MustPattern(name, rx string) Pattern {
	p, err := NewPattern(name, rx)
	if err != nil {
		panic(err)
	}
	return p
}

// Any reports the catch-all pattern.
func (p Pattern) Any() bool {
	return p.raw == ""
}

// Match applies the pattern. Regular expressions are unanchored unless the
// expression carries its own anchors.
func (p Pattern) Match(s string) bool {
	switch {
	case p.raw == "":
		return true
	case p.rx != nil:
		return p.rx.MatchString(s)
	case p.glob != nil:
		if s == "" {
			return strings.Trim(p.raw, "*") == ""
		}
		return p.glob.Match(s)
	default:
		return p.raw == s
	}
}

func (p Pattern) String() string {
	if p.rx != nil {
		return "rx:" + p.raw
	}
	return p.raw
}
