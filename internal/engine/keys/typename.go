package keys

import (
	"strconv"
	"strings"
)

// SplitNamespace splits "Ns.Sub.Name" into ("Ns.Sub", "Name").
func SplitNamespace(fullName string) (string, string) {
	idx := strings.LastIndex(fullName, ".")
	if idx < 0 {
		return "", fullName
	}
	return fullName[:idx], fullName[idx+1:]
}

// StripGenericArgs removes a trailing instantiation ("List`1<System.Int32>" -> "List`1").
func StripGenericArgs(name string) string {
	if idx := strings.Index(name, "<"); idx >= 0 {
		return name[:idx]
	}
	return name
}

// GenericArgs returns the top-level instantiation arguments of a type name.
func GenericArgs(name string) []string {
	start := strings.Index(name, "<")
	if start < 0 || !strings.HasSuffix(name, ">") {
		return nil
	}
	inner := name[start+1 : len(name)-1]
	var (
		out   []string
		depth int
		last  int
	)
	for i, r := range inner {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(inner[last:i]))
				last = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(inner[last:]))
}

// SubstituteGenerics replaces type generic parameter placeholders (!0, !1, ...)
// with args. Method generic parameters (!!0) are left alone.
func SubstituteGenerics(name string, args []string) string {
	if len(args) == 0 || !strings.Contains(name, "!") {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if name[i] != '!' {
			b.WriteByte(name[i])
			continue
		}
		if i+1 < len(name) && name[i+1] == '!' {
			j := i + 2
			for j < len(name) && isDigit(name[j]) {
				j++
			}
			b.WriteString(name[i:j])
			i = j - 1
			continue
		}
		j := i + 1
		for j < len(name) && isDigit(name[j]) {
			j++
		}
		idx, err := strconv.Atoi(name[i+1 : j])
		if err != nil || idx >= len(args) {
			b.WriteString(name[i:j])
		} else {
			b.WriteString(args[idx])
		}
		i = j - 1
	}
	return b.String()
}

// RewriteTypeNames replaces every whole type name token inside a composite
// signature string ("List`1<Ns.A>[]") using rename. Tokens are delimited by
// generic brackets, commas, array/pointer/byref markers and spaces.
func RewriteTypeNames(name string, rename func(string) (string, bool)) string {
	if name == "" {
		return name
	}
	var (
		b       strings.Builder
		start   int
		changed bool
	)
	flush := func(end int) {
		if end <= start {
			return
		}
		tok := name[start:end]
		if repl, ok := rename(tok); ok {
			b.WriteString(repl)
			changed = true
			return
		}
		b.WriteString(tok)
	}
	for i := 0; i < len(name); i++ {
		if isDelimiter(name[i]) {
			flush(i)
			b.WriteByte(name[i])
			start = i + 1
		}
	}
	flush(len(name))
	if !changed {
		return name
	}
	return b.String()
}

func isDelimiter(c byte) bool {
	switch c {
	case '<', '>', ',', '[', ']', '&', '*', ' ':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
