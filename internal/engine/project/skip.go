package project

import (
	"obscura/internal/engine/match"
	"obscura/internal/engine/metadata"
)

// Flag selects which member kind a type-level skip rule must cover.
type Flag int

const (
	FlagMethods Flag = iota + 1
	FlagFields
	FlagProperties
	FlagEvents
	FlagStringHiding
)

func (f Flag) String() string {
	switch f {
	case FlagMethods:
		return "methods"
	case FlagFields:
		return "fields"
	case FlagProperties:
		return "properties"
	case FlagEvents:
		return "events"
	case FlagStringHiding:
		return "stringhiding"
	default:
		return "unknown"
	}
}

func covers(t match.TypeTester, f Flag) bool {
	switch f {
	case FlagMethods:
		return t.SkipMethods
	case FlagFields:
		return t.SkipFields
	case FlagProperties:
		return t.SkipProperties
	case FlagEvents:
		return t.SkipEvents
	case FlagStringHiding:
		return t.SkipStringHiding
	default:
		return false
	}
}

func (a *AssemblyInfo) skipNamespace(t *metadata.TypeDef) bool {
	ns := t.Key().RootNamespace()
	return a.rules.namespaces.Any(func(r match.NamespaceTester) bool { return r.Test(ns) })
}

// ShouldSkipType reports whether a namespace or type rule keeps t's name.
func (a *AssemblyInfo) ShouldSkipType(t *metadata.TypeDef) bool {
	if a.skipNamespace(t) {
		return true
	}
	return a.rules.types.Any(func(r match.TypeTester) bool { return r.Test(t) })
}

// shouldSkip cascades namespace rules, type rules carrying flag, then the
// member rule collection.
func (a *AssemblyInfo) shouldSkip(t *metadata.TypeDef, flag Flag, members *match.Set[match.MemberTester], test func(match.MemberTester) bool) bool {
	if a.skipNamespace(t) {
		return true
	}
	if a.rules.types.Any(func(r match.TypeTester) bool { return covers(r, flag) && r.Test(t) }) {
		return true
	}
	return members.Any(test)
}

func (a *AssemblyInfo) ShouldSkipMethod(m *metadata.MethodDef) bool {
	return a.shouldSkip(m.DeclaringType, FlagMethods, &a.rules.methods, func(r match.MemberTester) bool {
		return r.TestMethod(m)
	})
}

func (a *AssemblyInfo) ShouldSkipField(f *metadata.FieldDef) bool {
	return a.shouldSkip(f.DeclaringType, FlagFields, &a.rules.fields, func(r match.MemberTester) bool {
		return r.TestField(f)
	})
}

func (a *AssemblyInfo) ShouldSkipProperty(p *metadata.PropertyDef) bool {
	return a.shouldSkip(p.DeclaringType, FlagProperties, &a.rules.properties, func(r match.MemberTester) bool {
		return r.TestProperty(p)
	})
}

func (a *AssemblyInfo) ShouldSkipEvent(e *metadata.EventDef) bool {
	return a.shouldSkip(e.DeclaringType, FlagEvents, &a.rules.events, func(r match.MemberTester) bool {
		return r.TestEvent(e)
	})
}

// ShouldSkipStringHiding reports whether m's string literals must stay in place.
func (a *AssemblyInfo) ShouldSkipStringHiding(m *metadata.MethodDef) bool {
	return a.shouldSkip(m.DeclaringType, FlagStringHiding, &a.rules.stringHiding, func(r match.MemberTester) bool {
		return r.TestMethod(m)
	})
}
