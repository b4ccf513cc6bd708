package match

import (
	"obscura/internal/engine/metadata"
)

// NamespaceTester matches the root namespace of a type.
type NamespaceTester struct {
	Name Pattern
}

func (t NamespaceTester) Test(ns string) bool {
	return t.Name.Match(ns)
}

// TypeTester matches types by full name and visibility. The Skip* flags gate
// whether a match also excludes the type's members of that kind.
type TypeTester struct {
	Name   Pattern
	Attrib Attrib

	SkipMethods      bool
	SkipFields       bool
	SkipProperties   bool
	SkipEvents       bool
	SkipStringHiding bool
}

func (t TypeTester) Test(td *metadata.TypeDef) bool {
	if !t.Name.Match(td.FullName()) {
		return false
	}
	switch t.Attrib {
	case AttribAny:
		return true
	case AttribPublic:
		return td.IsPublicAPI()
	default:
		return t.Attrib.Allows(td.Access)
	}
}

// MemberTester matches members by name, optionally scoped to a declaring type
// pattern, the member's visibility and the declaring type's visibility.
type MemberTester struct {
	Type       Pattern
	Name       Pattern
	Attrib     Attrib
	TypeAttrib Attrib
}

func (t MemberTester) test(declaring *metadata.TypeDef, name string, access metadata.Access) bool {
	if !t.Type.Match(declaring.FullName()) {
		return false
	}
	if t.TypeAttrib == AttribPublic && !declaring.IsPublicAPI() {
		return false
	}
	if !t.Name.Match(name) {
		return false
	}
	return t.Attrib.Allows(access)
}

func (t MemberTester) TestMethod(m *metadata.MethodDef) bool {
	return t.test(m.DeclaringType, m.Name, m.Access)
}

func (t MemberTester) TestField(f *metadata.FieldDef) bool {
	return t.test(f.DeclaringType, f.Name, f.Access)
}

func (t MemberTester) TestProperty(p *metadata.PropertyDef) bool {
	return t.test(p.DeclaringType, p.Name, mostVisible(p.Accessors()))
}

func (t MemberTester) TestEvent(e *metadata.EventDef) bool {
	return t.test(e.DeclaringType, e.Name, mostVisible(e.Accessors()))
}

// Set is an ordered rule collection; it matches when any rule matches.
type Set[T any] struct {
	rules []T
}

func (s *Set[T]) Add(rule T) {
	s.rules = append(s.rules, rule)
}

func (s *Set[T]) Len() int {
	return len(s.rules)
}

func (s *Set[T]) Rules() []T {
	return append([]T(nil), s.rules...)
}

// Any evaluates test against each rule in insertion order.
func (s *Set[T]) Any(test func(T) bool) bool {
	for _, r := range s.rules {
		if test(r) {
			return true
		}
	}
	return false
}
