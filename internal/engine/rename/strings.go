package rename

import (
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

// StringSite is a method whose string literals may be moved out of its body.
type StringSite struct {
	Assembly string
	Method   *metadata.MethodDef
	Literals int
}

// StringHidingPlan lists methods with string literals that no rule or marker
// keeps in place. The engine only plans; rewriting bodies is left to a
// StringHider collaborator.
func (c *Context) StringHidingPlan() []StringSite {
	var out []StringSite
	c.each(func(info *project.AssemblyInfo, t *metadata.TypeDef) {
		if t.IsModuleType() {
			return
		}
		for _, m := range t.Methods {
			n := countLiterals(m)
			if n == 0 || info.ShouldSkipStringHiding(m) || excludedFromStringHiding(m) {
				continue
			}
			out = append(out, StringSite{Assembly: info.Name(), Method: m, Literals: n})
		}
	})
	return out
}

func countLiterals(m *metadata.MethodDef) int {
	n := 0
	for _, ins := range m.Body {
		if _, ok := ins.Operand.(metadata.StringLiteral); ok {
			n++
		}
	}
	return n
}

// excludedFromStringHiding honours [Obfuscation(Feature = "string hiding", Exclude = true)]
// on the method or its declaring types.
func excludedFromStringHiding(m *metadata.MethodDef) bool {
	check := func(p metadata.AttributeProvider) (bool, bool) {
		for _, ca := range p.Attributes() {
			if ca.Type == nil || ca.Type.FullName != obfuscationAttribute {
				continue
			}
			if ca.NamedString("Feature", "all") != "string hiding" {
				continue
			}
			return ca.NamedBool("Exclude", true), true
		}
		return false, false
	}
	if v, ok := check(m); ok {
		return v
	}
	for t := m.DeclaringType; t != nil; t = t.DeclaringType {
		if v, ok := check(t); ok {
			return v
		}
	}
	return false
}
