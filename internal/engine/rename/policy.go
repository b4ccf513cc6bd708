package rename

import (
	"strings"

	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

const (
	obfuscationAttribute = "System.Reflection.ObfuscationAttribute"
	// legacy marker taking a ShouldObfuscate constructor argument
	obfuscateAttributeSuffix = ".ObfuscateAttribute"
)

// skip reasons as they appear in the mapping report
const (
	reasonCompilerReserved = "compiler reserved"
	reasonSpecialName      = "special name"
	reasonOperator         = "operator"
	reasonExplicitImpl     = "explicit interface implementation"
	reasonExternalMethod   = "external method"
	reasonExternal         = "overrides or implements external method"
	reasonAttribute        = "ObfuscationAttribute"
	reasonRule             = "skip rule"
	reasonMarkedOnly       = "MarkedOnly"
	reasonPublic           = "KeepPublicApi"
	reasonPrivate          = "HidePrivateApi"
	reasonMarkup           = "markup"
	reasonProperty         = "property skipped"
	reasonEvent            = "event skipped"
	reasonNoProperties     = "RenameProperties disabled"
	reasonNoEvents         = "RenameEvents disabled"
)

type verdict struct {
	skip   bool
	reason string
}

func skip(reason string) verdict {
	return verdict{skip: true, reason: reason}
}

// markedToRename reads an obfuscation marker on p. inherited is set when the
// marker is consulted on behalf of an enclosed entity, in which case markers
// that do not apply to members are ignored.
func markedToRename(p metadata.AttributeProvider, inherited bool) (rename bool, ok bool) {
	for _, ca := range p.Attributes() {
		if ca.Type == nil {
			continue
		}
		name := ca.Type.FullName
		switch {
		case name == obfuscationAttribute:
			switch strings.ToLower(ca.NamedString("Feature", "all")) {
			case "", "all", "renaming":
			default:
				continue
			}
			if inherited && !ca.NamedBool("ApplyToMembers", true) {
				continue
			}
			return !ca.NamedBool("Exclude", true), true
		case strings.HasSuffix(name, obfuscateAttributeSuffix):
			if inherited && !ca.NamedBool("ApplyToMembers", true) {
				continue
			}
			return ca.ArgBool(0, true), true
		}
	}
	return false, false
}

// attributeVerdict consults the entity's own marker, then markers on its
// enclosing types, then the assembly's.
func attributeVerdict(own metadata.AttributeProvider, enclosing *metadata.TypeDef, asm *metadata.Assembly) (verdict, bool) {
	fromMarker := func(rename bool) verdict {
		if rename {
			return verdict{}
		}
		return skip(reasonAttribute)
	}
	if own != nil {
		if rename, ok := markedToRename(own, false); ok {
			return fromMarker(rename), true
		}
	}
	for t := enclosing; t != nil; t = t.DeclaringType {
		if rename, ok := markedToRename(t, true); ok {
			return fromMarker(rename), true
		}
	}
	if asm != nil {
		if rename, ok := markedToRename(asm, true); ok {
			return fromMarker(rename), true
		}
	}
	return verdict{}, false
}

// decide applies the shared policy: markers, then skip rules, then the
// MarkedOnly and visibility options.
func (c *Context) decide(own metadata.AttributeProvider, declaring *metadata.TypeDef, public, ruleSkip bool) verdict {
	if v, ok := attributeVerdict(own, declaring, declaring.Module.Assembly); ok {
		return v
	}
	if ruleSkip {
		return skip(reasonRule)
	}
	if c.opts.MarkedOnly {
		return skip(reasonMarkedOnly)
	}
	if public && c.opts.KeepPublicAPI {
		return skip(reasonPublic)
	}
	if !public && !c.opts.HidePrivateAPI {
		return skip(reasonPrivate)
	}
	return verdict{}
}

func (c *Context) typeVerdict(info *project.AssemblyInfo, t *metadata.TypeDef) verdict {
	switch {
	case t.IsModuleType():
		return skip(reasonCompilerReserved)
	case t.Flags&metadata.TypeSpecialName != 0:
		return skip(reasonSpecialName)
	case info.IsMarkupBound(t):
		return skip(reasonMarkup)
	}
	if v, ok := attributeVerdict(t, t.DeclaringType, t.Module.Assembly); ok {
		return v
	}
	if info.ShouldSkipType(t) {
		return skip(reasonRule)
	}
	if c.opts.MarkedOnly {
		return skip(reasonMarkedOnly)
	}
	public := t.IsPublicAPI()
	if public && c.opts.KeepPublicAPI {
		return skip(reasonPublic)
	}
	if !public && !c.opts.HidePrivateAPI {
		return skip(reasonPrivate)
	}
	return verdict{}
}

func (c *Context) fieldVerdict(info *project.AssemblyInfo, t *metadata.TypeDef, f *metadata.FieldDef) verdict {
	switch {
	case t.IsModuleType():
		return skip(reasonCompilerReserved)
	case f.IsRuntimeSpecial() || f.Flags&metadata.FieldSpecialName != 0:
		return skip(reasonSpecialName)
	case info.IsMarkupBound(t):
		return skip(reasonMarkup)
	}
	return c.decide(f, t, f.IsPublicAPI(), info.ShouldSkipField(f))
}

// fixedMethodVerdict covers exclusions that hold for a single method
// regardless of its override group.
func fixedMethodVerdict(t *metadata.TypeDef, m *metadata.MethodDef) (verdict, bool) {
	switch {
	case t.IsModuleType():
		return skip(reasonCompilerReserved), true
	case m.IsRuntimeSpecial():
		return skip(reasonSpecialName), true
	case m.IsOperator():
		return skip(reasonOperator), true
	case m.IsExplicitImplementation():
		return skip(reasonExplicitImpl), true
	case m.IsExternal():
		return skip(reasonExternalMethod), true
	}
	return verdict{}, false
}

func (c *Context) ownMethodVerdict(info *project.AssemblyInfo, t *metadata.TypeDef, m *metadata.MethodDef) verdict {
	if reason, ok := c.forced[m]; ok {
		return skip(reason)
	}
	return c.decide(m, t, m.IsPublicAPI(), info.ShouldSkipMethod(m))
}
