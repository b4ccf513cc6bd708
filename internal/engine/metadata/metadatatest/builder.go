// Package metadatatest builds small in-memory assemblies for engine tests.
package metadatatest

import (
	"strings"

	"obscura/internal/engine/metadata"
)

// Assembly starts a single-module assembly. Module-level references are
// declared with Ref.
type Assembly struct {
	Asm *metadata.Assembly
}

func NewAssembly(name string, references ...string) *Assembly {
	asm := &metadata.Assembly{
		Name:    name,
		Version: "1.0.0.0",
		Modules: []*metadata.Module{{Name: name + ".dll"}},
	}
	for _, r := range references {
		asm.References = append(asm.References, metadata.AssemblyRef{Name: r, Version: "1.0.0.0"})
	}
	asm.Modules[0].Assembly = asm
	return &Assembly{Asm: asm}
}

func (a *Assembly) Module() *metadata.Module {
	return a.Asm.MainModule()
}

// Type adds a top-level type. fullName is split at the last '.'.
func (a *Assembly) Type(fullName string, access metadata.Access, flags ...metadata.TypeFlags) *Type {
	ns, name := "", fullName
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		ns, name = fullName[:i], fullName[i+1:]
	}
	t := &metadata.TypeDef{
		Namespace: ns,
		Name:      name,
		Access:    access,
		Flags:     combine(flags),
		Module:    a.Module(),
	}
	if t.Flags&metadata.TypeInterface == 0 {
		t.BaseType = &metadata.TypeRef{Scope: "mscorlib", FullName: "System.Object"}
	}
	a.Module().Types = append(a.Module().Types, t)
	return &Type{Def: t, asm: a}
}

// TypeRef records and returns a module-level type reference.
func (a *Assembly) TypeRef(scope, fullName string) *metadata.TypeRef {
	ref := &metadata.TypeRef{Scope: scope, FullName: fullName}
	a.Module().TypeRefs = append(a.Module().TypeRefs, ref)
	return ref
}

// MethodRef records a method reference through a declaring type.
func (a *Assembly) MethodRef(declaring *metadata.TypeRef, name, returns string, params ...string) *metadata.MemberRef {
	ref := &metadata.MemberRef{
		Kind:       metadata.MemberMethod,
		Declaring:  declaring,
		Name:       name,
		ReturnType: returns,
		Params:     params,
	}
	a.Module().MemberRefs = append(a.Module().MemberRefs, ref)
	return ref
}

func (a *Assembly) FieldRef(declaring *metadata.TypeRef, name, fieldType string) *metadata.MemberRef {
	ref := &metadata.MemberRef{
		Kind:       metadata.MemberField,
		Declaring:  declaring,
		Name:       name,
		ReturnType: fieldType,
	}
	a.Module().MemberRefs = append(a.Module().MemberRefs, ref)
	return ref
}

// Attribute attaches an assembly-level custom attribute.
func (a *Assembly) Attribute(attr *metadata.CustomAttribute) *Assembly {
	a.Asm.CustomAttributes = append(a.Asm.CustomAttributes, attr)
	return a
}

func (a *Assembly) Resource(name string, data string) *Assembly {
	a.Module().Resources = append(a.Module().Resources, &metadata.Resource{Name: name, Data: []byte(data)})
	return a
}

// Markup marks a type as referenced by name from markup.
func (a *Assembly) Markup(fullName string) *Assembly {
	a.Module().MarkupTypeNames = append(a.Module().MarkupTypeNames, fullName)
	return a
}

// Build links back-pointers and returns the assembly.
func (a *Assembly) Build() *metadata.Assembly {
	metadata.Link(a.Asm)
	return a.Asm
}

type Type struct {
	Def *metadata.TypeDef
	asm *Assembly
}

// Ref returns a reference to this type as seen from any module.
func (t *Type) Ref() *metadata.TypeRef {
	return &metadata.TypeRef{Scope: t.asm.Asm.Name, FullName: t.Def.FullName()}
}

func (t *Type) Extends(scope, fullName string) *Type {
	t.Def.BaseType = &metadata.TypeRef{Scope: scope, FullName: fullName}
	return t
}

func (t *Type) Implements(scope, fullName string) *Type {
	t.Def.Interfaces = append(t.Def.Interfaces, &metadata.TypeRef{Scope: scope, FullName: fullName})
	return t
}

func (t *Type) Generic(names ...string) *Type {
	for _, n := range names {
		t.Def.GenericParams = append(t.Def.GenericParams, &metadata.GenericParam{Name: n})
	}
	return t
}

func (t *Type) Attribute(attr *metadata.CustomAttribute) *Type {
	t.Def.CustomAttributes = append(t.Def.CustomAttributes, attr)
	return t
}

func (t *Type) Nested(name string, access metadata.Access, flags ...metadata.TypeFlags) *Type {
	n := &metadata.TypeDef{
		Name:          name,
		Access:        access,
		Flags:         combine(flags),
		BaseType:      &metadata.TypeRef{Scope: "mscorlib", FullName: "System.Object"},
		DeclaringType: t.Def,
		Module:        t.Def.Module,
	}
	t.Def.NestedTypes = append(t.Def.NestedTypes, n)
	return &Type{Def: n, asm: t.asm}
}

// Method adds a method; params are parameter type names.
func (t *Type) Method(name string, access metadata.Access, flags metadata.MethodFlags, returns string, params ...string) *metadata.MethodDef {
	m := &metadata.MethodDef{
		Name:          name,
		Access:        access,
		Flags:         flags,
		ReturnType:    returns,
		DeclaringType: t.Def,
	}
	for i, p := range params {
		m.Params = append(m.Params, &metadata.ParamDef{Name: "p" + string(rune('0'+i)), Type: p})
	}
	t.Def.Methods = append(t.Def.Methods, m)
	return m
}

func (t *Type) Field(name string, access metadata.Access, fieldType string, flags ...metadata.FieldFlags) *metadata.FieldDef {
	var fl metadata.FieldFlags
	for _, f := range flags {
		fl |= f
	}
	f := &metadata.FieldDef{
		Name:          name,
		FieldType:     fieldType,
		Access:        access,
		Flags:         fl,
		DeclaringType: t.Def,
	}
	t.Def.Fields = append(t.Def.Fields, f)
	return f
}

// Property adds a property with get_/set_ accessors of the given access.
func (t *Type) Property(name string, access metadata.Access, propType string, flags metadata.MethodFlags) *metadata.PropertyDef {
	flags |= metadata.MethodSpecialName
	p := &metadata.PropertyDef{
		Name:          name,
		PropType:      propType,
		Getter:        t.Method("get_"+name, access, flags, propType),
		Setter:        t.Method("set_"+name, access, flags, "System.Void", propType),
		DeclaringType: t.Def,
	}
	t.Def.Properties = append(t.Def.Properties, p)
	return p
}

// Event adds an event with add_/remove_ accessors of the given access.
func (t *Type) Event(name string, access metadata.Access, eventType string, flags metadata.MethodFlags) *metadata.EventDef {
	flags |= metadata.MethodSpecialName
	e := &metadata.EventDef{
		Name:          name,
		EventType:     eventType,
		Add:           t.Method("add_"+name, access, flags, "System.Void", eventType),
		Remove:        t.Method("remove_"+name, access, flags, "System.Void", eventType),
		DeclaringType: t.Def,
	}
	t.Def.Events = append(t.Def.Events, e)
	return e
}

// Obfuscation builds a System.Reflection.ObfuscationAttribute.
func Obfuscation(exclude, applyToMembers bool) *metadata.CustomAttribute {
	return &metadata.CustomAttribute{
		Type: &metadata.TypeRef{Scope: "mscorlib", FullName: "System.Reflection.ObfuscationAttribute"},
		Named: []metadata.NamedArg{
			{Name: "Exclude", Arg: metadata.AttributeArg{Type: "System.Boolean", Value: boolString(exclude)}},
			{Name: "ApplyToMembers", Arg: metadata.AttributeArg{Type: "System.Boolean", Value: boolString(applyToMembers)}},
		},
	}
}

// Call appends a call instruction to m.
func Call(m *metadata.MethodDef, operand metadata.Operand) {
	m.Body = append(m.Body, &metadata.Instruction{OpCode: "call", Operand: operand})
}

// LoadString appends an ldstr instruction to m.
func LoadString(m *metadata.MethodDef, s string) {
	m.Body = append(m.Body, &metadata.Instruction{OpCode: "ldstr", Operand: metadata.StringLiteral(s)})
}

func combine(flags []metadata.TypeFlags) metadata.TypeFlags {
	var out metadata.TypeFlags
	for _, f := range flags {
		out |= f
	}
	return out
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
