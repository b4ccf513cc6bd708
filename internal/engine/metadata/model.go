// Package metadata is the format-independent model of loaded CLI assemblies.
//
// The engine only ever sees this model; turning binary images into it (and back)
// is the job of a Reader/Writer collaborator.
package metadata

import (
	"strings"

	"obscura/internal/engine/keys"
)

// ModuleTypeName is the compiler-reserved global type present in every module.
const ModuleTypeName = "<Module>"

type Assembly struct {
	Name             string
	Version          string
	PublicKey        []byte
	Signed           bool
	References       []AssemblyRef
	Modules          []*Module
	CustomAttributes []*CustomAttribute
	// Path is the file the assembly was read from.
	Path string
}

type AssemblyRef struct {
	Name    string
	Version string
}

// MainModule returns the manifest module.
func (a *Assembly) MainModule() *Module {
	if len(a.Modules) == 0 {
		return nil
	}
	return a.Modules[0]
}

// DelaySigned reports an embedded public key without a signature.
func (a *Assembly) DelaySigned() bool {
	return len(a.PublicKey) > 0 && !a.Signed
}

func (a *Assembly) Attributes() []*CustomAttribute {
	return a.CustomAttributes
}

type Module struct {
	Name       string
	Types      []*TypeDef
	TypeRefs   []*TypeRef
	MemberRefs []*MemberRef
	Resources  []*Resource
	// MarkupTypeNames lists type full names bound by name from markup (XAML/BAML).
	MarkupTypeNames []string

	Assembly *Assembly
}

// AllTypes returns every type in definition order, enclosing types before nested ones.
func (m *Module) AllTypes() []*TypeDef {
	out := make([]*TypeDef, 0, len(m.Types))
	var walk func(types []*TypeDef)
	walk = func(types []*TypeDef) {
		for _, t := range types {
			out = append(out, t)
			walk(t.NestedTypes)
		}
	}
	walk(m.Types)
	return out
}

type Resource struct {
	Name string
	Data []byte
}

type TypeDef struct {
	Namespace        string
	Name             string
	Access           Access
	Flags            TypeFlags
	BaseType         *TypeRef
	Interfaces       []*TypeRef
	GenericParams    []*GenericParam
	NestedTypes      []*TypeDef
	Methods          []*MethodDef
	Fields           []*FieldDef
	Properties       []*PropertyDef
	Events           []*EventDef
	CustomAttributes []*CustomAttribute

	DeclaringType *TypeDef
	Module        *Module
}

func (t *TypeDef) FullName() string {
	if t.DeclaringType != nil {
		return t.DeclaringType.FullName() + "/" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

func (t *TypeDef) Scope() string {
	if t.Module == nil || t.Module.Assembly == nil {
		return ""
	}
	return t.Module.Assembly.Name
}

func (t *TypeDef) Key() keys.TypeKey {
	return keys.NewTypeKey(t.Scope(), t.FullName())
}

func (t *TypeDef) IsInterface() bool { return t.Flags&TypeInterface != 0 }
func (t *TypeDef) IsEnum() bool      { return t.BaseType != nil && t.BaseType.FullName == "System.Enum" }

// IsModuleType reports the compiler-reserved <Module> type.
func (t *TypeDef) IsModuleType() bool {
	return t.DeclaringType == nil && t.Namespace == "" && t.Name == ModuleTypeName
}

// IsPublicAPI reports whether the type is reachable from outside its assembly.
func (t *TypeDef) IsPublicAPI() bool {
	for cur := t; cur != nil; cur = cur.DeclaringType {
		if !cur.Access.VisibleOutside() {
			return false
		}
	}
	return true
}

func (t *TypeDef) Attributes() []*CustomAttribute {
	return t.CustomAttributes
}

// FindMethod looks up a method by name and slot.
func (t *TypeDef) FindMethod(slot keys.Slot) *MethodDef {
	for _, m := range t.Methods {
		if m.Key().Slot() == slot {
			return m
		}
	}
	return nil
}

type GenericParam struct {
	Name string
}

type MethodDef struct {
	Name             string
	Access           Access
	Flags            MethodFlags
	ReturnType       string
	Params           []*ParamDef
	GenericParams    []*GenericParam
	Overrides        []*MemberRef
	Body             []*Instruction
	CustomAttributes []*CustomAttribute

	DeclaringType *TypeDef
}

func (m *MethodDef) Key() keys.MethodKey {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return keys.MethodKey{
		Type:         m.DeclaringType.Key(),
		Name:         m.Name,
		Returns:      m.ReturnType,
		Sig:          keys.NewParamSig(types...),
		GenericArity: len(m.GenericParams),
	}
}

func (m *MethodDef) IsVirtual() bool { return m.Flags&MethodVirtual != 0 }
func (m *MethodDef) IsNewSlot() bool { return m.Flags&MethodNewSlot != 0 }
func (m *MethodDef) IsStatic() bool  { return m.Flags&MethodStatic != 0 }

// IsRuntimeSpecial covers constructors and other runtime-named methods.
func (m *MethodDef) IsRuntimeSpecial() bool {
	return m.Flags&MethodRTSpecialName != 0 || m.Name == ".ctor" || m.Name == ".cctor"
}

// IsOperator reports C#-style operator overloads (op_Addition, op_Implicit, ...).
func (m *MethodDef) IsOperator() bool {
	return m.Flags&MethodSpecialName != 0 && strings.HasPrefix(m.Name, "op_")
}

// IsExplicitImplementation reports an explicit interface implementation thunk.
func (m *MethodDef) IsExplicitImplementation() bool {
	return len(m.Overrides) > 0 && strings.Contains(m.Name, ".")
}

// IsExternal reports methods without IL (P/Invoke, runtime-provided).
func (m *MethodDef) IsExternal() bool {
	return m.Flags&(MethodPInvoke|MethodRuntime) != 0
}

func (m *MethodDef) IsPublicAPI() bool {
	return m.Access.VisibleOutside() && m.DeclaringType.IsPublicAPI()
}

func (m *MethodDef) Attributes() []*CustomAttribute {
	return m.CustomAttributes
}

type ParamDef struct {
	Name             string
	Type             string
	CustomAttributes []*CustomAttribute
}

type FieldDef struct {
	Name             string
	FieldType        string
	Access           Access
	Flags            FieldFlags
	CustomAttributes []*CustomAttribute

	DeclaringType *TypeDef
}

func (f *FieldDef) Key() keys.FieldKey {
	return keys.FieldKey{Type: f.DeclaringType.Key(), Name: f.Name, FieldType: f.FieldType}
}

func (f *FieldDef) IsRuntimeSpecial() bool {
	return f.Flags&FieldRTSpecialName != 0
}

func (f *FieldDef) IsPublicAPI() bool {
	return f.Access.VisibleOutside() && f.DeclaringType.IsPublicAPI()
}

func (f *FieldDef) Attributes() []*CustomAttribute {
	return f.CustomAttributes
}

type PropertyDef struct {
	Name             string
	PropType         string
	Params           []string
	Getter           *MethodDef
	Setter           *MethodDef
	CustomAttributes []*CustomAttribute

	DeclaringType *TypeDef
}

func (p *PropertyDef) Key() keys.PropertyKey {
	return keys.PropertyKey{
		Type:     p.DeclaringType.Key(),
		Name:     p.Name,
		PropType: p.PropType,
		Sig:      keys.NewParamSig(p.Params...),
	}
}

// Accessors returns the non-nil accessor methods.
func (p *PropertyDef) Accessors() []*MethodDef {
	return nonNil(p.Getter, p.Setter)
}

// IsPublicAPI reports whether any accessor is externally visible.
func (p *PropertyDef) IsPublicAPI() bool {
	for _, m := range p.Accessors() {
		if m.IsPublicAPI() {
			return true
		}
	}
	return false
}

func (p *PropertyDef) Attributes() []*CustomAttribute {
	return p.CustomAttributes
}

type EventDef struct {
	Name             string
	EventType        string
	Add              *MethodDef
	Remove           *MethodDef
	Raise            *MethodDef
	CustomAttributes []*CustomAttribute

	DeclaringType *TypeDef
}

func (e *EventDef) Key() keys.EventKey {
	return keys.EventKey{Type: e.DeclaringType.Key(), Name: e.Name, EventType: e.EventType}
}

func (e *EventDef) Accessors() []*MethodDef {
	return nonNil(e.Add, e.Remove, e.Raise)
}

func (e *EventDef) IsPublicAPI() bool {
	for _, m := range e.Accessors() {
		if m.IsPublicAPI() {
			return true
		}
	}
	return false
}

func (e *EventDef) Attributes() []*CustomAttribute {
	return e.CustomAttributes
}

func nonNil(methods ...*MethodDef) []*MethodDef {
	out := make([]*MethodDef, 0, len(methods))
	for _, m := range methods {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
