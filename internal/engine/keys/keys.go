// Package keys holds the immutable identity descriptors used to index the rename plan.
// All keys are comparable values so they can be used directly as map keys.
package keys

import (
	"fmt"
	"strings"
)

// TypeKey identifies a type by assembly scope, namespace, name and enclosing chain.
// Nested types carry an empty Namespace and the enclosing type's full name in Declaring.
type TypeKey struct {
	Scope     string
	Namespace string
	Name      string
	Declaring string
}

// NewTypeKey parses a CLI full name ("Ns.Outer/Inner") in the given scope.
// Generic instantiation arguments are stripped.
func NewTypeKey(scope, fullName string) TypeKey {
	fullName = StripGenericArgs(fullName)
	if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
		return TypeKey{Scope: scope, Name: fullName[idx+1:], Declaring: fullName[:idx]}
	}
	ns, name := SplitNamespace(fullName)
	return TypeKey{Scope: scope, Namespace: ns, Name: name}
}

// Fullname returns the scope-less CLI full name.
func (k TypeKey) Fullname() string {
	if k.Declaring != "" {
		return k.Declaring + "/" + k.Name
	}
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "." + k.Name
}

// IsNested reports whether the type is declared inside another type.
func (k TypeKey) IsNested() bool {
	return k.Declaring != ""
}

// RootNamespace is the namespace of the outermost enclosing type.
func (k TypeKey) RootNamespace() string {
	if k.Declaring == "" {
		return k.Namespace
	}
	outer := k.Declaring
	if idx := strings.Index(outer, "/"); idx >= 0 {
		outer = outer[:idx]
	}
	ns, _ := SplitNamespace(outer)
	return ns
}

// DeclaringKey returns the key of the enclosing type; ok is false for top-level types.
func (k TypeKey) DeclaringKey() (TypeKey, bool) {
	if k.Declaring == "" {
		return TypeKey{}, false
	}
	return NewTypeKey(k.Scope, k.Declaring), true
}

func (k TypeKey) String() string {
	return fmt.Sprintf("[%s]%s", k.Scope, k.Fullname())
}

// Compare orders type keys by scope then full name.
func (k TypeKey) Compare(o TypeKey) int {
	if c := strings.Compare(k.Scope, o.Scope); c != 0 {
		return c
	}
	return strings.Compare(k.Fullname(), o.Fullname())
}

// MethodKey identifies a method by owner, name, return type and parameter signature.
type MethodKey struct {
	Type         TypeKey
	Name         string
	Returns      string
	Sig          ParamSig
	GenericArity int
}

// Slot returns the owner-independent part of the key used to match overrides.
func (k MethodKey) Slot() Slot {
	return Slot{Name: k.Name, Returns: k.Returns, Sig: k.Sig, GenericArity: k.GenericArity}
}

func (k MethodKey) String() string {
	return fmt.Sprintf("%s %s::%s%s", k.Returns, k.Type, k.Name, k.Sig)
}

// Slot is a method identity without its declaring type.
type Slot struct {
	Name         string
	Returns      string
	Sig          ParamSig
	GenericArity int
}

// Substitute closes the slot's type generic parameters over args.
func (s Slot) Substitute(args []string) Slot {
	if len(args) == 0 {
		return s
	}
	types := s.Sig.Types()
	for i := range types {
		types[i] = SubstituteGenerics(types[i], args)
	}
	return Slot{
		Name:         s.Name,
		Returns:      SubstituteGenerics(s.Returns, args),
		Sig:          NewParamSig(types...),
		GenericArity: s.GenericArity,
	}
}

// FieldKey identifies a field by owner, name and field type.
type FieldKey struct {
	Type      TypeKey
	Name      string
	FieldType string
}

func (k FieldKey) String() string {
	return fmt.Sprintf("%s %s::%s", k.FieldType, k.Type, k.Name)
}

// PropertyKey identifies a property; Sig is non-empty for indexers.
type PropertyKey struct {
	Type     TypeKey
	Name     string
	PropType string
	Sig      ParamSig
}

func (k PropertyKey) String() string {
	if k.Sig.Len() == 0 {
		return fmt.Sprintf("%s %s::%s", k.PropType, k.Type, k.Name)
	}
	return fmt.Sprintf("%s %s::%s%s", k.PropType, k.Type, k.Name, k.Sig)
}

// EventKey identifies an event by owner, name and delegate type.
type EventKey struct {
	Type      TypeKey
	Name      string
	EventType string
}

func (k EventKey) String() string {
	return fmt.Sprintf("%s %s::%s", k.EventType, k.Type, k.Name)
}
