package metadata

import "obscura/internal/engine/keys"

// TypeRef names a type by defining assembly and full name. The full name may
// carry instantiation arguments ("Acme.IHandler`1<System.Int32>").
type TypeRef struct {
	Scope    string
	FullName string
}

func (r *TypeRef) Key() keys.TypeKey {
	return keys.NewTypeKey(r.Scope, r.FullName)
}

// GenericArgs returns the instantiation arguments, if any.
func (r *TypeRef) GenericArgs() []string {
	return keys.GenericArgs(r.FullName)
}

type MemberKind int

const (
	MemberMethod MemberKind = iota
	MemberField
)

// MemberRef is a reference to a member through its declaring type, as used by
// IL operands that cross module boundaries.
type MemberRef struct {
	Kind         MemberKind
	Declaring    *TypeRef
	Name         string
	ReturnType   string
	Params       []string
	GenericArity int
}

func (r *MemberRef) MethodKey() keys.MethodKey {
	return keys.MethodKey{
		Type:         r.Declaring.Key(),
		Name:         r.Name,
		Returns:      r.ReturnType,
		Sig:          keys.NewParamSig(r.Params...),
		GenericArity: r.GenericArity,
	}
}

func (r *MemberRef) FieldKey() keys.FieldKey {
	return keys.FieldKey{Type: r.Declaring.Key(), Name: r.Name, FieldType: r.ReturnType}
}

// Operand is an IL instruction operand.
type Operand interface {
	operand()
}

// StringLiteral is the operand of ldstr.
type StringLiteral string

// IntLiteral is a numeric immediate.
type IntLiteral int64

func (*MethodDef) operand()    {}
func (*FieldDef) operand()     {}
func (*TypeDef) operand()      {}
func (*MemberRef) operand()    {}
func (*TypeRef) operand()      {}
func (StringLiteral) operand() {}
func (IntLiteral) operand()    {}

type Instruction struct {
	OpCode  string
	Operand Operand
}
