package project

import (
	"obscura/internal/core/errors"
	"obscura/internal/engine/keys"
	"obscura/internal/engine/metadata"
)

// ResolveType finds the definition a reference points at, searching project
// assemblies first and loading dependencies on demand.
func (p *Project) ResolveType(ref *metadata.TypeRef) (*metadata.TypeDef, error) {
	if ref == nil {
		return nil, errors.New(errors.CodeInternal, "nil type reference")
	}
	return p.ResolveKey(ref.Key())
}

func (p *Project) ResolveKey(k keys.TypeKey) (*metadata.TypeDef, error) {
	if t, ok := p.types.Get(k); ok {
		return t, nil
	}
	var asm *metadata.Assembly
	if info, ok := p.Lookup(k.Scope); ok {
		asm = info.definition
	} else {
		dep, err := p.dependency(k.Scope)
		if err != nil {
			return nil, err
		}
		asm = dep
	}
	for _, mod := range asm.Modules {
		for _, t := range mod.AllTypes() {
			if t.Key() == k {
				p.types.Add(k, t)
				return t, nil
			}
		}
	}
	return nil, errors.Newf(errors.CodeResolution, "type %s not found in assembly %s", k.Fullname(), k.Scope)
}

// IsProjectType reports whether t belongs to an assembly being obfuscated.
func (p *Project) IsProjectType(t *metadata.TypeDef) bool {
	return p.Contains(t.Scope())
}

// InvalidateTypes drops cached resolutions; call it after type names change.
func (p *Project) InvalidateTypes() {
	p.types.Purge()
}

// ResolveMethodRef finds the method a reference binds to, walking base types
// when the reference names a derived type that inherits the method.
func (p *Project) ResolveMethodRef(ref *metadata.MemberRef) (*metadata.MethodDef, error) {
	t, err := p.ResolveType(ref.Declaring)
	if err != nil {
		return nil, err
	}
	slot := ref.MethodKey().Slot()
	args := ref.Declaring.GenericArgs()
	for t != nil {
		for _, m := range t.Methods {
			if m.Key().Slot() == slot || m.Key().Slot().Substitute(args) == slot {
				return m, nil
			}
		}
		if t.BaseType == nil {
			break
		}
		next, err := p.ResolveType(t.BaseType)
		if err != nil {
			return nil, err
		}
		args = substituteAll(t.BaseType.GenericArgs(), args)
		t = next
	}
	return nil, errors.Newf(errors.CodeResolution, "method %s not found", ref.MethodKey())
}

// ResolveFieldRef is ResolveMethodRef for fields.
func (p *Project) ResolveFieldRef(ref *metadata.MemberRef) (*metadata.FieldDef, error) {
	t, err := p.ResolveType(ref.Declaring)
	if err != nil {
		return nil, err
	}
	for t != nil {
		for _, f := range t.Fields {
			if f.Name == ref.Name {
				return f, nil
			}
		}
		if t.BaseType == nil {
			break
		}
		if t, err = p.ResolveType(t.BaseType); err != nil {
			return nil, err
		}
	}
	return nil, errors.Newf(errors.CodeResolution, "field %s not found", ref.FieldKey())
}

func substituteAll(names, args []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = keys.SubstituteGenerics(n, args)
	}
	return out
}
