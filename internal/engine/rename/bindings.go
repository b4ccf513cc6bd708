package rename

import (
	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

type methodBinding struct {
	ref *metadata.MemberRef
	def *metadata.MethodDef
}

type fieldBinding struct {
	ref *metadata.MemberRef
	def *metadata.FieldDef
}

// namedBinding ties a custom attribute's named argument to the member it sets.
type namedBinding struct {
	arg   *metadata.NamedArg
	field *metadata.FieldDef
	prop  *metadata.PropertyDef
}

// bindings resolve by-name references to their definitions up front, so
// they can be rewritten after the definitions change name.
type bindings struct {
	methods []methodBinding
	fields  []fieldBinding
	named   []namedBinding
}

func (c *Context) bind() error {
	if c.bound != nil {
		return nil
	}
	b := &bindings{}
	for _, info := range c.project.Assemblies() {
		for _, ref := range info.MemberRefs() {
			switch ref.Kind {
			case metadata.MemberMethod:
				def, err := c.project.ResolveMethodRef(ref)
				if err != nil {
					return errors.AddContext(err, errors.CtxAssembly, info.Name())
				}
				b.methods = append(b.methods, methodBinding{ref: ref, def: def})
			case metadata.MemberField:
				def, err := c.project.ResolveFieldRef(ref)
				if err != nil {
					return errors.AddContext(err, errors.CtxAssembly, info.Name())
				}
				b.fields = append(b.fields, fieldBinding{ref: ref, def: def})
			}
		}
		var err error
		forEachAttribute(info.Definition(), func(ca *metadata.CustomAttribute) {
			if err == nil {
				err = c.bindNamedArgs(b, ca)
			}
		})
		if err != nil {
			return errors.AddContext(err, errors.CtxAssembly, info.Name())
		}
	}
	c.bound = b
	return nil
}

func (c *Context) bindNamedArgs(b *bindings, ca *metadata.CustomAttribute) error {
	if ca.Type == nil || len(ca.Named) == 0 || !c.project.Contains(ca.Type.Scope) {
		return nil
	}
	t, err := c.project.ResolveType(ca.Type)
	if err != nil {
		return err
	}
	for i := range ca.Named {
		arg := &ca.Named[i]
		if arg.IsField {
			if f, ok := findInHierarchy(c.project, t, fieldNamed(arg.Name)); ok {
				b.named = append(b.named, namedBinding{arg: arg, field: f})
			}
			continue
		}
		if p, ok := findInHierarchy(c.project, t, propertyNamed(arg.Name)); ok {
			b.named = append(b.named, namedBinding{arg: arg, prop: p})
		}
	}
	return nil
}

// findInHierarchy walks t and its project base types until find succeeds.
func findInHierarchy[T any](p *project.Project, t *metadata.TypeDef, find func(*metadata.TypeDef) (T, bool)) (T, bool) {
	for t != nil && p.IsProjectType(t) {
		if v, ok := find(t); ok {
			return v, true
		}
		if t.BaseType == nil {
			break
		}
		next, err := p.ResolveType(t.BaseType)
		if err != nil {
			break
		}
		t = next
	}
	var zero T
	return zero, false
}

func fieldNamed(name string) func(*metadata.TypeDef) (*metadata.FieldDef, bool) {
	return func(t *metadata.TypeDef) (*metadata.FieldDef, bool) {
		for _, f := range t.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return nil, false
	}
}

func propertyNamed(name string) func(*metadata.TypeDef) (*metadata.PropertyDef, bool) {
	return func(t *metadata.TypeDef) (*metadata.PropertyDef, bool) {
		for _, p := range t.Properties {
			if p.Name == name {
				return p, true
			}
		}
		return nil, false
	}
}

func (b *bindings) patchMethods() {
	for _, x := range b.methods {
		x.ref.Name = x.def.Name
	}
}

func (b *bindings) patchFields() {
	for _, x := range b.fields {
		x.ref.Name = x.def.Name
	}
	for _, x := range b.named {
		if x.field != nil {
			x.arg.Name = x.field.Name
		}
	}
}

func (b *bindings) patchProperties() {
	for _, x := range b.named {
		if x.prop != nil {
			x.arg.Name = x.prop.Name
		}
	}
}

// forEachAttribute visits every custom attribute stored in an assembly.
func forEachAttribute(asm *metadata.Assembly, fn func(*metadata.CustomAttribute)) {
	each := func(list []*metadata.CustomAttribute) {
		for _, ca := range list {
			fn(ca)
		}
	}
	each(asm.CustomAttributes)
	for _, mod := range asm.Modules {
		for _, t := range mod.AllTypes() {
			each(t.CustomAttributes)
			for _, m := range t.Methods {
				each(m.CustomAttributes)
				for _, p := range m.Params {
					each(p.CustomAttributes)
				}
			}
			for _, f := range t.Fields {
				each(f.CustomAttributes)
			}
			for _, p := range t.Properties {
				each(p.CustomAttributes)
			}
			for _, e := range t.Events {
				each(e.CustomAttributes)
			}
		}
	}
}
