package image

import (
	"encoding/base64"
	"encoding/hex"
	"io"
	"strconv"

	"github.com/BurntSushi/toml"

	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
)

// Encode writes one assembly image. References that instructions or overrides
// use but the module tables lack are appended to the written tables.
func Encode(w io.Writer, asm *metadata.Assembly) error {
	doc := toDoc(asm)
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return errors.Wrap(err, errors.CodeIO, "encode assembly image")
	}
	return nil
}

type encoder struct {
	doc        *moduleDoc
	typeRefs   map[*metadata.TypeRef]int
	memberRefs map[*metadata.MemberRef]int
	methods    map[*metadata.MethodDef]string
	fields     map[*metadata.FieldDef]string
}

func toDoc(asm *metadata.Assembly) *assemblyDoc {
	doc := &assemblyDoc{
		Name:       asm.Name,
		Version:    asm.Version,
		Signed:     asm.Signed,
		Attributes: encodeAttrs(asm.CustomAttributes),
	}
	if len(asm.PublicKey) > 0 {
		doc.PublicKey = hex.EncodeToString(asm.PublicKey)
	}
	for _, r := range asm.References {
		doc.References = append(doc.References, refDoc{Name: r.Name, Version: r.Version})
	}
	for _, mod := range asm.Modules {
		doc.Modules = append(doc.Modules, encodeModule(mod))
	}
	return doc
}

func encodeModule(mod *metadata.Module) moduleDoc {
	md := moduleDoc{Name: mod.Name, MarkupTypes: mod.MarkupTypeNames}
	e := &encoder{
		doc:        &md,
		typeRefs:   make(map[*metadata.TypeRef]int),
		memberRefs: make(map[*metadata.MemberRef]int),
		methods:    make(map[*metadata.MethodDef]string),
		fields:     make(map[*metadata.FieldDef]string),
	}
	for _, r := range mod.TypeRefs {
		e.typeRef(r)
	}
	for _, r := range mod.MemberRefs {
		e.memberRef(r)
	}
	for _, t := range mod.AllTypes() {
		full := t.FullName()
		for i, m := range t.Methods {
			e.methods[m] = full + "::" + strconv.Itoa(i)
		}
		for i, f := range t.Fields {
			e.fields[f] = full + "::" + strconv.Itoa(i)
		}
	}
	for _, res := range mod.Resources {
		md.Resources = append(md.Resources, resourceDoc{
			Name: res.Name,
			Data: base64.StdEncoding.EncodeToString(res.Data),
		})
	}
	for _, t := range mod.Types {
		md.Types = append(md.Types, e.encodeType(t))
	}
	return md
}

func (e *encoder) typeRef(r *metadata.TypeRef) int {
	if idx, ok := e.typeRefs[r]; ok {
		return idx
	}
	idx := len(e.doc.TypeRefs)
	e.doc.TypeRefs = append(e.doc.TypeRefs, formatTypeRef(r))
	e.typeRefs[r] = idx
	return idx
}

func (e *encoder) memberRef(r *metadata.MemberRef) int {
	if idx, ok := e.memberRefs[r]; ok {
		return idx
	}
	kind := "method"
	returns := r.ReturnType
	if r.Kind == metadata.MemberField {
		kind = "field"
	} else if returns == "System.Void" {
		returns = ""
	}
	idx := len(e.doc.MemberRefs)
	e.doc.MemberRefs = append(e.doc.MemberRefs, memberRefDoc{
		Kind:         kind,
		Declaring:    formatTypeRef(r.Declaring),
		Name:         r.Name,
		Returns:      returns,
		Params:       r.Params,
		GenericArity: r.GenericArity,
	})
	e.memberRefs[r] = idx
	return idx
}

func (e *encoder) encodeType(t *metadata.TypeDef) typeDoc {
	td := typeDoc{
		Namespace:     t.Namespace,
		Name:          t.Name,
		Access:        t.Access.String(),
		Flags:         t.Flags.Names(),
		GenericParams: paramNames(t.GenericParams),
		Attributes:    encodeAttrs(t.CustomAttributes),
	}
	if t.BaseType != nil {
		td.Base = formatTypeRef(t.BaseType)
	}
	for _, i := range t.Interfaces {
		td.Interfaces = append(td.Interfaces, formatTypeRef(i))
	}
	for _, f := range t.Fields {
		td.Fields = append(td.Fields, fieldDoc{
			Name:       f.Name,
			Type:       f.FieldType,
			Access:     f.Access.String(),
			Flags:      f.Flags.Names(),
			Attributes: encodeAttrs(f.CustomAttributes),
		})
	}
	index := make(map[*metadata.MethodDef]int, len(t.Methods))
	for i, m := range t.Methods {
		index[m] = i
		td.Methods = append(td.Methods, e.encodeMethod(m))
	}
	accessor := func(m *metadata.MethodDef) *int {
		if m == nil {
			return nil
		}
		if i, ok := index[m]; ok {
			return &i
		}
		return nil
	}
	for _, p := range t.Properties {
		td.Properties = append(td.Properties, propertyDoc{
			Name:       p.Name,
			Type:       p.PropType,
			Params:     p.Params,
			Getter:     accessor(p.Getter),
			Setter:     accessor(p.Setter),
			Attributes: encodeAttrs(p.CustomAttributes),
		})
	}
	for _, ev := range t.Events {
		td.Events = append(td.Events, eventDoc{
			Name:       ev.Name,
			Type:       ev.EventType,
			Add:        accessor(ev.Add),
			Remove:     accessor(ev.Remove),
			Raise:      accessor(ev.Raise),
			Attributes: encodeAttrs(ev.CustomAttributes),
		})
	}
	for _, nt := range t.NestedTypes {
		td.Nested = append(td.Nested, e.encodeType(nt))
	}
	return td
}

func (e *encoder) encodeMethod(m *metadata.MethodDef) methodDoc {
	md := methodDoc{
		Name:          m.Name,
		Access:        m.Access.String(),
		Flags:         m.Flags.Names(),
		GenericParams: paramNames(m.GenericParams),
		Attributes:    encodeAttrs(m.CustomAttributes),
	}
	if m.ReturnType != "System.Void" {
		md.Returns = m.ReturnType
	}
	for _, p := range m.Params {
		md.Params = append(md.Params, paramDoc{Name: p.Name, Type: p.Type, Attributes: encodeAttrs(p.CustomAttributes)})
	}
	for _, o := range m.Overrides {
		md.Overrides = append(md.Overrides, e.memberRef(o))
	}
	for _, ins := range m.Body {
		md.Body = append(md.Body, e.encodeInstruction(ins))
	}
	return md
}

func (e *encoder) encodeInstruction(ins *metadata.Instruction) insDoc {
	in := insDoc{Op: ins.OpCode}
	switch op := ins.Operand.(type) {
	case metadata.StringLiteral:
		s := string(op)
		in.String = &s
	case metadata.IntLiteral:
		v := int64(op)
		in.Int = &v
	case *metadata.TypeRef:
		idx := e.typeRef(op)
		in.TypeRef = &idx
	case *metadata.MemberRef:
		idx := e.memberRef(op)
		in.MemberRef = &idx
	case *metadata.TypeDef:
		in.Type = op.FullName()
	case *metadata.MethodDef:
		in.Method = e.methods[op]
	case *metadata.FieldDef:
		in.Field = e.fields[op]
	}
	return in
}

func encodeAttrs(attrs []*metadata.CustomAttribute) []attrDoc {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attrDoc, 0, len(attrs))
	for _, ca := range attrs {
		ad := attrDoc{Type: formatTypeRef(ca.Type)}
		for _, a := range ca.Args {
			ad.Args = append(ad.Args, argDoc{Type: a.Type, Value: a.Value})
		}
		for _, n := range ca.Named {
			ad.Named = append(ad.Named, namedDoc{Field: n.IsField, Name: n.Name, Type: n.Arg.Type, Value: n.Arg.Value})
		}
		out = append(out, ad)
	}
	return out
}

func paramNames(params []*metadata.GenericParam) []string {
	if len(params) == 0 {
		return nil
	}
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}
