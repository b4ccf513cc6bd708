package image

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
)

// Decode reads one assembly image.
func Decode(r io.Reader) (*metadata.Assembly, error) {
	var doc assemblyDoc
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "malformed assembly image")
	}
	asm, err := fromDoc(&doc)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "malformed assembly image"), errors.CtxAssembly, doc.Name)
	}
	return asm, nil
}

type decoder struct {
	mod        *metadata.Module
	typeRefs   []*metadata.TypeRef
	memberRefs []*metadata.MemberRef
	byName     map[string]*metadata.TypeDef
	// bodies are resolved once every type of the module exists.
	bodies []pendingBody
}

type pendingBody struct {
	method *metadata.MethodDef
	body   []insDoc
}

func fromDoc(doc *assemblyDoc) (*metadata.Assembly, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("assembly name is empty")
	}
	asm := &metadata.Assembly{Name: doc.Name, Version: doc.Version, Signed: doc.Signed}
	if doc.PublicKey != "" {
		key, err := hex.DecodeString(doc.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
		asm.PublicKey = key
	}
	for _, r := range doc.References {
		asm.References = append(asm.References, metadata.AssemblyRef{Name: r.Name, Version: r.Version})
	}
	attrs, err := decodeAttrs(doc.Attributes)
	if err != nil {
		return nil, err
	}
	asm.CustomAttributes = attrs

	for i := range doc.Modules {
		mod, err := decodeModule(&doc.Modules[i])
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", doc.Modules[i].Name, err)
		}
		asm.Modules = append(asm.Modules, mod)
	}
	metadata.Link(asm)
	return asm, nil
}

func decodeModule(doc *moduleDoc) (*metadata.Module, error) {
	d := &decoder{
		mod:    &metadata.Module{Name: doc.Name, MarkupTypeNames: doc.MarkupTypes},
		byName: make(map[string]*metadata.TypeDef),
	}
	for _, raw := range doc.TypeRefs {
		ref, err := parseTypeRef(raw)
		if err != nil {
			return nil, err
		}
		d.typeRefs = append(d.typeRefs, ref)
	}
	d.mod.TypeRefs = d.typeRefs
	for _, mr := range doc.MemberRefs {
		ref, err := decodeMemberRef(mr)
		if err != nil {
			return nil, err
		}
		d.memberRefs = append(d.memberRefs, ref)
	}
	d.mod.MemberRefs = d.memberRefs
	for _, res := range doc.Resources {
		data, err := base64.StdEncoding.DecodeString(res.Data)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", res.Name, err)
		}
		d.mod.Resources = append(d.mod.Resources, &metadata.Resource{Name: res.Name, Data: data})
	}
	for i := range doc.Types {
		t, err := d.decodeType(&doc.Types[i], "")
		if err != nil {
			return nil, err
		}
		d.mod.Types = append(d.mod.Types, t)
	}
	for _, pb := range d.bodies {
		body, err := d.decodeBody(pb.body)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", pb.method.Name, err)
		}
		pb.method.Body = body
	}
	return d.mod, nil
}

func (d *decoder) decodeType(doc *typeDoc, enclosing string) (*metadata.TypeDef, error) {
	t := &metadata.TypeDef{Namespace: doc.Namespace, Name: doc.Name}
	full := doc.Name
	switch {
	case enclosing != "":
		full = enclosing + "/" + doc.Name
		t.Namespace = ""
	case doc.Namespace != "":
		full = doc.Namespace + "." + doc.Name
	}
	if _, dup := d.byName[full]; dup {
		return nil, fmt.Errorf("duplicate type %q", full)
	}
	d.byName[full] = t

	var err error
	if t.Access, err = metadata.ParseAccess(doc.Access); err != nil {
		return nil, fmt.Errorf("type %s: %w", full, err)
	}
	if t.Flags, err = metadata.ParseTypeFlags(doc.Flags); err != nil {
		return nil, fmt.Errorf("type %s: %w", full, err)
	}
	if doc.Base != "" {
		if t.BaseType, err = parseTypeRef(doc.Base); err != nil {
			return nil, err
		}
	}
	for _, raw := range doc.Interfaces {
		ref, err := parseTypeRef(raw)
		if err != nil {
			return nil, err
		}
		t.Interfaces = append(t.Interfaces, ref)
	}
	t.GenericParams = genericParams(doc.GenericParams)
	if t.CustomAttributes, err = decodeAttrs(doc.Attributes); err != nil {
		return nil, err
	}

	for _, f := range doc.Fields {
		fd := &metadata.FieldDef{Name: f.Name, FieldType: f.Type}
		if fd.Access, err = metadata.ParseAccess(f.Access); err != nil {
			return nil, fmt.Errorf("field %s::%s: %w", full, f.Name, err)
		}
		if fd.Flags, err = metadata.ParseFieldFlags(f.Flags); err != nil {
			return nil, fmt.Errorf("field %s::%s: %w", full, f.Name, err)
		}
		if fd.CustomAttributes, err = decodeAttrs(f.Attributes); err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, fd)
	}
	for i := range doc.Methods {
		m, err := d.decodeMethod(&doc.Methods[i])
		if err != nil {
			return nil, fmt.Errorf("method %s::%s: %w", full, doc.Methods[i].Name, err)
		}
		t.Methods = append(t.Methods, m)
	}
	accessor := func(idx *int) (*metadata.MethodDef, error) {
		if idx == nil {
			return nil, nil
		}
		if *idx < 0 || *idx >= len(t.Methods) {
			return nil, fmt.Errorf("accessor index %d out of range in %s", *idx, full)
		}
		return t.Methods[*idx], nil
	}
	for _, p := range doc.Properties {
		pd := &metadata.PropertyDef{Name: p.Name, PropType: p.Type, Params: p.Params}
		if pd.Getter, err = accessor(p.Getter); err != nil {
			return nil, err
		}
		if pd.Setter, err = accessor(p.Setter); err != nil {
			return nil, err
		}
		if pd.CustomAttributes, err = decodeAttrs(p.Attributes); err != nil {
			return nil, err
		}
		t.Properties = append(t.Properties, pd)
	}
	for _, e := range doc.Events {
		ed := &metadata.EventDef{Name: e.Name, EventType: e.Type}
		if ed.Add, err = accessor(e.Add); err != nil {
			return nil, err
		}
		if ed.Remove, err = accessor(e.Remove); err != nil {
			return nil, err
		}
		if ed.Raise, err = accessor(e.Raise); err != nil {
			return nil, err
		}
		if ed.CustomAttributes, err = decodeAttrs(e.Attributes); err != nil {
			return nil, err
		}
		t.Events = append(t.Events, ed)
	}
	for i := range doc.Nested {
		nt, err := d.decodeType(&doc.Nested[i], full)
		if err != nil {
			return nil, err
		}
		t.NestedTypes = append(t.NestedTypes, nt)
	}
	return t, nil
}

func (d *decoder) decodeMethod(doc *methodDoc) (*metadata.MethodDef, error) {
	m := &metadata.MethodDef{Name: doc.Name, ReturnType: doc.Returns}
	if m.ReturnType == "" {
		m.ReturnType = "System.Void"
	}
	var err error
	if m.Access, err = metadata.ParseAccess(doc.Access); err != nil {
		return nil, err
	}
	if m.Flags, err = metadata.ParseMethodFlags(doc.Flags); err != nil {
		return nil, err
	}
	for _, p := range doc.Params {
		pd := &metadata.ParamDef{Name: p.Name, Type: p.Type}
		if pd.CustomAttributes, err = decodeAttrs(p.Attributes); err != nil {
			return nil, err
		}
		m.Params = append(m.Params, pd)
	}
	m.GenericParams = genericParams(doc.GenericParams)
	for _, idx := range doc.Overrides {
		if idx < 0 || idx >= len(d.memberRefs) {
			return nil, fmt.Errorf("override index %d out of range", idx)
		}
		m.Overrides = append(m.Overrides, d.memberRefs[idx])
	}
	if m.CustomAttributes, err = decodeAttrs(doc.Attributes); err != nil {
		return nil, err
	}
	if len(doc.Body) > 0 {
		d.bodies = append(d.bodies, pendingBody{method: m, body: doc.Body})
	}
	return m, nil
}

func (d *decoder) decodeBody(body []insDoc) ([]*metadata.Instruction, error) {
	out := make([]*metadata.Instruction, 0, len(body))
	for i, in := range body {
		ins := &metadata.Instruction{OpCode: in.Op}
		switch {
		case in.String != nil:
			ins.Operand = metadata.StringLiteral(*in.String)
		case in.Int != nil:
			ins.Operand = metadata.IntLiteral(*in.Int)
		case in.TypeRef != nil:
			if *in.TypeRef < 0 || *in.TypeRef >= len(d.typeRefs) {
				return nil, fmt.Errorf("instruction %d: type_ref %d out of range", i, *in.TypeRef)
			}
			ins.Operand = d.typeRefs[*in.TypeRef]
		case in.MemberRef != nil:
			if *in.MemberRef < 0 || *in.MemberRef >= len(d.memberRefs) {
				return nil, fmt.Errorf("instruction %d: member_ref %d out of range", i, *in.MemberRef)
			}
			ins.Operand = d.memberRefs[*in.MemberRef]
		case in.Type != "":
			t, ok := d.byName[in.Type]
			if !ok {
				return nil, fmt.Errorf("instruction %d: unknown type %q", i, in.Type)
			}
			ins.Operand = t
		case in.Method != "":
			t, idx, err := d.local(in.Method)
			if err != nil || idx >= len(t.Methods) {
				return nil, fmt.Errorf("instruction %d: bad method operand %q", i, in.Method)
			}
			ins.Operand = t.Methods[idx]
		case in.Field != "":
			t, idx, err := d.local(in.Field)
			if err != nil || idx >= len(t.Fields) {
				return nil, fmt.Errorf("instruction %d: bad field operand %q", i, in.Field)
			}
			ins.Operand = t.Fields[idx]
		}
		out = append(out, ins)
	}
	return out, nil
}

// local resolves "Full.Name::index".
func (d *decoder) local(raw string) (*metadata.TypeDef, int, error) {
	name, idxText, ok := strings.Cut(raw, "::")
	if !ok {
		return nil, 0, fmt.Errorf("missing member index")
	}
	t, ok := d.byName[name]
	if !ok {
		return nil, 0, fmt.Errorf("unknown type %q", name)
	}
	idx, err := strconv.Atoi(idxText)
	if err != nil || idx < 0 {
		return nil, 0, fmt.Errorf("bad member index %q", idxText)
	}
	return t, idx, nil
}

func decodeMemberRef(doc memberRefDoc) (*metadata.MemberRef, error) {
	declaring, err := parseTypeRef(doc.Declaring)
	if err != nil {
		return nil, err
	}
	ref := &metadata.MemberRef{
		Declaring:    declaring,
		Name:         doc.Name,
		ReturnType:   doc.Returns,
		Params:       doc.Params,
		GenericArity: doc.GenericArity,
	}
	switch doc.Kind {
	case "method", "":
		ref.Kind = metadata.MemberMethod
		if ref.ReturnType == "" {
			ref.ReturnType = "System.Void"
		}
	case "field":
		ref.Kind = metadata.MemberField
	default:
		return nil, fmt.Errorf("unknown member kind %q", doc.Kind)
	}
	return ref, nil
}

func decodeAttrs(docs []attrDoc) ([]*metadata.CustomAttribute, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]*metadata.CustomAttribute, 0, len(docs))
	for _, a := range docs {
		ref, err := parseTypeRef(a.Type)
		if err != nil {
			return nil, err
		}
		ca := &metadata.CustomAttribute{Type: ref}
		for _, arg := range a.Args {
			ca.Args = append(ca.Args, metadata.AttributeArg{Type: arg.Type, Value: arg.Value})
		}
		for _, n := range a.Named {
			ca.Named = append(ca.Named, metadata.NamedArg{
				IsField: n.Field,
				Name:    n.Name,
				Arg:     metadata.AttributeArg{Type: n.Type, Value: n.Value},
			})
		}
		out = append(out, ca)
	}
	return out, nil
}

func parseTypeRef(raw string) (*metadata.TypeRef, error) {
	scope, full, ok := strings.Cut(raw, ":")
	if !ok || scope == "" || full == "" {
		return nil, fmt.Errorf("type reference %q is not scope:name", raw)
	}
	return &metadata.TypeRef{Scope: scope, FullName: full}, nil
}

func formatTypeRef(r *metadata.TypeRef) string {
	return r.Scope + ":" + r.FullName
}

func genericParams(names []string) []*metadata.GenericParam {
	if len(names) == 0 {
		return nil
	}
	out := make([]*metadata.GenericParam, len(names))
	for i, n := range names {
		out[i] = &metadata.GenericParam{Name: n}
	}
	return out
}
