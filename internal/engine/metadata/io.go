package metadata

// Reader turns an on-disk assembly into the in-memory model. Implementations
// read the whole file and release it before returning.
type Reader interface {
	ReadAssembly(path string) (*Assembly, error)
	// Extensions lists file suffixes probed when resolving a dependency by name.
	Extensions() []string
}

type WriteOptions struct {
	// KeyFile re-signs the output with a strong-name key pair when set.
	KeyFile string
}

// Writer serializes the model. A failure may leave a partial file behind.
type Writer interface {
	WriteAssembly(asm *Assembly, path string, opts WriteOptions) error
}

// VisitTypeNames calls visit with a pointer to every type-name string stored in a
// module, so renames can be propagated into signatures and attribute blobs.
// scope is the resolution scope of a TypeRef name and empty for signature
// strings, which carry no scope of their own.
func VisitTypeNames(mod *Module, visit func(name *string, scope string)) {
	seen := make(map[*TypeRef]bool)
	ref := func(r *TypeRef) {
		if r == nil || seen[r] {
			return
		}
		seen[r] = true
		visit(&r.FullName, r.Scope)
	}
	seenMember := make(map[*MemberRef]bool)
	member := func(mr *MemberRef) {
		if mr == nil || seenMember[mr] {
			return
		}
		seenMember[mr] = true
		ref(mr.Declaring)
		visit(&mr.ReturnType, "")
		for i := range mr.Params {
			visit(&mr.Params[i], "")
		}
	}
	attrs := func(list []*CustomAttribute) {
		for _, ca := range list {
			ref(ca.Type)
			for i := range ca.Args {
				visit(&ca.Args[i].Type, "")
				if ca.Args[i].IsTypeArg() {
					visit(&ca.Args[i].Value, "")
				}
			}
			for i := range ca.Named {
				visit(&ca.Named[i].Arg.Type, "")
				if ca.Named[i].Arg.IsTypeArg() {
					visit(&ca.Named[i].Arg.Value, "")
				}
			}
		}
	}

	for _, r := range mod.TypeRefs {
		ref(r)
	}
	for _, mr := range mod.MemberRefs {
		member(mr)
	}
	if mod.Assembly != nil && mod.Assembly.MainModule() == mod {
		attrs(mod.Assembly.CustomAttributes)
	}
	for _, t := range mod.AllTypes() {
		ref(t.BaseType)
		for _, i := range t.Interfaces {
			ref(i)
		}
		attrs(t.CustomAttributes)
		for _, m := range t.Methods {
			visit(&m.ReturnType, "")
			for _, p := range m.Params {
				visit(&p.Type, "")
				attrs(p.CustomAttributes)
			}
			for _, o := range m.Overrides {
				member(o)
			}
			for _, ins := range m.Body {
				switch op := ins.Operand.(type) {
				case *TypeRef:
					ref(op)
				case *MemberRef:
					member(op)
				}
			}
			attrs(m.CustomAttributes)
		}
		for _, f := range t.Fields {
			visit(&f.FieldType, "")
			attrs(f.CustomAttributes)
		}
		for _, p := range t.Properties {
			visit(&p.PropType, "")
			for i := range p.Params {
				visit(&p.Params[i], "")
			}
			attrs(p.CustomAttributes)
		}
		for _, e := range t.Events {
			visit(&e.EventType, "")
			attrs(e.CustomAttributes)
		}
	}
}
