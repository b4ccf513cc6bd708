package metadata

// Link sets the back-pointers (module → assembly, type → module/declaring type,
// member → declaring type). Readers and hand-built models call it once after
// construction.
func Link(asm *Assembly) {
	for _, mod := range asm.Modules {
		mod.Assembly = asm
		linkTypes(mod, nil, mod.Types)
	}
}

func linkTypes(mod *Module, declaring *TypeDef, types []*TypeDef) {
	for _, t := range types {
		t.Module = mod
		t.DeclaringType = declaring
		if declaring != nil {
			t.Namespace = ""
		}
		for _, m := range t.Methods {
			m.DeclaringType = t
		}
		for _, f := range t.Fields {
			f.DeclaringType = t
		}
		for _, p := range t.Properties {
			p.DeclaringType = t
		}
		for _, e := range t.Events {
			e.DeclaringType = t
		}
		linkTypes(mod, t, t.NestedTypes)
	}
}
