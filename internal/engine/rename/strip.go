package rename

import "obscura/internal/engine/metadata"

// StripMarkers removes obfuscation markers whose StripAfterObfuscation flag is
// set (the default) from every project assembly and returns how many went.
func (c *Context) StripMarkers() int {
	removed := 0
	filter := func(list []*metadata.CustomAttribute) []*metadata.CustomAttribute {
		out := list[:0]
		for _, ca := range list {
			if ca.Type != nil && ca.Type.FullName == obfuscationAttribute && ca.NamedBool("StripAfterObfuscation", true) {
				removed++
				continue
			}
			out = append(out, ca)
		}
		return out
	}
	for _, info := range c.project.Assemblies() {
		asm := info.Definition()
		asm.CustomAttributes = filter(asm.CustomAttributes)
		for _, mod := range asm.Modules {
			for _, t := range mod.AllTypes() {
				t.CustomAttributes = filter(t.CustomAttributes)
				for _, m := range t.Methods {
					m.CustomAttributes = filter(m.CustomAttributes)
				}
				for _, f := range t.Fields {
					f.CustomAttributes = filter(f.CustomAttributes)
				}
				for _, p := range t.Properties {
					p.CustomAttributes = filter(p.CustomAttributes)
				}
				for _, e := range t.Events {
					e.CustomAttributes = filter(e.CustomAttributes)
				}
			}
		}
	}
	return removed
}
