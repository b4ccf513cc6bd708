package rename

import (
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

// RenameParams clears parameter names and renames generic parameters of
// methods and types that are not kept by policy. Nothing binds to these
// names, so no references need patching and nothing is reported.
func (c *Context) RenameParams() error {
	c.each(c.renameParamsOf)
	return nil
}

func (c *Context) renameParamsOf(info *project.AssemblyInfo, t *metadata.TypeDef) {
	if t.IsModuleType() {
		return
	}
	if !c.typeVerdict(info, t).skip {
		for i, gp := range t.GenericParams {
			gp.Name = UniqueName(i)
		}
	}
	for _, m := range t.Methods {
		if c.decide(m, t, m.IsPublicAPI(), info.ShouldSkipMethod(m)).skip {
			continue
		}
		for _, p := range m.Params {
			p.Name = ""
		}
		for i, gp := range m.GenericParams {
			gp.Name = UniqueName(i)
		}
	}
}
