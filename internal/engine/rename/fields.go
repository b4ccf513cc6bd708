package rename

import (
	"obscura/internal/engine/mapping"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

// RenameFields gives every renamable field a name unique among the fields
// of the same type and field type, then rewrites field references.
func (c *Context) RenameFields() error {
	if err := c.bind(); err != nil {
		return err
	}
	c.each(c.renameFieldsOf)
	c.bound.patchFields()
	return nil
}

func (c *Context) renameFieldsOf(info *project.AssemblyInfo, t *metadata.TypeDef) {
	used := make(nameSet)
	var pending []*metadata.FieldDef
	for _, f := range t.Fields {
		if v := c.fieldVerdict(info, t, f); v.skip {
			c.report.UpdateField(f.Key(), mapping.StatusSkipped, v.reason)
			used.add(f.FieldType, f.Name)
			continue
		}
		pending = append(pending, f)
	}
	scope := t.Key().String()
	for _, f := range pending {
		key := f.Key()
		name := c.names.Next("field", scope, func(n string) bool { return used.has(f.FieldType, n) })
		used.add(f.FieldType, name)
		f.Name = name
		c.report.UpdateField(key, mapping.StatusRenamed, name)
	}
}
