package rename

import (
	"strings"

	"obscura/internal/engine/mapping"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

// RenameProperties renames properties. A property kept for policy reasons
// pins its accessors so the methods phase keeps them too.
func (c *Context) RenameProperties() error {
	if err := c.bind(); err != nil {
		return err
	}
	c.each(c.renamePropertiesOf)
	c.bound.patchProperties()
	return nil
}

func (c *Context) renamePropertiesOf(info *project.AssemblyInfo, t *metadata.TypeDef) {
	used := make(nameSet)
	var pending []*metadata.PropertyDef
	for _, p := range t.Properties {
		v, pin := c.propertyVerdict(info, t, p)
		if v.skip {
			c.report.UpdateProperty(p.Key(), mapping.StatusSkipped, v.reason)
			used.add(propertySig(p), p.Name)
			if pin {
				c.pin(p.Accessors(), reasonProperty)
			}
			continue
		}
		pending = append(pending, p)
	}
	scope := t.Key().String()
	for _, p := range pending {
		key, sig := p.Key(), propertySig(p)
		name := c.names.Next("property", scope, func(n string) bool { return used.has(sig, n) })
		used.add(sig, name)
		p.Name = name
		c.report.UpdateProperty(key, mapping.StatusRenamed, name)
	}
}

func (c *Context) propertyVerdict(info *project.AssemblyInfo, t *metadata.TypeDef, p *metadata.PropertyDef) (verdict, bool) {
	switch {
	case t.IsModuleType():
		return skip(reasonCompilerReserved), false
	case info.IsMarkupBound(t):
		return skip(reasonMarkup), false
	case c.externalAccessor(p.Accessors()):
		return skip(reasonExternal), true
	}
	if v := c.decide(p, t, p.IsPublicAPI(), info.ShouldSkipProperty(p)); v.skip {
		return v, true
	}
	if !c.opts.RenameProperties {
		return skip(reasonNoProperties), false
	}
	return verdict{}, false
}

func propertySig(p *metadata.PropertyDef) string {
	return p.PropType + "(" + strings.Join(p.Params, ",") + ")"
}

// RenameEvents renames events, pinning accessors of kept events.
func (c *Context) RenameEvents() error {
	c.each(c.renameEventsOf)
	return nil
}

func (c *Context) renameEventsOf(info *project.AssemblyInfo, t *metadata.TypeDef) {
	used := make(nameSet)
	var pending []*metadata.EventDef
	for _, e := range t.Events {
		v, pin := c.eventVerdict(info, t, e)
		if v.skip {
			c.report.UpdateEvent(e.Key(), mapping.StatusSkipped, v.reason)
			used.add(e.EventType, e.Name)
			if pin {
				c.pin(e.Accessors(), reasonEvent)
			}
			continue
		}
		pending = append(pending, e)
	}
	scope := t.Key().String()
	for _, e := range pending {
		key := e.Key()
		name := c.names.Next("event", scope, func(n string) bool { return used.has(e.EventType, n) })
		used.add(e.EventType, name)
		e.Name = name
		c.report.UpdateEvent(key, mapping.StatusRenamed, name)
	}
}

func (c *Context) eventVerdict(info *project.AssemblyInfo, t *metadata.TypeDef, e *metadata.EventDef) (verdict, bool) {
	switch {
	case t.IsModuleType():
		return skip(reasonCompilerReserved), false
	case info.IsMarkupBound(t):
		return skip(reasonMarkup), false
	case c.externalAccessor(e.Accessors()):
		return skip(reasonExternal), true
	}
	if v := c.decide(e, t, e.IsPublicAPI(), info.ShouldSkipEvent(e)); v.skip {
		return v, true
	}
	if !c.opts.RenameEvents {
		return skip(reasonNoEvents), false
	}
	return verdict{}, false
}

func (c *Context) externalAccessor(accessors []*metadata.MethodDef) bool {
	for _, m := range accessors {
		if g := c.groups.Group(m); g != nil && g.External {
			return true
		}
	}
	return false
}

// pin keeps accessor names and records why in the report.
func (c *Context) pin(accessors []*metadata.MethodDef, reason string) {
	for _, m := range accessors {
		if _, ok := c.forced[m]; ok {
			continue
		}
		c.forced[m] = reason
		c.report.UpdateMethod(m.Key(), mapping.StatusSkipped, reason)
	}
}
