package rename

import (
	"obscura/internal/engine/closure"
	"obscura/internal/engine/keys"
	"obscura/internal/engine/mapping"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

type methodPlan struct {
	def     *metadata.MethodDef
	key     keys.MethodKey
	group   *closure.Group
	verdict verdict
	newName string
}

// RenameMethods decides every method, reserves the names of kept methods,
// assigns one name per override group and per standalone method, then
// rewrites method references in all project assemblies.
func (c *Context) RenameMethods() error {
	if err := c.bind(); err != nil {
		return err
	}
	groupVerdicts := c.pinnedGroups()

	var plans []*methodPlan
	c.each(func(info *project.AssemblyInfo, t *metadata.TypeDef) {
		for _, m := range t.Methods {
			p := &methodPlan{def: m, key: m.Key(), group: c.groups.Group(m)}
			p.verdict = c.planMethod(info, t, m, p.group, groupVerdicts)
			plans = append(plans, p)
		}
	})

	used := newMethodNames(c.groups)
	for _, p := range plans {
		if p.verdict.skip {
			used.reserve(p.def, p.def.Name)
		}
	}

	groupNames := make(map[int]string)
	for _, p := range plans {
		if p.verdict.skip {
			continue
		}
		if p.group == nil {
			p.newName = c.names.Next("method", p.key.Type.String(), func(n string) bool { return used.taken(p.def, n) })
			used.reserve(p.def, p.newName)
			continue
		}
		if name, ok := groupNames[p.group.ID]; ok {
			p.newName = name
			continue
		}
		members := p.group.Methods
		p.newName = c.names.Next("method", p.key.Type.String(), func(n string) bool {
			for _, m := range members {
				if used.taken(m, n) {
					return true
				}
			}
			return false
		})
		for _, m := range members {
			used.reserve(m, p.newName)
		}
		groupNames[p.group.ID] = p.newName
	}

	for _, p := range plans {
		if p.verdict.skip {
			c.report.UpdateMethod(p.key, mapping.StatusSkipped, p.verdict.reason)
			continue
		}
		p.def.Name = p.newName
		c.report.UpdateMethod(p.key, mapping.StatusRenamed, p.newName)
	}
	c.bound.patchMethods()
	return nil
}

// pinnedGroups settles groups whose outcome does not depend on iteration
// order: external groups, groups with a member that can never be renamed,
// and groups with a member pinned by its property or event.
func (c *Context) pinnedGroups() map[int]verdict {
	out := make(map[int]verdict)
	for _, g := range c.groups.Groups() {
		if g.External {
			out[g.ID] = skip(reasonExternal)
			continue
		}
		for _, m := range g.Methods {
			if v, ok := fixedMethodVerdict(m.DeclaringType, m); ok {
				out[g.ID] = v
				break
			}
			if reason, ok := c.forced[m]; ok {
				out[g.ID] = skip(reason)
				break
			}
		}
	}
	return out
}

// planMethod decides a method. Grouped methods share the verdict of the
// first member decided; an explicit exclusion marker or, with KeepPublicAPI,
// a visible member anywhere in the group keeps the whole group.
func (c *Context) planMethod(info *project.AssemblyInfo, t *metadata.TypeDef, m *metadata.MethodDef, g *closure.Group, groupVerdicts map[int]verdict) verdict {
	if g == nil {
		if v, ok := fixedMethodVerdict(t, m); ok {
			return v
		}
		return c.ownMethodVerdict(info, t, m)
	}
	if v, ok := groupVerdicts[g.ID]; ok {
		return v
	}
	v := c.ownMethodVerdict(info, t, m)
	if !v.skip {
		for _, other := range g.Methods {
			if rename, ok := markedToRename(other, false); ok && !rename {
				v = skip(reasonAttribute)
				break
			}
			if c.opts.KeepPublicAPI && other.IsPublicAPI() {
				v = skip(reasonPublic)
				break
			}
		}
	}
	groupVerdicts[g.ID] = v
	return v
}

type familySlot struct {
	name   string
	params int
	arity  int
}

// methodNames tracks method names in use. Names are unique per type and
// signature; virtual names are also unique across a type family so a
// renamed method can never start overriding an unrelated slot.
type methodNames struct {
	groups   *closure.Map
	byType   map[*metadata.TypeDef]map[keys.Slot]bool
	byFamily map[int]map[familySlot]bool
}

func newMethodNames(groups *closure.Map) *methodNames {
	return &methodNames{
		groups:   groups,
		byType:   make(map[*metadata.TypeDef]map[keys.Slot]bool),
		byFamily: make(map[int]map[familySlot]bool),
	}
}

func slotNamed(m *metadata.MethodDef, name string) keys.Slot {
	s := m.Key().Slot()
	s.Name = name
	return s
}

func familySlotNamed(m *metadata.MethodDef, name string) familySlot {
	return familySlot{name: name, params: len(m.Params), arity: len(m.GenericParams)}
}

func (u *methodNames) reserve(m *metadata.MethodDef, name string) {
	set, ok := u.byType[m.DeclaringType]
	if !ok {
		set = make(map[keys.Slot]bool)
		u.byType[m.DeclaringType] = set
	}
	set[slotNamed(m, name)] = true
	if !m.IsVirtual() {
		return
	}
	if f := u.groups.Family(m.DeclaringType); f >= 0 {
		fam, ok := u.byFamily[f]
		if !ok {
			fam = make(map[familySlot]bool)
			u.byFamily[f] = fam
		}
		fam[familySlotNamed(m, name)] = true
	}
}

func (u *methodNames) taken(m *metadata.MethodDef, name string) bool {
	if u.byType[m.DeclaringType][slotNamed(m, name)] {
		return true
	}
	if !m.IsVirtual() {
		return false
	}
	f := u.groups.Family(m.DeclaringType)
	return f >= 0 && u.byFamily[f][familySlotNamed(m, name)]
}
