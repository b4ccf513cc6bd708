package rename

import (
	"strings"

	"obscura/internal/engine/keys"
	"obscura/internal/engine/mapping"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

const resourceSuffix = ".resources"

type typePlan struct {
	info    *project.AssemblyInfo
	def     *metadata.TypeDef
	key     keys.TypeKey
	oldFull string
	verdict verdict
}

// RenameTypes moves every renamable type into the global namespace under a
// new name, then rewrites every type name stored in project assemblies and
// renames the manifest resources that belong to renamed types.
func (c *Context) RenameTypes() error {
	var plans []*typePlan
	c.each(func(info *project.AssemblyInfo, t *metadata.TypeDef) {
		plans = append(plans, &typePlan{
			info:    info,
			def:     t,
			key:     t.Key(),
			oldFull: t.FullName(),
			verdict: c.typeVerdict(info, t),
		})
	})

	// top-level types share a namespace per module once renamed; nested
	// types only need to differ from their siblings
	used := make(map[any]map[string]bool)
	scopeOf := func(t *metadata.TypeDef, ns string) any {
		if t.DeclaringType != nil {
			return t.DeclaringType
		}
		return moduleNamespace{mod: t.Module, ns: ns}
	}
	reserve := func(scope any, name string) {
		if used[scope] == nil {
			used[scope] = make(map[string]bool)
		}
		used[scope][name] = true
	}
	for _, p := range plans {
		if p.verdict.skip {
			reserve(scopeOf(p.def, p.def.Namespace), p.def.Name)
		}
	}

	newNames := make(map[*metadata.TypeDef]string)
	for _, p := range plans {
		if p.verdict.skip {
			continue
		}
		scope := scopeOf(p.def, "")
		suffix := arity(p.def.Name)
		name := c.names.Next("type", p.info.Name(), func(n string) bool { return used[scope][n+suffix] }) + suffix
		reserve(scope, name)
		newNames[p.def] = name
	}

	for _, p := range plans {
		if name, ok := newNames[p.def]; ok {
			p.def.Namespace = ""
			p.def.Name = name
		}
	}

	// old full name -> current full name, per defining assembly; unchanged
	// types stay in the table so they shadow same-named types elsewhere
	defined := make(map[*project.AssemblyInfo]map[string]string)
	for _, p := range plans {
		if defined[p.info] == nil {
			defined[p.info] = make(map[string]string)
		}
		defined[p.info][p.oldFull] = p.def.FullName()
		if p.verdict.skip {
			c.report.UpdateType(p.key, mapping.StatusSkipped, p.verdict.reason)
		} else {
			c.report.UpdateType(p.key, mapping.StatusRenamed, p.def.FullName())
		}
	}

	for _, info := range c.project.Assemblies() {
		// scope-less names resolve against the assembly itself first, then
		// against the project assemblies it references
		search := []*project.AssemblyInfo{info}
		for _, h := range info.References() {
			search = append(search, c.project.Get(h))
		}
		unscoped := func(name string) (string, bool) {
			for _, a := range search {
				if n, ok := defined[a][name]; ok {
					return n, n != name
				}
			}
			return name, false
		}
		for _, mod := range info.Definition().Modules {
			metadata.VisitTypeNames(mod, func(s *string, scope string) {
				if scope == "" {
					*s = keys.RewriteTypeNames(*s, unscoped)
					return
				}
				owner, _ := c.project.Lookup(scope)
				// only the leading token belongs to scope; generic arguments
				// are plain signature names
				head := true
				*s = keys.RewriteTypeNames(*s, func(name string) (string, bool) {
					if !head {
						return unscoped(name)
					}
					head = false
					n, ok := defined[owner][name]
					return n, ok && n != name
				})
			})
		}
	}
	c.renameResources(plans)
	c.project.InvalidateTypes()
	return nil
}

type moduleNamespace struct {
	mod *metadata.Module
	ns  string
}

// arity returns the generic arity suffix ("`2") of a type name.
func arity(name string) string {
	if i := strings.LastIndexByte(name, '`'); i >= 0 {
		return name[i:]
	}
	return ""
}

// renameResources renames "<type full name>.resources" manifest resources
// along with their type.
func (c *Context) renameResources(plans []*typePlan) {
	byAssembly := make(map[*project.AssemblyInfo]map[string]*typePlan)
	for _, p := range plans {
		if byAssembly[p.info] == nil {
			byAssembly[p.info] = make(map[string]*typePlan)
		}
		byAssembly[p.info][p.oldFull] = p
	}
	for _, info := range c.project.Assemblies() {
		for _, mod := range info.Definition().Modules {
			for _, res := range mod.Resources {
				if !strings.HasSuffix(res.Name, resourceSuffix) {
					continue
				}
				owner := strings.TrimSuffix(res.Name, resourceSuffix)
				p, ok := byAssembly[info][owner]
				switch {
				case !ok:
					c.report.AddResource(res.Name, mapping.StatusSkipped, "no matching type")
				case p.verdict.skip:
					c.report.AddResource(res.Name, mapping.StatusSkipped, "type not renamed")
				default:
					newName := p.def.FullName() + resourceSuffix
					c.report.AddResource(res.Name, mapping.StatusRenamed, newName)
					res.Name = newName
				}
			}
		}
	}
}
