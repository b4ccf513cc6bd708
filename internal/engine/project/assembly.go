package project

import "obscura/internal/engine/metadata"

// Handle indexes an AssemblyInfo inside its Project.
type Handle int

// AssemblyInfo is one input assembly together with its skip rules and its
// position in the project's reference graph.
type AssemblyInfo struct {
	handle     Handle
	spec       ModuleSpec
	rules      *rules
	definition *metadata.Assembly

	references   []Handle
	referencedBy []Handle

	// refs into other project assemblies; these are patched after renaming
	projectTypeRefs   []*metadata.TypeRef
	projectMemberRefs []*metadata.MemberRef
	markup            map[string]bool
}

func (a *AssemblyInfo) Handle() Handle {
	return a.handle
}

func (a *AssemblyInfo) Name() string {
	return a.definition.Name
}

// File is the path the assembly was loaded from.
func (a *AssemblyInfo) File() string {
	return a.spec.File
}

func (a *AssemblyInfo) Definition() *metadata.Assembly {
	return a.definition
}

// References lists project assemblies this assembly references, in project order.
func (a *AssemblyInfo) References() []Handle {
	return append([]Handle(nil), a.references...)
}

// ReferencedBy lists project assemblies that reference this one, in project order.
func (a *AssemblyInfo) ReferencedBy() []Handle {
	return append([]Handle(nil), a.referencedBy...)
}

// Types returns every type of every module, enclosing types first.
func (a *AssemblyInfo) Types() []*metadata.TypeDef {
	var out []*metadata.TypeDef
	for _, mod := range a.definition.Modules {
		out = append(out, mod.AllTypes()...)
	}
	return out
}

// MemberRefs returns references from this assembly to members of project assemblies.
func (a *AssemblyInfo) MemberRefs() []*metadata.MemberRef {
	return a.projectMemberRefs
}

// TypeRefs returns references from this assembly to types of project assemblies.
func (a *AssemblyInfo) TypeRefs() []*metadata.TypeRef {
	return a.projectTypeRefs
}

// IsMarkupBound reports a type referenced by name from markup resources.
func (a *AssemblyInfo) IsMarkupBound(t *metadata.TypeDef) bool {
	return a.markup[t.FullName()]
}
