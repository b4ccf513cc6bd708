// Package closure groups virtual methods that must keep one shared name:
// overrides with the slots they override, and interface methods with the
// methods implementing them, across assembly boundaries.
package closure

import (
	"strings"

	"obscura/internal/core/errors"
	"obscura/internal/engine/keys"
	"obscura/internal/engine/metadata"
)

// Resolver resolves type references and tells project types from dependencies.
type Resolver interface {
	ResolveType(ref *metadata.TypeRef) (*metadata.TypeDef, error)
	IsProjectType(t *metadata.TypeDef) bool
}

// Group is a set of methods that must share a name. A group touching any
// method outside the project is External and can never be renamed.
type Group struct {
	ID       int
	Methods  []*metadata.MethodDef
	External bool
}

// Contains reports whether m belongs to the group.
func (g *Group) Contains(m *metadata.MethodDef) bool {
	for _, x := range g.Methods {
		if x == m {
			return true
		}
	}
	return false
}

// frame is a type seen through an instantiation: args close its !N placeholders.
type frame struct {
	def  *metadata.TypeDef
	args []string
}

type Map struct {
	methods  unionFind
	nodes    map[*metadata.MethodDef]int
	defs     []*metadata.MethodDef
	external []bool

	types    unionFind
	typeNode map[*metadata.TypeDef]int

	groups   []*Group
	byNode   map[int]*Group
	resolver Resolver
}

// Build computes method groups and type families for the given project types.
func Build(r Resolver, types []*metadata.TypeDef) (*Map, error) {
	m := &Map{
		nodes:    make(map[*metadata.MethodDef]int),
		typeNode: make(map[*metadata.TypeDef]int),
		resolver: r,
	}
	for _, t := range types {
		if err := m.addType(t); err != nil {
			return nil, errors.AddContext(err, "type", t.Key().String())
		}
	}
	m.finish()
	return m, nil
}

func (m *Map) node(md *metadata.MethodDef) int {
	if i, ok := m.nodes[md]; ok {
		return i
	}
	i := m.methods.add()
	m.nodes[md] = i
	m.defs = append(m.defs, md)
	m.external = append(m.external, !m.resolver.IsProjectType(md.DeclaringType))
	return i
}

func (m *Map) typeID(t *metadata.TypeDef) int {
	if i, ok := m.typeNode[t]; ok {
		return i
	}
	i := m.types.add()
	m.typeNode[t] = i
	return i
}

func (m *Map) join(a, b *metadata.MethodDef) {
	m.methods.union(m.node(a), m.node(b))
}

func (m *Map) addType(t *metadata.TypeDef) error {
	self := m.typeID(t)
	for _, md := range t.Methods {
		if md.IsVirtual() {
			m.node(md)
		}
	}

	bases, err := m.baseChain(t)
	if err != nil {
		return err
	}
	for _, b := range bases {
		m.types.union(self, m.typeID(b.def))
	}

	for _, md := range t.Methods {
		if !md.IsVirtual() || md.IsNewSlot() {
			continue
		}
		if target := findVirtual(bases, md.Key().Slot()); target != nil {
			m.join(md, target)
		}
	}

	ifaces, err := m.interfaces(t.Interfaces, nil)
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		m.types.union(self, m.typeID(iface.def))
		if t.IsInterface() {
			continue
		}
		for _, im := range iface.def.Methods {
			if !im.IsVirtual() || im.IsStatic() {
				continue
			}
			if explicitlyImplemented(t, iface, im) {
				continue
			}
			slot := im.Key().Slot().Substitute(iface.args)
			impl := findVirtual([]frame{{def: t}}, slot)
			if impl == nil {
				impl = findVirtual(bases, slot)
			}
			if impl != nil {
				m.join(im, impl)
			}
		}
	}
	return nil
}

// baseChain returns the ancestors of t, nearest first, each with its
// generic arguments expressed in terms of t's own parameters.
func (m *Map) baseChain(t *metadata.TypeDef) ([]frame, error) {
	var out []frame
	var args []string
	ref := t.BaseType
	for ref != nil {
		def, err := m.resolver.ResolveType(ref)
		if err != nil {
			return nil, err
		}
		args = substituteAll(ref.GenericArgs(), args)
		out = append(out, frame{def: def, args: args})
		ref = def.BaseType
		if len(out) > 256 {
			return nil, errors.Newf(errors.CodeInvariant, "inheritance cycle at %s", def.Key())
		}
	}
	return out, nil
}

// interfaces returns the transitive interface set of refs, deduplicated by
// closed name, in declaration order.
func (m *Map) interfaces(refs []*metadata.TypeRef, args []string) ([]frame, error) {
	var out []frame
	seen := make(map[string]bool)
	var walk func(refs []*metadata.TypeRef, args []string, depth int) error
	walk = func(refs []*metadata.TypeRef, args []string, depth int) error {
		if depth > 64 {
			return errors.New(errors.CodeInvariant, "interface inheritance too deep")
		}
		for _, ref := range refs {
			def, err := m.resolver.ResolveType(ref)
			if err != nil {
				return err
			}
			closed := substituteAll(ref.GenericArgs(), args)
			id := def.Key().String() + "<" + joinArgs(closed) + ">"
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, frame{def: def, args: closed})
			if err := walk(def.Interfaces, closed, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(refs, args, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// findVirtual returns the first virtual method in frames whose closed slot equals slot.
func findVirtual(frames []frame, slot keys.Slot) *metadata.MethodDef {
	for _, f := range frames {
		for _, md := range f.def.Methods {
			if md.IsVirtual() && md.Key().Slot().Substitute(f.args) == slot {
				return md
			}
		}
	}
	return nil
}

// explicitlyImplemented reports a method of t that names im in its overrides.
func explicitlyImplemented(t *metadata.TypeDef, iface frame, im *metadata.MethodDef) bool {
	want := im.Key().Slot()
	for _, md := range t.Methods {
		for _, o := range md.Overrides {
			if o.Kind != metadata.MemberMethod || o.Declaring == nil {
				continue
			}
			if o.Declaring.Key() == iface.def.Key() && o.MethodKey().Slot() == want {
				return true
			}
		}
	}
	return false
}

func (m *Map) finish() {
	m.byNode = make(map[int]*Group)
	m.groups = nil
	for i := range m.defs {
		root := m.methods.find(i)
		g, ok := m.byNode[root]
		if !ok {
			g = &Group{ID: len(m.groups)}
			m.groups = append(m.groups, g)
			m.byNode[root] = g
		}
		g.Methods = append(g.Methods, m.defs[i])
		g.External = g.External || m.external[i]
	}
}

// Group returns the group of a virtual method, or nil for methods that take
// part in no override or implementation relation.
func (m *Map) Group(md *metadata.MethodDef) *Group {
	i, ok := m.nodes[md]
	if !ok {
		return nil
	}
	return m.byNode[m.methods.find(i)]
}

// Groups returns every group in discovery order.
func (m *Map) Groups() []*Group {
	return append([]*Group(nil), m.groups...)
}

// Family returns an identifier shared by all types connected through
// inheritance or interface implementation. Unknown types get -1.
func (m *Map) Family(t *metadata.TypeDef) int {
	i, ok := m.typeNode[t]
	if !ok {
		return -1
	}
	return m.types.find(i)
}

func substituteAll(names, args []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = keys.SubstituteGenerics(n, args)
	}
	return out
}

func joinArgs(args []string) string {
	return strings.Join(args, ",")
}
