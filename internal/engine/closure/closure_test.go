package closure_test

import (
	"testing"

	"obscura/internal/engine/closure"
	"obscura/internal/engine/metadata"
	mt "obscura/internal/engine/metadata/metadatatest"
	"obscura/internal/engine/project"
)

const virtual = metadata.MethodVirtual

func build(t *testing.T, asms ...*metadata.Assembly) (*project.Project, *closure.Map) {
	t.Helper()
	p, err := project.New(nil, project.Options{})
	if err != nil {
		t.Fatalf("project.New: %v", err)
	}
	p.AddDependency(mt.Corlib())
	for _, asm := range asms {
		if _, err := p.AddLoaded(project.ModuleSpec{}, asm); err != nil {
			t.Fatalf("AddLoaded(%s): %v", asm.Name, err)
		}
	}
	m, err := closure.Build(p, p.Types())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p, m
}

func sameGroup(m *closure.Map, a, b *metadata.MethodDef) bool {
	ga, gb := m.Group(a), m.Group(b)
	return ga != nil && ga == gb
}

func TestOverrideChain(t *testing.T) {
	lib := mt.NewAssembly("Lib", mt.CorlibName)
	base := lib.Type("Lib.Base", metadata.AccessPublic)
	baseRun := base.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void", "System.Int32")

	app := mt.NewAssembly("App", mt.CorlibName, "Lib")
	derived := app.Type("App.Derived", metadata.AccessPublic).Extends("Lib", "Lib.Base")
	derivedRun := derived.Method("Run", metadata.AccessPublic, virtual, "System.Void", "System.Int32")
	hiding := app.Type("App.Hiding", metadata.AccessPublic).Extends("Lib", "Lib.Base")
	hidingRun := hiding.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void", "System.Int32")
	other := derived.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void", "System.String")

	_, m := build(t, lib.Build(), app.Build())

	if !sameGroup(m, baseRun, derivedRun) {
		t.Fatal("override should share a group with the overridden method across assemblies")
	}
	if sameGroup(m, baseRun, hidingRun) {
		t.Fatal("newslot method must start its own group")
	}
	if sameGroup(m, derivedRun, other) {
		t.Fatal("overloads with different signatures must not be grouped")
	}
	if m.Group(baseRun).External {
		t.Fatal("group of project methods must not be external")
	}
	if m.Family(base.Def) != m.Family(derived.Def) {
		t.Fatal("base and derived should share a family")
	}
}

func TestCrossAssemblyInterface(t *testing.T) {
	lib := mt.NewAssembly("Lib", mt.CorlibName)
	iface := lib.Type("Lib.IRunner", metadata.AccessPublic, metadata.TypeInterface|metadata.TypeAbstract)
	ifaceRun := iface.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodAbstract, "System.Void")

	app := mt.NewAssembly("App", mt.CorlibName, "Lib")
	impl := app.Type("App.Runner", metadata.AccessAssembly).Implements("Lib", "Lib.IRunner")
	implRun := impl.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodFinal, "System.Void")

	// the base provides the implementation for the derived type's interface
	base := app.Type("App.BaseWorker", metadata.AccessAssembly)
	baseRun := base.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void")
	app.Type("App.Worker", metadata.AccessAssembly).Extends("App", "App.BaseWorker").Implements("Lib", "Lib.IRunner")

	_, m := build(t, lib.Build(), app.Build())

	if !sameGroup(m, ifaceRun, implRun) {
		t.Fatal("implementation should share a group with the interface method")
	}
	if !sameGroup(m, ifaceRun, baseRun) {
		t.Fatal("inherited implementation should join the interface group")
	}
}

func TestClosedGenericInterface(t *testing.T) {
	app := mt.NewAssembly("App", mt.CorlibName)
	handler := app.Type("App.IHandler`1", metadata.AccessPublic, metadata.TypeInterface|metadata.TypeAbstract).Generic("T")
	handle := handler.Method("Handle", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodAbstract, "System.Void", "!0")

	impl := app.Type("App.IntHandler", metadata.AccessPublic).Implements("App", "App.IHandler`1<System.Int32>")
	intHandle := impl.Method("Handle", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodFinal, "System.Void", "System.Int32")
	strHandle := impl.Method("Handle", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void", "System.String")

	_, m := build(t, app.Build())

	if !sameGroup(m, handle, intHandle) {
		t.Fatal("closed implementation should join the generic interface method")
	}
	if sameGroup(m, handle, strHandle) {
		t.Fatal("non-matching overload must stay out of the group")
	}
}

func TestExternalGroups(t *testing.T) {
	app := mt.NewAssembly("App", mt.CorlibName)
	typ := app.Type("App.Resource", metadata.AccessAssembly).
		Implements(mt.CorlibName, "System.IDisposable").
		Implements(mt.CorlibName, "System.IComparable`1<App.Resource>")
	toString := typ.Method("ToString", metadata.AccessPublic, virtual, "System.String")
	dispose := typ.Method("Dispose", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodFinal, "System.Void")
	compare := typ.Method("CompareTo", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodFinal, "System.Int32", "App.Resource")
	own := typ.Method("Refresh", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void")

	_, m := build(t, app.Build())

	for name, md := range map[string]*metadata.MethodDef{"ToString": toString, "Dispose": dispose, "CompareTo": compare} {
		g := m.Group(md)
		if g == nil || !g.External {
			t.Errorf("%s: expected external group, got %+v", name, g)
		}
	}
	if g := m.Group(own); g == nil || g.External || len(g.Methods) != 1 {
		t.Fatalf("Refresh: expected singleton project group, got %+v", g)
	}
}

func TestExplicitImplementationNotGrouped(t *testing.T) {
	app := mt.NewAssembly("App", mt.CorlibName)
	iface := app.Type("App.IRun", metadata.AccessAssembly, metadata.TypeInterface|metadata.TypeAbstract)
	run := iface.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodAbstract, "System.Void")
	impl := app.Type("App.Impl", metadata.AccessAssembly).Implements("App", "App.IRun")
	thunk := impl.Method("App.IRun.Run", metadata.AccessPrivate, virtual|metadata.MethodNewSlot|metadata.MethodFinal, "System.Void")
	thunk.Overrides = append(thunk.Overrides, &metadata.MemberRef{
		Kind: metadata.MemberMethod, Declaring: &metadata.TypeRef{Scope: "App", FullName: "App.IRun"}, Name: "Run", ReturnType: "System.Void",
	})
	public := impl.Method("Run", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void")

	_, m := build(t, app.Build())

	if sameGroup(m, run, thunk) || sameGroup(m, run, public) {
		t.Fatal("explicitly implemented interface method must not be grouped by name")
	}
}

func TestGroupsDeterministic(t *testing.T) {
	app := mt.NewAssembly("App", mt.CorlibName)
	a := app.Type("App.A", metadata.AccessAssembly)
	a.Method("X", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void")
	a.Method("Y", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Void")
	b := app.Type("App.B", metadata.AccessAssembly).Extends("App", "App.A")
	b.Method("Y", metadata.AccessPublic, virtual, "System.Void")
	asm := app.Build()

	_, first := build(t, asm)
	_, second := build(t, asm)
	g1, g2 := first.Groups(), second.Groups()
	if len(g1) != len(g2) {
		t.Fatalf("group counts differ: %d vs %d", len(g1), len(g2))
	}
	for i := range g1 {
		if len(g1[i].Methods) != len(g2[i].Methods) || g1[i].Methods[0] != g2[i].Methods[0] {
			t.Fatalf("group %d differs between runs", i)
		}
	}
}
