package metadatatest

import "obscura/internal/engine/metadata"

// CorlibName is the scope used for framework types by this package.
const CorlibName = "mscorlib"

// Corlib builds a reference-only framework assembly with the handful of types
// the engine resolves while walking hierarchies.
func Corlib() *metadata.Assembly {
	a := NewAssembly(CorlibName)
	virtual := metadata.MethodVirtual

	object := a.Type("System.Object", metadata.AccessPublic)
	object.Def.BaseType = nil
	object.Method("ToString", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.String")
	object.Method("Equals", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Boolean", "System.Object")
	object.Method("GetHashCode", metadata.AccessPublic, virtual|metadata.MethodNewSlot, "System.Int32")
	object.Method("Finalize", metadata.AccessFamily, virtual|metadata.MethodNewSlot, "System.Void")

	a.Type("System.ValueType", metadata.AccessPublic, metadata.TypeAbstract)
	a.Type("System.Enum", metadata.AccessPublic, metadata.TypeAbstract).Extends(CorlibName, "System.ValueType")
	a.Type("System.Attribute", metadata.AccessPublic, metadata.TypeAbstract)
	a.Type("System.Delegate", metadata.AccessPublic, metadata.TypeAbstract)
	a.Type("System.MulticastDelegate", metadata.AccessPublic, metadata.TypeAbstract).Extends(CorlibName, "System.Delegate")
	a.Type("System.EventHandler", metadata.AccessPublic, metadata.TypeSealed).Extends(CorlibName, "System.MulticastDelegate")
	a.Type("System.Reflection.ObfuscationAttribute", metadata.AccessPublic, metadata.TypeSealed).
		Extends(CorlibName, "System.Attribute")

	disposable := a.Type("System.IDisposable", metadata.AccessPublic, metadata.TypeInterface|metadata.TypeAbstract)
	disposable.Method("Dispose", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodAbstract, "System.Void")

	comparable := a.Type("System.IComparable`1", metadata.AccessPublic, metadata.TypeInterface|metadata.TypeAbstract).Generic("T")
	comparable.Method("CompareTo", metadata.AccessPublic, virtual|metadata.MethodNewSlot|metadata.MethodAbstract, "System.Int32", "!0")

	return a.Build()
}
