package image

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
	mt "obscura/internal/engine/metadata/metadatatest"
)

func sample() *metadata.Assembly {
	a := mt.NewAssembly("App", "mscorlib", "Lib")
	a.Asm.PublicKey = []byte{0x00, 0x24, 0xff}
	a.Attribute(mt.Obfuscation(false, true))
	handler := a.TypeRef("Lib", "Lib.IHandler`1<System.Int32>")
	handle := a.MethodRef(handler, "Handle", "System.Void", "System.Int32")
	count := a.FieldRef(a.TypeRef("Lib", "Lib.Counter"), "Total", "System.Int32")

	w := a.Type("Acme.Widget", metadata.AccessPublic).Implements("Lib", "Lib.IHandler`1<System.Int32>").Generic("T")
	f := w.Field("state", metadata.AccessPrivate, "!0")
	run := w.Method("Run", metadata.AccessPublic, metadata.MethodVirtual|metadata.MethodNewSlot, "System.Void", "System.Int32")
	w.Property("Title", metadata.AccessPublic, "System.String", 0)
	w.Event("Changed", metadata.AccessPublic, "System.EventHandler", 0)
	inner := w.Nested("Cache", metadata.AccessPrivate, metadata.TypeSealed)
	helper := inner.Method("Fill", metadata.AccessAssembly, metadata.MethodStatic, "System.Boolean")

	mt.LoadString(run, "hello = world")
	mt.Call(run, handle)
	mt.Call(run, helper)
	run.Body = append(run.Body,
		&metadata.Instruction{OpCode: "ldfld", Operand: f},
		&metadata.Instruction{OpCode: "ldsfld", Operand: count},
		&metadata.Instruction{OpCode: "newobj", Operand: inner.Def},
		&metadata.Instruction{OpCode: "ldc.i4", Operand: metadata.IntLiteral(-7)},
		&metadata.Instruction{OpCode: "ret"},
	)
	a.Resource("Acme.Widget.resources", "\x00binary\xff")
	a.Markup("Acme.Widget")
	return a.Build()
}

func roundTrip(t *testing.T, asm *metadata.Assembly) *metadata.Assembly {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, asm); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	return out
}

func TestRoundTripPreservesModel(t *testing.T) {
	got := roundTrip(t, sample())

	if got.Name != "App" || len(got.References) != 2 || !bytes.Equal(got.PublicKey, []byte{0x00, 0x24, 0xff}) {
		t.Fatalf("assembly header lost: %+v", got)
	}
	if !got.DelaySigned() {
		t.Fatal("expected public key without signature to stay delay-signed")
	}
	if _, ok := metadata.FindAttribute(got, "System.Reflection.ObfuscationAttribute"); !ok {
		t.Fatal("assembly attribute lost")
	}
	mod := got.MainModule()
	if mod.Assembly != got {
		t.Fatal("decoded model is not linked")
	}
	types := mod.AllTypes()
	if len(types) != 2 || types[1].FullName() != "Acme.Widget/Cache" || types[1].DeclaringType != types[0] {
		t.Fatalf("unexpected types: %v", types)
	}
	w := types[0]
	if len(w.GenericParams) != 1 || w.GenericParams[0].Name != "T" {
		t.Fatalf("generic params lost: %+v", w.GenericParams)
	}
	if len(w.Interfaces) != 1 || w.Interfaces[0].Scope != "Lib" || w.Interfaces[0].FullName != "Lib.IHandler`1<System.Int32>" {
		t.Fatalf("interfaces lost: %+v", w.Interfaces)
	}
	if w.BaseType == nil || w.BaseType.FullName != "System.Object" {
		t.Fatalf("base type lost: %+v", w.BaseType)
	}
	if types[1].Flags&metadata.TypeSealed == 0 {
		t.Fatal("nested type flags lost")
	}

	prop := w.Properties[0]
	if prop.Getter == nil || prop.Getter != w.Methods[1] || prop.Setter != w.Methods[2] {
		t.Fatal("property accessors must point at the decoded methods")
	}
	ev := w.Events[0]
	if ev.Add != w.Methods[3] || ev.Remove != w.Methods[4] || ev.Raise != nil {
		t.Fatal("event accessors must point at the decoded methods")
	}

	run := w.Methods[0]
	if !run.IsVirtual() || !run.IsNewSlot() || run.Params[0].Name != "p0" {
		t.Fatalf("method header lost: %+v", run)
	}
	body := run.Body
	if len(body) != 8 {
		t.Fatalf("body length = %d", len(body))
	}
	if s, ok := body[0].Operand.(metadata.StringLiteral); !ok || s != "hello = world" {
		t.Fatalf("ldstr operand = %#v", body[0].Operand)
	}
	if mr, ok := body[1].Operand.(*metadata.MemberRef); !ok || mr != mod.MemberRefs[0] {
		t.Fatalf("call operand should share the module member ref, got %#v", body[1].Operand)
	}
	if md, ok := body[2].Operand.(*metadata.MethodDef); !ok || md != types[1].Methods[0] {
		t.Fatalf("local call operand = %#v", body[2].Operand)
	}
	if fd, ok := body[3].Operand.(*metadata.FieldDef); !ok || fd != w.Fields[0] {
		t.Fatalf("field operand = %#v", body[3].Operand)
	}
	if mr, ok := body[4].Operand.(*metadata.MemberRef); !ok || mr.Kind != metadata.MemberField || mr.ReturnType != "System.Int32" {
		t.Fatalf("field ref operand = %#v", body[4].Operand)
	}
	if td, ok := body[5].Operand.(*metadata.TypeDef); !ok || td != types[1] {
		t.Fatalf("type operand = %#v", body[5].Operand)
	}
	if v, ok := body[6].Operand.(metadata.IntLiteral); !ok || v != -7 {
		t.Fatalf("int operand = %#v", body[6].Operand)
	}
	if body[7].Operand != nil {
		t.Fatalf("ret should have no operand, got %#v", body[7].Operand)
	}

	if len(mod.Resources) != 1 || string(mod.Resources[0].Data) != "\x00binary\xff" {
		t.Fatalf("resource lost: %+v", mod.Resources)
	}
	if len(mod.MarkupTypeNames) != 1 || mod.MarkupTypeNames[0] != "Acme.Widget" {
		t.Fatalf("markup names lost: %v", mod.MarkupTypeNames)
	}
}

func TestEncodeAppendsUnlistedReferences(t *testing.T) {
	a := mt.NewAssembly("App")
	m := a.Type("Acme.Main", metadata.AccessPublic).Method("Go", metadata.AccessPublic, 0, "System.Void")
	// Not registered in the module tables.
	mt.Call(m, &metadata.MemberRef{
		Kind:       metadata.MemberMethod,
		Declaring:  &metadata.TypeRef{Scope: "mscorlib", FullName: "System.Console"},
		Name:       "WriteLine",
		ReturnType: "System.Void",
	})
	got := roundTrip(t, a.Build())

	mod := got.MainModule()
	if len(mod.MemberRefs) != 1 || mod.MemberRefs[0].Name != "WriteLine" {
		t.Fatalf("member refs = %+v", mod.MemberRefs)
	}
	if mod.Types[0].Methods[0].Body[0].Operand != mod.MemberRefs[0] {
		t.Fatal("operand should resolve to the appended member ref")
	}
}

func TestDecodeRejectsMalformedImages(t *testing.T) {
	cases := map[string]string{
		"not toml":        "name = ",
		"missing name":    "[[modules]]\nname = \"x\"\n",
		"bad type ref":    "name = \"A\"\n[[modules]]\nname = \"A.dll\"\ntype_refs = [\"NoScope\"]\n",
		"bad access":      "name = \"A\"\n[[modules]]\nname = \"A.dll\"\n[[modules.types]]\nname = \"T\"\naccess = \"friendly\"\n",
		"dangling getter": "name = \"A\"\n[[modules]]\nname = \"A.dll\"\n[[modules.types]]\nname = \"T\"\n[[modules.types.properties]]\nname = \"P\"\ntype = \"System.Int32\"\ngetter = 3\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(text))
			if !errors.IsCode(err, errors.CodeIO) {
				t.Fatalf("expected IO error, got %v", err)
			}
		})
	}
}

func TestCodecReadWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "App"+Extension)
	var c Codec

	if err := c.WriteAssembly(sample(), path, metadata.WriteOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := c.ReadAssembly(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Path != path || got.Signed {
		t.Fatalf("unexpected header: path=%q signed=%v", got.Path, got.Signed)
	}

	if _, err := c.ReadAssembly(filepath.Join(dir, "missing"+Extension)); !errors.IsCode(err, errors.CodeIO) {
		t.Fatalf("expected IO error for missing file, got %v", err)
	}
}

func TestWriteWithKeyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "App"+Extension)
	var c Codec

	err := c.WriteAssembly(sample(), path, metadata.WriteOptions{KeyFile: filepath.Join(dir, "nokey.snk")})
	if !errors.IsCode(err, errors.CodeIO) {
		t.Fatalf("expected IO error for unreadable key file, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("nothing should be written when the key file is unreadable")
	}

	key := filepath.Join(dir, "key.snk")
	if err := os.WriteFile(key, []byte("keypair"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteAssembly(sample(), path, metadata.WriteOptions{KeyFile: key}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := c.ReadAssembly(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got.Signed || got.DelaySigned() {
		t.Fatal("output written with a key file should be signed")
	}
}
