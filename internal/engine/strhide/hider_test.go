package strhide

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"obscura/internal/engine/metadata"
	mt "obscura/internal/engine/metadata/metadatatest"
	"obscura/internal/engine/rename"
)

func TestHideStrings_RewritesLiteralLoads(t *testing.T) {
	a := mt.NewAssembly("App", mt.CorlibName)
	c := a.Type("Acme.Client", metadata.AccessPublic)
	connect := c.Method("Connect", metadata.AccessPrivate, 0, "System.Void")
	mt.LoadString(connect, "db.internal")
	mt.LoadString(connect, "db.internal")
	greet := c.Method("Greet", metadata.AccessPrivate, 0, "System.String")
	mt.LoadString(greet, "hello")
	asm := a.Build()

	h, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	sites := []rename.StringSite{
		{Assembly: "App", Method: connect, Literals: 2},
		{Assembly: "App", Method: greet, Literals: 1},
	}
	hidden, err := h.HideStrings(context.Background(), sites)
	if err != nil {
		t.Fatalf("HideStrings: %v", err)
	}
	if hidden != 3 {
		t.Fatalf("hidden = %d, want 3", hidden)
	}

	for _, m := range []*metadata.MethodDef{connect, greet} {
		for _, ins := range m.Body {
			if _, ok := ins.Operand.(metadata.StringLiteral); ok {
				t.Fatalf("%s still loads a literal", m.Name)
			}
		}
	}
	if idx := connect.Body[2].Operand; idx != metadata.IntLiteral(0) {
		t.Fatalf("repeated literal should reuse index 0, got %v", idx)
	}
	if idx := greet.Body[0].Operand; idx != metadata.IntLiteral(1) {
		t.Fatalf("second literal index = %v, want 1", idx)
	}

	mod := asm.MainModule()
	gen := mod.Types[len(mod.Types)-1]
	if !strings.HasPrefix(gen.Name, "<StringTable>") || gen.Module != mod {
		t.Fatalf("unexpected generated type %q", gen.Name)
	}
	if call, ok := connect.Body[1].Operand.(*metadata.MethodDef); !ok || call.DeclaringType != gen {
		t.Fatal("literal loads must call the generated getter")
	}

	if len(mod.Resources) != 1 {
		t.Fatalf("expected one table resource, got %d", len(mod.Resources))
	}
	values, err := Decode(mod.Resources[0].Data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(values) != 2 || values[0] != "db.internal" || values[1] != "hello" {
		t.Fatalf("decoded table = %v", values)
	}
	if strings.Contains(string(mod.Resources[0].Data), "db.internal") {
		t.Fatal("table must not store literals in clear text")
	}
}

func TestHideStrings_ReusesObjectScope(t *testing.T) {
	a := mt.NewAssembly("App", "System.Runtime")
	c := a.Type("Acme.Client", metadata.AccessPublic).Extends("System.Runtime", "System.Object")
	m := c.Method("Connect", metadata.AccessPrivate, 0, "System.Void")
	mt.LoadString(m, "db.internal")
	asm := a.Build()

	h, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.HideStrings(context.Background(), []rename.StringSite{{Assembly: "App", Method: m, Literals: 1}}); err != nil {
		t.Fatalf("HideStrings: %v", err)
	}

	mod := asm.MainModule()
	gen := mod.Types[len(mod.Types)-1]
	if got := gen.BaseType.Scope; got != "System.Runtime" {
		t.Fatalf("generated base type scope = %q, want System.Runtime", got)
	}
}

func TestHideStrings_NoSites(t *testing.T) {
	h, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	n, err := h.HideStrings(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("got %d, %v", n, err)
	}
}

func TestHideStrings_ReportsSecrets(t *testing.T) {
	a := mt.NewAssembly("App", mt.CorlibName)
	c := a.Type("Acme.Cloud", metadata.AccessPublic)
	m := c.Method("Login", metadata.AccessPrivate, 0, "System.Void")
	mt.LoadString(m, "AKIA1234567890ABCDEF")
	mt.LoadString(m, "ok")
	a.Build()

	h, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.HideStrings(context.Background(), []rename.StringSite{{Assembly: "App", Method: m, Literals: 2}}); err != nil {
		t.Fatal(err)
	}
	findings := h.Findings()
	if len(findings) != 1 || findings[0].Kind != "aws-access-key-id" || findings[0].Method != "Login" {
		t.Fatalf("unexpected findings %+v", findings)
	}
}

func TestNew_RejectsBadPattern(t *testing.T) {
	if _, err := New(Config{Patterns: []PatternConfig{{Name: "bad", Regex: "("}}}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte{1, 2}); err == nil {
		t.Fatal("expected error for short table")
	}
	key := uuid.New()
	data := Encode(key, []string{"abc"})
	if _, err := Decode(data[:len(data)-1]); err == nil {
		t.Fatal("expected error for truncated entry")
	}
}
