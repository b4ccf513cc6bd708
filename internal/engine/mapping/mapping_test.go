package mapping

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"obscura/internal/engine/keys"
)

func sampleKeys() (keys.TypeKey, keys.MethodKey, keys.FieldKey) {
	tk := keys.NewTypeKey("App", "Acme.ClassA")
	mk := keys.MethodKey{Type: tk, Name: "Method1", Returns: "System.Void", Sig: keys.NewParamSig()}
	fk := keys.FieldKey{Type: tk, Name: "count", FieldType: "System.Int32"}
	return tk, mk, fk
}

func TestLazyCreationIdentity(t *testing.T) {
	m := New()
	tk, mk, _ := sampleKeys()

	c1 := m.GetClass(tk)
	c2 := m.GetClass(keys.NewTypeKey("App", "Acme.ClassA"))
	if c1 != c2 {
		t.Fatal("GetClass must return the same record for equal keys")
	}
	if c1.Status != StatusUnknown {
		t.Fatalf("new record status = %v", c1.Status)
	}
	if m.GetMethod(mk) != m.GetMethod(mk) {
		t.Fatal("GetMethod must return the same record for equal keys")
	}
	if len(m.Classes()) != 1 {
		t.Fatalf("member lookup must not create a second class, got %d", len(m.Classes()))
	}
}

func TestUpdateSemantics(t *testing.T) {
	m := New()
	tk, mk, fk := sampleKeys()

	m.UpdateType(tk, StatusRenamed, "A")
	m.UpdateMethod(mk, StatusSkipped, "KeepPublicApi")
	m.UpdateField(fk, StatusRenamed, "a")

	if c := m.GetClass(tk); c.StatusText != "A" {
		t.Fatalf("renamed type status text = %q", c.StatusText)
	}
	method := m.GetMethod(mk)
	if method.StatusText != mk.String() || method.Reason != "KeepPublicApi" {
		t.Fatalf("skipped method: text %q reason %q", method.StatusText, method.Reason)
	}

	m.UpdateMethod(mk, StatusRenamed, "b")
	if method.Reason != "" || method.StatusText != "b" {
		t.Fatal("later update must replace earlier outcome")
	}
}

func TestDumpMapText(t *testing.T) {
	m := New()
	tk, mk, fk := sampleKeys()
	m.UpdateType(tk, StatusRenamed, "A")
	m.UpdateMethod(mk, StatusRenamed, "a")
	m.UpdateMethod(keys.MethodKey{Type: tk, Name: "Method2", Returns: "System.Void"}, StatusSkipped, "HidePrivateApi")
	m.UpdateField(fk, StatusRenamed, "a")
	api := keys.NewTypeKey("App", "Acme.Api")
	m.UpdateType(api, StatusSkipped, "KeepPublicApi")
	m.AddResource("Acme.ClassA.resources", StatusRenamed, "A.resources")
	m.AddResource("Acme.Strings.resources", StatusSkipped, "type not renamed")

	var buf bytes.Buffer
	if err := m.DumpMap(&buf); err != nil {
		t.Fatalf("DumpMap: %v", err)
	}
	out := buf.String()

	want := []string{
		"Renamed Types:",
		"[App]Acme.ClassA -> A\n{\n\tSystem.Void [App]Acme.ClassA::Method1() -> a\n\n\tSystem.Void [App]Acme.ClassA::Method2() skipped: HidePrivateApi\n\n\tSystem.Int32 [App]Acme.ClassA::count -> a\n}",
		"Skipped Types:",
		"[App]Acme.Api skipped: KeepPublicApi\n{\n}",
		"Acme.ClassA.resources -> A.resources",
		"Acme.Strings.resources skipped: type not renamed",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\n---\n%s", w, out)
		}
	}
	if strings.Contains(out, "count -> a\n\n}") {
		t.Error("a section with only renamed entries must not end with a blank line")
	}
	if strings.Index(out, "Renamed Types:") > strings.Index(out, "Skipped Types:") {
		t.Error("renamed section must precede skipped section")
	}
}

func TestDumpXML(t *testing.T) {
	m := New()
	tk, mk, _ := sampleKeys()
	m.UpdateType(tk, StatusRenamed, "A")
	m.UpdateMethod(mk, StatusSkipped, "attribute")

	var buf bytes.Buffer
	if err := m.DumpXML(&buf); err != nil {
		t.Fatalf("DumpXML: %v", err)
	}

	var doc struct {
		Classes []struct {
			OldName string `xml:"oldName,attr"`
			NewName string `xml:"newName,attr"`
			Skipped []struct {
				Name   string `xml:"name,attr"`
				Reason string `xml:"reason,attr"`
			} `xml:"skippedMethod"`
		} `xml:"renamedTypes>renamedClass"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid XML: %v\n%s", err, buf.String())
	}
	if len(doc.Classes) != 1 || doc.Classes[0].NewName != "A" {
		t.Fatalf("unexpected classes: %+v", doc.Classes)
	}
	if s := doc.Classes[0].Skipped; len(s) != 1 || s[0].Reason != "attribute" {
		t.Fatalf("unexpected skipped methods: %+v", s)
	}
}

func TestEntriesAndCounts(t *testing.T) {
	m := New()
	tk, mk, fk := sampleKeys()
	m.UpdateType(tk, StatusRenamed, "A")
	m.UpdateMethod(mk, StatusRenamed, "a")
	m.UpdateField(fk, StatusSkipped, "rule")

	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Kind != KindType || entries[0].NewName != "A" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[2].NewName != "" || entries[2].Reason != "rule" {
		t.Fatalf("skipped entry = %+v", entries[2])
	}
	counts := m.Counts()
	if counts[KindMethod].Renamed != 1 || counts[KindField].Skipped != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}
