package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"obscura/internal/core/errors"
	"obscura/internal/data/image"
	"obscura/internal/engine/metadata"
	mt "obscura/internal/engine/metadata/metadatatest"
)

func writeWorkspace(t *testing.T) (dir, project string) {
	t.Helper()
	dir = t.TempDir()
	bin := filepath.Join(dir, "bin")

	a := mt.NewAssembly("App", mt.CorlibName)
	c := a.Type("Acme.Service", metadata.AccessPublic)
	c.Method("Start", metadata.AccessPublic, 0, "System.Void")
	c.Method("helper", metadata.AccessPrivate, 0, "System.Void")

	codec := image.Codec{}
	if err := codec.WriteAssembly(a.Build(), filepath.Join(bin, "App.asm.toml"), metadata.WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := codec.WriteAssembly(mt.Corlib(), filepath.Join(bin, "mscorlib.asm.toml"), metadata.WriteOptions{}); err != nil {
		t.Fatal(err)
	}

	project = filepath.Join(dir, "release.xml")
	doc := `<Obfuscator>
  <Var name="InPath" value="bin" />
  <Var name="OutPath" value="out" />
  <Module file="$(InPath)/App.asm.toml" />
</Obfuscator>`
	if err := os.WriteFile(project, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, project
}

func TestRun_SingleRunWithHistoryAndLookup(t *testing.T) {
	dir, project := writeWorkspace(t)
	opts := options{
		ProjectPath: project,
		ConfigPath:  filepath.Join(dir, "obscura.toml"),
		History:     true,
		MetricsFile: filepath.Join(dir, "metrics.prom"),
	}

	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Obfuscated 1 assemblies") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "App.asm.toml")); err != nil {
		t.Errorf("obfuscated assembly not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "Mapping.txt")); err != nil {
		t.Errorf("mapping not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".obscura", "history.db")); err != nil {
		t.Errorf("history database not created: %v", err)
	}
	if _, err := os.Stat(opts.MetricsFile); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}

	out.Reset()
	lookupOpts := options{ProjectPath: project, ConfigPath: opts.ConfigPath, Lookup: "helper"}
	if err := run(context.Background(), lookupOpts, &out); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !strings.Contains(out.String(), "matches for") {
		t.Errorf("expected lookup hits, got:\n%s", out.String())
	}
}

func TestRun_MissingProject(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), options{ConfigPath: filepath.Join(dir, "obscura.toml")}, &bytes.Buffer{})
	if !errors.IsCode(err, errors.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "obscura.toml")
	if err := os.WriteFile(cfgPath, []byte("version = 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := run(context.Background(), options{ConfigPath: cfgPath, ProjectPath: "p.xml"}, &bytes.Buffer{})
	if !errors.IsCode(err, errors.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	err := errors.Wrap(os.ErrNotExist, errors.CodeIO, "unable to read project file")
	printError(&buf, err)
	got := buf.String()
	if !strings.Contains(got, "unable to read project file") || !strings.Contains(got, "caused by") {
		t.Errorf("unexpected error output: %q", got)
	}
}

func TestRenderMatches_Empty(t *testing.T) {
	if got := renderMatches("a", nil); !strings.Contains(got, "no recorded run") {
		t.Errorf("unexpected output: %q", got)
	}
}
