package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obscura/internal/core/config"
	"obscura/internal/core/errors"
	"obscura/internal/data/history"
	"obscura/internal/data/image"
	"obscura/internal/engine/metadata"
	mt "obscura/internal/engine/metadata/metadatatest"
	"obscura/internal/engine/rename"
	"obscura/internal/engine/strhide"
)

const (
	public  = metadata.AccessPublic
	private = metadata.AccessPrivate
)

type fixture struct {
	dir     string
	project string
	out     string
}

// newFixture writes the given assemblies as images under dir/bin and a
// project file listing them.
func newFixture(t *testing.T, vars map[string]string, asms ...*metadata.Assembly) fixture {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n<Obfuscator>\n")
	b.WriteString("  <Var name=\"InPath\" value=\"bin\" />\n")
	b.WriteString("  <Var name=\"OutPath\" value=\"out\" />\n")
	for k, v := range vars {
		b.WriteString("  <Var name=\"" + k + "\" value=\"" + v + "\" />\n")
	}
	for _, asm := range asms {
		file := asm.Name + image.Extension
		require.NoError(t, image.Codec{}.WriteAssembly(asm, filepath.Join(bin, file), metadata.WriteOptions{}))
		b.WriteString("  <Module file=\"$(InPath)/" + file + "\" />\n")
	}
	b.WriteString("</Obfuscator>\n")

	project := filepath.Join(dir, "sample.xml")
	require.NoError(t, os.WriteFile(project, []byte(b.String()), 0o644))
	return fixture{dir: dir, project: project, out: filepath.Join(dir, "out")}
}

func sampleApp() *metadata.Assembly {
	a := mt.NewAssembly("App", mt.CorlibName)
	classA := a.Type("Acme.ClassA", public)
	classA.Method("Method1", private, 0, "System.Void")
	classA.Method("Method2", public, 0, "System.Void")
	secret := classA.Method("Secret", private, 0, "System.String")
	mt.LoadString(secret, "hunter2")
	return a.Build()
}

func deps(extra ...func(*Dependencies)) Dependencies {
	d := Dependencies{
		Reader:    image.Codec{},
		Writer:    image.Codec{},
		Preloaded: []*metadata.Assembly{mt.Corlib()},
	}
	for _, fn := range extra {
		fn(&d)
	}
	return d
}

func newObfuscator(t *testing.T, f fixture, d Dependencies) *Obfuscator {
	t.Helper()
	proj, err := config.LoadProject(f.project)
	require.NoError(t, err)
	o, err := New(proj, config.Default(), d)
	require.NoError(t, err)
	return o
}

func methodNames(t *metadata.TypeDef) map[string]metadata.Access {
	out := make(map[string]metadata.Access)
	for _, m := range t.Methods {
		out[m.Name] = m.Access
	}
	return out
}

func findType(asm *metadata.Assembly, fullName string) *metadata.TypeDef {
	for _, mod := range asm.Modules {
		for _, t := range mod.Types {
			if t.FullName() == fullName {
				return t
			}
		}
	}
	return nil
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil, deps())
	assert.True(t, errors.IsCode(err, errors.CodeConfig))

	_, err = New(&config.Project{}, nil, Dependencies{})
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
}

func TestRun_RenamesPrivateKeepsPublic(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	o := newObfuscator(t, f, deps())

	res, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, filepath.Join(f.out, "App"+image.Extension), res.Outputs[0])
	assert.Equal(t, filepath.Join(f.out, "Mapping.txt"), res.MappingPath)
	assert.Equal(t, 1, res.Assemblies)
	assert.Equal(t, "sample", res.ProjectKey)
	assert.Empty(t, res.RunID, "no history store configured")

	out, err := image.Codec{}.ReadAssembly(res.Outputs[0])
	require.NoError(t, err)
	classA := findType(out, "Acme.ClassA")
	require.NotNil(t, classA, "public type keeps its name")

	names := methodNames(classA)
	assert.Contains(t, names, "Method2")
	assert.NotContains(t, names, "Method1")
	assert.NotContains(t, names, "Secret")

	renamed, skipped := res.Totals()
	assert.Positive(t, renamed)
	assert.Positive(t, skipped)

	mapping, err := os.ReadFile(res.MappingPath)
	require.NoError(t, err)
	text := string(mapping)
	assert.Contains(t, text, "Renamed Types:")
	assert.Contains(t, text, "::Method2")
	assert.Contains(t, text, "skipped: KeepPublicApi")
}

func TestRun_WritesXMLMapping(t *testing.T) {
	f := newFixture(t, map[string]string{"XmlMapping": "true"}, sampleApp())
	o := newObfuscator(t, f, deps())

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.out, "Mapping.xml"), res.MappingPath)

	data, err := os.ReadFile(res.MappingPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "<"), "expected an XML document")
	assert.NoFileExists(t, filepath.Join(f.out, "Mapping.txt"))
}

func TestRun_SignedAssemblyWithoutKeyFile(t *testing.T) {
	asm := sampleApp()
	asm.Signed = true
	f := newFixture(t, nil, asm)
	o := newObfuscator(t, f, deps())

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvariant), "got %v", err)
	assert.Contains(t, err.Error(), "App")
	assert.NoDirExists(t, f.out, "nothing is written on failure")
}

func TestRun_SignedAssemblyWithKeyFile(t *testing.T) {
	asm := sampleApp()
	asm.Signed = true
	dir := t.TempDir()
	key := filepath.Join(dir, "key.snk")
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	f := newFixture(t, map[string]string{"KeyFile": key}, asm)
	res, err := newObfuscator(t, f, deps()).Run(context.Background())
	require.NoError(t, err)

	out, err := image.Codec{}.ReadAssembly(res.Outputs[0])
	require.NoError(t, err)
	assert.True(t, out.Signed)
}

func TestRun_MissingModule(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	require.NoError(t, os.Remove(filepath.Join(f.dir, "bin", "App"+image.Extension)))

	_, err := newObfuscator(t, f, deps()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeResolution), "got %v", err)
}

func TestRun_UnresolvedDependency(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	d := deps()
	d.Preloaded = nil

	_, err := newObfuscator(t, f, d).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeResolution), "got %v", err)
}

func TestRun_RecordsHistory(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	o := newObfuscator(t, f, deps(func(d *Dependencies) { d.History = store }))
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	renamed, _ := res.Totals()
	runs, err := store.Runs("sample", time.Time{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, renamed, runs[0].Renamed)
	assert.Equal(t, f.out, runs[0].OutPath)

	var newName string
	for _, e := range o.Map().Entries() {
		if e.NewName != "" {
			newName = e.NewName
			break
		}
	}
	require.NotEmpty(t, newName)
	matches, err := store.Lookup("sample", newName)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

type recordingHider struct {
	sites []rename.StringSite
}

func (h *recordingHider) HideStrings(_ context.Context, sites []rename.StringSite) (int, error) {
	h.sites = sites
	total := 0
	for _, s := range sites {
		total += s.Literals
	}
	return total, nil
}

func TestRun_HideStrings(t *testing.T) {
	f := newFixture(t, map[string]string{"HideStrings": "true"}, sampleApp())
	hider := &recordingHider{}

	res, err := newObfuscator(t, f, deps(func(d *Dependencies) { d.StringHider = hider })).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, hider.sites, 1)
	assert.Equal(t, "App", hider.sites[0].Assembly)
	assert.Equal(t, 1, hider.sites[0].Literals)
	assert.Equal(t, 1, res.StringSites)
}

func TestRun_HideStringsWithTable(t *testing.T) {
	f := newFixture(t, map[string]string{"HideStrings": "true"}, sampleApp())
	hider, err := strhide.New(strhide.Config{})
	require.NoError(t, err)

	res, err := newObfuscator(t, f, deps(func(d *Dependencies) { d.StringHider = hider })).Run(context.Background())
	require.NoError(t, err)

	out, err := image.Codec{}.ReadAssembly(res.Outputs[0])
	require.NoError(t, err)
	mod := out.MainModule()
	require.Len(t, mod.Resources, 1)
	values, err := strhide.Decode(mod.Resources[0].Data)
	require.NoError(t, err)
	assert.Equal(t, []string{"hunter2"}, values)

	classA := findType(out, "Acme.ClassA")
	require.NotNil(t, classA)
	for _, m := range classA.Methods {
		for _, ins := range m.Body {
			assert.NotEqual(t, metadata.StringLiteral("hunter2"), ins.Operand, "literal left in %s", m.Name)
		}
	}
}

func TestRun_HideStringsDisabled(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	hider := &recordingHider{}

	_, err := newObfuscator(t, f, deps(func(d *Dependencies) { d.StringHider = hider })).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, hider.sites)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newObfuscator(t, f, deps()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProjectKey(t *testing.T) {
	cfg := config.Default()
	o := &Obfuscator{Project: &config.Project{Path: "/work/release.xml"}, Config: cfg}
	assert.Equal(t, "release", o.ProjectKey())

	cfg.Project.Key = "nightly"
	assert.Equal(t, "nightly", o.ProjectKey())

	o = &Obfuscator{Project: &config.Project{}, Config: config.Default()}
	assert.Equal(t, "default", o.ProjectKey())
}

func TestWatcher_RunOnce(t *testing.T) {
	f := newFixture(t, nil, sampleApp())
	w := &Watcher{ProjectPath: f.project, Config: config.Default(), Deps: deps()}

	res, proj, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, proj)
	assert.Len(t, res.Outputs, 1)

	targets := watchTargets(f.project, proj)
	assert.Contains(t, targets, f.project)
	assert.Contains(t, targets, filepath.Join(f.dir, "bin", "App"+image.Extension))
	assert.ElementsMatch(t, []string{f.dir, filepath.Join(f.dir, "bin")}, watchDirs(f.project, proj))
}
