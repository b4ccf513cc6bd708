// Package project holds the set of assemblies being obfuscated and the
// dependencies they resolve against.
package project

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"obscura/internal/core/errors"
	"obscura/internal/engine/keys"
	"obscura/internal/engine/metadata"
)

const defaultTypeCacheSize = 4096

type Options struct {
	// InPath is searched for dependencies before SearchPaths.
	InPath      string
	SearchPaths []string
	// KeyFile re-signs strong-named assemblies; without it they are rejected.
	KeyFile       string
	TypeCacheSize int
}

// Project is the arena of input assemblies. Assemblies refer to each other by
// Handle; iteration always follows the order they were added in.
type Project struct {
	opts   Options
	reader metadata.Reader

	assemblies []*AssemblyInfo
	byName     map[string]Handle
	deps       map[string]*metadata.Assembly
	types      *lru.Cache[keys.TypeKey, *metadata.TypeDef]
}

func New(reader metadata.Reader, opts Options) (*Project, error) {
	size := opts.TypeCacheSize
	if size <= 0 {
		size = defaultTypeCacheSize
	}
	cache, err := lru.New[keys.TypeKey, *metadata.TypeDef](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create type cache")
	}
	return &Project{
		opts:   opts,
		reader: reader,
		byName: make(map[string]Handle),
		deps:   make(map[string]*metadata.Assembly),
		types:  cache,
	}, nil
}

// AddAssembly loads the module's assembly and compiles its skip rules.
func (p *Project) AddAssembly(spec ModuleSpec) (*AssemblyInfo, error) {
	if spec.File == "" {
		return nil, errors.New(errors.CodeConfig, "module element requires a non-empty file attribute")
	}
	compiled, err := compileRules(spec)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "invalid skip rule"), errors.CtxPath, spec.File)
	}
	if _, err := os.Stat(spec.File); err != nil {
		return nil, errors.Newf(errors.CodeResolution, "unable to find assembly: %s", spec.File)
	}
	asm, err := p.reader.ReadAssembly(spec.File)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "failed to read assembly"), errors.CtxPath, spec.File)
	}
	return p.add(spec, compiled, asm)
}

// AddLoaded registers an already loaded assembly; spec.File is informational.
func (p *Project) AddLoaded(spec ModuleSpec, asm *metadata.Assembly) (*AssemblyInfo, error) {
	compiled, err := compileRules(spec)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid skip rule")
	}
	return p.add(spec, compiled, asm)
}

func (p *Project) add(spec ModuleSpec, compiled *rules, asm *metadata.Assembly) (*AssemblyInfo, error) {
	if asm.Signed && p.opts.KeyFile == "" {
		err := errors.Newf(errors.CodeInvariant,
			"obfuscating signed assembly %s would invalidate its signature; set KeyFile to re-sign it", asm.Name)
		return nil, errors.AddContext(err, errors.CtxAssembly, asm.Name)
	}
	if _, dup := p.byName[asm.Name]; dup {
		return nil, errors.Newf(errors.CodeConfig, "assembly %s is listed more than once", asm.Name)
	}
	if spec.File == "" {
		spec.File = asm.Path
	}
	info := &AssemblyInfo{
		handle:     Handle(len(p.assemblies)),
		spec:       spec,
		rules:      compiled,
		definition: asm,
		markup:     make(map[string]bool),
	}
	for _, mod := range asm.Modules {
		for _, name := range mod.MarkupTypeNames {
			info.markup[name] = true
		}
	}
	p.assemblies = append(p.assemblies, info)
	p.byName[asm.Name] = info.handle
	slog.Debug("assembly added", "assembly", asm.Name, "path", spec.File, "signed", asm.Signed)
	return info, nil
}

// AddDependency registers a reference-only assembly, bypassing the search path.
func (p *Project) AddDependency(asm *metadata.Assembly) {
	p.deps[asm.Name] = asm
}

// DependencyCount reports the external assemblies registered or resolved so far.
func (p *Project) DependencyCount() int {
	return len(p.deps)
}

func (p *Project) Assemblies() []*AssemblyInfo {
	return append([]*AssemblyInfo(nil), p.assemblies...)
}

func (p *Project) Get(h Handle) *AssemblyInfo {
	return p.assemblies[h]
}

func (p *Project) Lookup(name string) (*AssemblyInfo, bool) {
	h, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.assemblies[h], true
}

// Contains reports whether scope names a project (renamable) assembly.
func (p *Project) Contains(scope string) bool {
	_, ok := p.byName[scope]
	return ok
}

// Owner returns the project assembly defining t, if any.
func (p *Project) Owner(t *metadata.TypeDef) (*AssemblyInfo, bool) {
	return p.Lookup(t.Scope())
}

// Types returns all project types in project order.
func (p *Project) Types() []*metadata.TypeDef {
	var out []*metadata.TypeDef
	for _, a := range p.assemblies {
		out = append(out, a.Types()...)
	}
	return out
}

// Init builds the reference graph between project assemblies, collects the
// cross-assembly references that renaming must patch and resolves every
// external dependency. It fails before any renaming can start.
func (p *Project) Init() error {
	for _, a := range p.assemblies {
		a.references = nil
		a.referencedBy = nil
		a.projectTypeRefs = nil
		a.projectMemberRefs = nil
	}
	for _, a := range p.assemblies {
		scopes := p.collectRefs(a)
		for _, scope := range scopes {
			if scope == a.Name() {
				continue
			}
			if h, ok := p.byName[scope]; ok {
				a.references = appendHandle(a.references, h)
				p.assemblies[h].referencedBy = appendHandle(p.assemblies[h].referencedBy, a.handle)
				continue
			}
			if _, err := p.dependency(scope); err != nil {
				return errors.AddContext(err, errors.CtxAssembly, a.Name())
			}
		}
	}
	for _, a := range p.assemblies {
		slices.Sort(a.references)
		slices.Sort(a.referencedBy)
	}
	p.types.Purge()
	slog.Debug("project initialized", "assemblies", len(p.assemblies), "dependencies", len(p.deps))
	return nil
}

// collectRefs records project-bound references and returns every scope the
// assembly mentions, in first-seen order.
func (p *Project) collectRefs(a *AssemblyInfo) []string {
	var scopes []string
	seenScope := make(map[string]bool)
	addScope := func(s string) {
		if s == "" || seenScope[s] {
			return
		}
		seenScope[s] = true
		scopes = append(scopes, s)
	}
	for _, r := range a.definition.References {
		addScope(r.Name)
	}

	seenType := make(map[*metadata.TypeRef]bool)
	typeRef := func(r *metadata.TypeRef) {
		if r == nil || seenType[r] {
			return
		}
		seenType[r] = true
		addScope(r.Scope)
		if p.Contains(r.Scope) && r.Scope != a.Name() {
			a.projectTypeRefs = append(a.projectTypeRefs, r)
		}
	}
	seenMember := make(map[*metadata.MemberRef]bool)
	memberRef := func(r *metadata.MemberRef) {
		if r == nil || seenMember[r] {
			return
		}
		seenMember[r] = true
		typeRef(r.Declaring)
		if p.Contains(r.Declaring.Scope) {
			a.projectMemberRefs = append(a.projectMemberRefs, r)
		}
	}

	for _, mod := range a.definition.Modules {
		for _, r := range mod.TypeRefs {
			typeRef(r)
		}
		for _, r := range mod.MemberRefs {
			memberRef(r)
		}
		for _, t := range mod.AllTypes() {
			typeRef(t.BaseType)
			for _, i := range t.Interfaces {
				typeRef(i)
			}
			for _, m := range t.Methods {
				for _, o := range m.Overrides {
					memberRef(o)
				}
				for _, ins := range m.Body {
					switch op := ins.Operand.(type) {
					case *metadata.TypeRef:
						typeRef(op)
					case *metadata.MemberRef:
						memberRef(op)
					}
				}
			}
		}
	}
	return scopes
}

// dependency returns a loaded reference-only assembly, loading it from the
// search path on first use.
func (p *Project) dependency(name string) (*metadata.Assembly, error) {
	if asm, ok := p.deps[name]; ok {
		return asm, nil
	}
	for _, dir := range p.searchDirs() {
		for _, ext := range p.reader.Extensions() {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			asm, err := p.reader.ReadAssembly(path)
			if err != nil {
				return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "failed to read dependency"), errors.CtxPath, path)
			}
			p.deps[name] = asm
			slog.Debug("dependency loaded", "assembly", name, "path", path)
			return asm, nil
		}
	}
	return nil, errors.Newf(errors.CodeResolution, "could not resolve dependency %s", name)
}

func (p *Project) searchDirs() []string {
	var dirs []string
	seen := make(map[string]bool)
	add := func(d string) {
		if d == "" {
			return
		}
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	add(p.opts.InPath)
	for _, a := range p.assemblies {
		add(filepath.Dir(a.spec.File))
	}
	for _, d := range p.opts.SearchPaths {
		add(d)
	}
	return dirs
}

func appendHandle(list []Handle, h Handle) []Handle {
	for _, x := range list {
		if x == h {
			return list
		}
	}
	return append(list, h)
}
