// Package rename decides and applies new names for every renamable entity in
// a project, recording each outcome in the obfuscation map.
package rename

import (
	"obscura/internal/engine/closure"
	"obscura/internal/engine/mapping"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/project"
)

type Options struct {
	// KeepPublicAPI leaves entities visible outside their assembly untouched.
	KeepPublicAPI bool
	// HidePrivateAPI renames entities that are not visible outside their assembly.
	HidePrivateAPI   bool
	MarkedOnly       bool
	RenameProperties bool
	RenameEvents     bool
	// ReuseNames restarts the name sequence in every scope instead of keeping
	// one global sequence.
	ReuseNames bool
}

// Context carries the state shared by the rename phases of one run.
type Context struct {
	project *project.Project
	groups  *closure.Map
	report  *mapping.Map
	opts    Options
	names   *NameMaker

	// accessors that must keep their names because their property or event does
	forced map[*metadata.MethodDef]string
	bound  *bindings
}

func NewContext(p *project.Project, groups *closure.Map, report *mapping.Map, opts Options) *Context {
	return &Context{
		project: p,
		groups:  groups,
		report:  report,
		opts:    opts,
		names:   NewNameMaker(opts.ReuseNames),
		forced:  make(map[*metadata.MethodDef]string),
	}
}

// Phase is one step of the rename pipeline.
type Phase struct {
	Name string
	Run  func() error
}

// Phases returns the pipeline in its required order. Fields and parameters
// are independent of everything else; properties and events must run before
// methods so their accessors can be pinned; types run last because every
// member key embeds the declaring type's original name.
func (c *Context) Phases() []Phase {
	return []Phase{
		{Name: "fields", Run: c.RenameFields},
		{Name: "params", Run: c.RenameParams},
		{Name: "properties", Run: c.RenameProperties},
		{Name: "events", Run: c.RenameEvents},
		{Name: "methods", Run: c.RenameMethods},
		{Name: "types", Run: c.RenameTypes},
	}
}

// RenameAll runs every phase in order.
func (c *Context) RenameAll() error {
	for _, phase := range c.Phases() {
		if err := phase.Run(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) Map() *mapping.Map {
	return c.report
}

// each visits every type of every project assembly in project order.
func (c *Context) each(fn func(info *project.AssemblyInfo, t *metadata.TypeDef)) {
	for _, info := range c.project.Assemblies() {
		for _, t := range info.Types() {
			fn(info, t)
		}
	}
}
