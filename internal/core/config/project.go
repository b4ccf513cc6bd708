package config

import (
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"obscura/internal/core/errors"
	"obscura/internal/shared/util"
)

// Rule is one Skip* element. Name and Rx are mutually exclusive.
type Rule struct {
	Name       string
	Rx         string
	Type       string
	Attrib     string
	TypeAttrib string
}

// TypeRule is a SkipType element with its member cascade flags.
type TypeRule struct {
	Name             string
	Rx               string
	Attrib           string
	SkipMethods      bool
	SkipFields       bool
	SkipProperties   bool
	SkipEvents       bool
	SkipStringHiding bool
}

// Module is one <Module file=..> element.
type Module struct {
	File             string
	SkipNamespaces   []Rule
	SkipTypes        []TypeRule
	SkipMethods      []Rule
	SkipFields       []Rule
	SkipProperties   []Rule
	SkipEvents       []Rule
	SkipStringHiding []Rule
}

// Settings are the recognized top-level variables.
type Settings struct {
	InPath           string
	OutPath          string
	KeyFile          string
	KeepPublicAPI    bool
	HidePrivateAPI   bool
	MarkedOnly       bool
	RenameProperties bool
	RenameEvents     bool
	ReuseNames       bool
	HideStrings      bool
	XmlMapping       bool
	SearchPaths      []string
}

// Project is a parsed <Obfuscator> project file.
type Project struct {
	Path     string
	Vars     map[string]string
	Settings Settings
	Modules  []Module
}

// DefaultOutPath is used when the project does not set OutPath.
const DefaultOutPath = "Obfuscator_Output"

// LoadProject parses a project file. Relative paths inside it resolve against
// the file's directory.
func LoadProject(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfig, "unable to read project file"), errors.CtxPath, path)
	}
	defer f.Close()

	p, err := ParseProject(f, filepath.Dir(path))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	p.Path = path
	return p, nil
}

// ParseProject reads a project document; baseDir anchors relative paths.
func ParseProject(r io.Reader, baseDir string) (*Project, error) {
	pp := &projectParser{
		dec:  xml.NewDecoder(r),
		base: baseDir,
		proj: &Project{Vars: make(map[string]string)},
	}
	if err := pp.parse(); err != nil {
		return nil, err
	}
	settings, err := pp.settings()
	if err != nil {
		return nil, err
	}
	pp.proj.Settings = settings
	return pp.proj, nil
}

type projectParser struct {
	dec         *xml.Decoder
	base        string
	proj        *Project
	searchPaths []string
}

func (pp *projectParser) parse() error {
	root, err := pp.nextStart()
	if err != nil {
		if err == io.EOF {
			return errors.New(errors.CodeConfig, "project file is empty")
		}
		return err
	}
	if root.Name.Local != "Obfuscator" {
		return errors.Newf(errors.CodeConfig, "project root element must be <Obfuscator>, got <%s>", root.Name.Local)
	}
	for {
		tok, err := pp.token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := pp.topLevel(el); err != nil {
				return err
			}
		}
	}
}

func (pp *projectParser) topLevel(el xml.StartElement) error {
	switch el.Name.Local {
	case "Var":
		name := strings.TrimSpace(attr(el, "name"))
		if name == "" {
			return errors.New(errors.CodeConfig, "Var element requires a name attribute")
		}
		value, err := pp.expand(attr(el, "value"))
		if err != nil {
			return err
		}
		pp.proj.Vars[name] = value
		return pp.dec.Skip()
	case "Module":
		return pp.module(el)
	case "AssemblySearchPath":
		path, err := pp.expand(attr(el, "path"))
		if err != nil {
			return err
		}
		if strings.TrimSpace(path) == "" {
			return errors.New(errors.CodeConfig, "AssemblySearchPath element requires a path attribute")
		}
		pp.searchPaths = append(pp.searchPaths, pp.resolve(path))
		return pp.dec.Skip()
	default:
		slog.Warn("ignoring unknown project element", "element", el.Name.Local)
		return pp.dec.Skip()
	}
}

func (pp *projectParser) module(el xml.StartElement) error {
	file, err := pp.expand(attr(el, "file"))
	if err != nil {
		return err
	}
	if strings.TrimSpace(file) == "" {
		return errors.New(errors.CodeConfig, "Module element requires a non-empty file attribute")
	}
	mod := Module{File: pp.resolve(file)}

	for {
		tok, err := pp.token()
		if err != nil {
			return err
		}
		switch child := tok.(type) {
		case xml.EndElement:
			pp.proj.Modules = append(pp.proj.Modules, mod)
			return nil
		case xml.StartElement:
			if err := pp.skipRule(&mod, child); err != nil {
				return errors.AddContext(err, "module", mod.File)
			}
		}
	}
}

func (pp *projectParser) skipRule(mod *Module, el xml.StartElement) error {
	name := el.Name.Local
	if name == "SkipType" {
		rule, err := pp.typeRule(el)
		if err != nil {
			return err
		}
		mod.SkipTypes = append(mod.SkipTypes, rule)
		return pp.dec.Skip()
	}

	var target *[]Rule
	switch name {
	case "SkipNamespace":
		target = &mod.SkipNamespaces
	case "SkipMethod":
		target = &mod.SkipMethods
	case "SkipField":
		target = &mod.SkipFields
	case "SkipProperty":
		target = &mod.SkipProperties
	case "SkipEvent":
		target = &mod.SkipEvents
	case "SkipStringHiding":
		target = &mod.SkipStringHiding
	default:
		slog.Warn("ignoring unknown module element", "element", name, "module", mod.File)
		return pp.dec.Skip()
	}

	var rule Rule
	values := map[string]*string{
		"name": &rule.Name, "rx": &rule.Rx, "type": &rule.Type, "attrib": &rule.Attrib, "typeattrib": &rule.TypeAttrib,
	}
	for key, dst := range values {
		v, err := pp.expand(attr(el, key))
		if err != nil {
			return err
		}
		*dst = v
	}
	if rule.Name != "" && rule.Rx != "" {
		return errors.Newf(errors.CodeConfig, "%s cannot set both name and rx", name)
	}
	*target = append(*target, rule)
	return pp.dec.Skip()
}

func (pp *projectParser) typeRule(el xml.StartElement) (TypeRule, error) {
	var rule TypeRule
	for key, dst := range map[string]*string{"name": &rule.Name, "rx": &rule.Rx, "attrib": &rule.Attrib} {
		v, err := pp.expand(attr(el, key))
		if err != nil {
			return rule, err
		}
		*dst = v
	}
	if rule.Name != "" && rule.Rx != "" {
		return rule, errors.New(errors.CodeConfig, "SkipType cannot set both name and rx")
	}
	flags := map[string]*bool{
		"skipMethods":      &rule.SkipMethods,
		"skipFields":       &rule.SkipFields,
		"skipProperties":   &rule.SkipProperties,
		"skipEvents":       &rule.SkipEvents,
		"skipStringHiding": &rule.SkipStringHiding,
	}
	for key, dst := range flags {
		raw, err := pp.expand(attr(el, key))
		if err != nil {
			return rule, err
		}
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return rule, errors.Newf(errors.CodeConfig, "SkipType %s must be a boolean, got %q", key, raw)
		}
		*dst = b
	}
	return rule, nil
}

func (pp *projectParser) settings() (Settings, error) {
	vars := pp.proj.Vars
	s := Settings{
		InPath:      pp.resolve(valueOr(vars, "InPath", ".")),
		OutPath:     pp.resolve(valueOr(vars, "OutPath", DefaultOutPath)),
		SearchPaths: pp.searchPaths,
	}
	if key := strings.TrimSpace(vars["KeyFile"]); key != "" {
		s.KeyFile = pp.resolve(key)
	}
	bools := []struct {
		name string
		def  bool
		dst  *bool
	}{
		{"KeepPublicApi", true, &s.KeepPublicAPI},
		{"HidePrivateApi", true, &s.HidePrivateAPI},
		{"MarkedOnly", false, &s.MarkedOnly},
		{"RenameProperties", true, &s.RenameProperties},
		{"RenameEvents", true, &s.RenameEvents},
		{"ReuseNames", true, &s.ReuseNames},
		{"HideStrings", false, &s.HideStrings},
		{"XmlMapping", false, &s.XmlMapping},
	}
	for _, b := range bools {
		raw, ok := vars[b.name]
		if !ok || strings.TrimSpace(raw) == "" {
			*b.dst = b.def
			continue
		}
		v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return s, errors.Newf(errors.CodeConfig, "variable %s must be a boolean, got %q", b.name, raw)
		}
		*b.dst = v
	}
	return s, nil
}

// expand substitutes $(Name) with previously declared variables.
func (pp *projectParser) expand(raw string) (string, error) {
	var b strings.Builder
	rest := raw
	for {
		start := strings.Index(rest, "$(")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[start:], ')')
		if end < 0 {
			return "", errors.Newf(errors.CodeConfig, "unterminated variable reference in %q", raw)
		}
		name := rest[start+2 : start+end]
		value, ok := pp.proj.Vars[name]
		if !ok {
			return "", errors.Newf(errors.CodeConfig, "undefined variable $(%s) in %q", name, raw)
		}
		b.WriteString(rest[:start])
		b.WriteString(value)
		rest = rest[start+end+1:]
	}
}

// resolve turns a project path (either separator, $ENV references allowed)
// into a cleaned OS path anchored at the project directory.
func (pp *projectParser) resolve(raw string) string {
	p := util.NormalizePatternPath(os.ExpandEnv(raw))
	if p == "" {
		return ResolveRelative(pp.base, ".")
	}
	return ResolveRelative(pp.base, filepath.FromSlash(p))
}

func (pp *projectParser) nextStart() (xml.StartElement, error) {
	for {
		tok, err := pp.dec.Token()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, err
			}
			return xml.StartElement{}, errors.Wrap(err, errors.CodeConfig, "malformed project XML")
		}
		if el, ok := tok.(xml.StartElement); ok {
			return el, nil
		}
	}
}

func (pp *projectParser) token() (xml.Token, error) {
	tok, err := pp.dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.CodeConfig, "malformed project XML: unexpected end of file")
		}
		return nil, errors.Wrap(err, errors.CodeConfig, "malformed project XML")
	}
	return tok, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func valueOr(vars map[string]string, key, def string) string {
	if v := strings.TrimSpace(vars[key]); v != "" {
		return v
	}
	return def
}
