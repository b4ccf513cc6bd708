package project

import (
	"fmt"

	"obscura/internal/engine/match"
)

// Rule is the raw form of a member or namespace skip rule.
type Rule struct {
	Name       string
	Rx         string
	Type       string
	Attrib     string
	TypeAttrib string
}

// TypeRule is the raw form of a type skip rule.
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

// ModuleSpec describes one input assembly and its skip rules.
type ModuleSpec struct {
	File             string
	SkipNamespaces   []Rule
	SkipTypes        []TypeRule
	SkipMethods      []Rule
	SkipFields       []Rule
	SkipProperties   []Rule
	SkipEvents       []Rule
	SkipStringHiding []Rule
}

type rules struct {
	namespaces   match.Set[match.NamespaceTester]
	types        match.Set[match.TypeTester]
	methods      match.Set[match.MemberTester]
	fields       match.Set[match.MemberTester]
	properties   match.Set[match.MemberTester]
	events       match.Set[match.MemberTester]
	stringHiding match.Set[match.MemberTester]
}

func compileRules(spec ModuleSpec) (*rules, error) {
	out := &rules{}
	for _, r := range spec.SkipNamespaces {
		p, err := match.NewPattern(r.Name, r.Rx)
		if err != nil {
			return nil, fmt.Errorf("SkipNamespace: %w", err)
		}
		out.namespaces.Add(match.NamespaceTester{Name: p})
	}
	for _, r := range spec.SkipTypes {
		p, err := match.NewPattern(r.Name, r.Rx)
		if err != nil {
			return nil, fmt.Errorf("SkipType: %w", err)
		}
		attrib, err := match.ParseAttrib(r.Attrib)
		if err != nil {
			return nil, fmt.Errorf("SkipType %q: %w", r.Name+r.Rx, err)
		}
		out.types.Add(match.TypeTester{
			Name:             p,
			Attrib:           attrib,
			SkipMethods:      r.SkipMethods,
			SkipFields:       r.SkipFields,
			SkipProperties:   r.SkipProperties,
			SkipEvents:       r.SkipEvents,
			SkipStringHiding: r.SkipStringHiding,
		})
	}
	groups := []struct {
		element string
		in      []Rule
		out     *match.Set[match.MemberTester]
	}{
		{"SkipMethod", spec.SkipMethods, &out.methods},
		{"SkipField", spec.SkipFields, &out.fields},
		{"SkipProperty", spec.SkipProperties, &out.properties},
		{"SkipEvent", spec.SkipEvents, &out.events},
		{"SkipStringHiding", spec.SkipStringHiding, &out.stringHiding},
	}
	for _, g := range groups {
		for _, r := range g.in {
			tester, err := compileMember(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", g.element, err)
			}
			g.out.Add(tester)
		}
	}
	return out, nil
}

func compileMember(r Rule) (match.MemberTester, error) {
	name, err := match.NewPattern(r.Name, r.Rx)
	if err != nil {
		return match.MemberTester{}, err
	}
	typ, err := match.NewPattern(r.Type, "")
	if err != nil {
		return match.MemberTester{}, err
	}
	attrib, err := match.ParseAttrib(r.Attrib)
	if err != nil {
		return match.MemberTester{}, err
	}
	typeAttrib, err := match.ParseAttrib(r.TypeAttrib)
	if err != nil {
		return match.MemberTester{}, fmt.Errorf("typeattrib: %w", err)
	}
	if typeAttrib != match.AttribAny && typeAttrib != match.AttribPublic {
		return match.MemberTester{}, fmt.Errorf("typeattrib %q: only public is supported", r.TypeAttrib)
	}
	return match.MemberTester{Type: typ, Name: name, Attrib: attrib, TypeAttrib: typeAttrib}, nil
}
