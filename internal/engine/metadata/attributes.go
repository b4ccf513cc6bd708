package metadata

import (
	"strconv"
	"strings"
)

// AttributeProvider is anything that can carry custom attributes.
type AttributeProvider interface {
	Attributes() []*CustomAttribute
}

// AttributeArg is a decoded attribute argument. Values are kept in their
// textual form; System.Type arguments hold a type full name.
type AttributeArg struct {
	Type  string
	Value string
}

type NamedArg struct {
	IsField bool
	Name    string
	Arg     AttributeArg
}

type CustomAttribute struct {
	Type  *TypeRef
	Args  []AttributeArg
	Named []NamedArg
}

// FindAttribute returns the first attribute of the given full type name.
func FindAttribute(p AttributeProvider, fullName string) (*CustomAttribute, bool) {
	if p == nil {
		return nil, false
	}
	for _, ca := range p.Attributes() {
		if ca.Type != nil && ca.Type.FullName == fullName {
			return ca, true
		}
	}
	return nil, false
}

// NamedArgValue looks up a named argument (property or field setter).
func (c *CustomAttribute) NamedArgValue(name string) (AttributeArg, bool) {
	for _, n := range c.Named {
		if n.Name == name {
			return n.Arg, true
		}
	}
	return AttributeArg{}, false
}

func (c *CustomAttribute) NamedBool(name string, def bool) bool {
	arg, ok := c.NamedArgValue(name)
	if !ok {
		return def
	}
	return parseBool(arg.Value, def)
}

func (c *CustomAttribute) NamedString(name, def string) string {
	arg, ok := c.NamedArgValue(name)
	if !ok {
		return def
	}
	return arg.Value
}

// ArgBool returns the positional constructor argument i as a boolean.
func (c *CustomAttribute) ArgBool(i int, def bool) bool {
	if i < 0 || i >= len(c.Args) {
		return def
	}
	return parseBool(c.Args[i].Value, def)
}

func parseBool(raw string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return b
}

// IsTypeArg reports arguments whose value is a type name.
func (a AttributeArg) IsTypeArg() bool {
	return a.Type == "System.Type"
}
