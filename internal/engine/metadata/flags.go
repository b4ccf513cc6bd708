package metadata

import (
	"fmt"
	"strings"
)

// Access is the member (or nested type) accessibility level.
type Access int

const (
	AccessCompilerControlled Access = iota
	AccessPrivate
	AccessFamANDAssem
	AccessAssembly
	AccessFamily
	AccessFamORAssem
	AccessPublic
)

var accessNames = map[Access]string{
	AccessCompilerControlled: "compilercontrolled",
	AccessPrivate:            "private",
	AccessFamANDAssem:        "famandassem",
	AccessAssembly:           "assembly",
	AccessFamily:             "family",
	AccessFamORAssem:         "famorassem",
	AccessPublic:             "public",
}

func (a Access) String() string {
	if name, ok := accessNames[a]; ok {
		return name
	}
	return fmt.Sprintf("access(%d)", int(a))
}

// ParseAccess accepts the names produced by String.
func ParseAccess(s string) (Access, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AccessPrivate, nil
	}
	for a, name := range accessNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown access %q", s)
}

// VisibleOutside reports accessibility from another assembly (including via inheritance).
func (a Access) VisibleOutside() bool {
	return a == AccessPublic || a == AccessFamily || a == AccessFamORAssem
}

type TypeFlags uint32

const (
	TypeInterface TypeFlags = 1 << iota
	TypeAbstract
	TypeSealed
	TypeSerializable
	TypeSpecialName
)

type MethodFlags uint32

const (
	MethodStatic MethodFlags = 1 << iota
	MethodVirtual
	MethodNewSlot
	MethodAbstract
	MethodFinal
	MethodSpecialName
	MethodRTSpecialName
	MethodPInvoke
	MethodRuntime
)

type FieldFlags uint32

const (
	FieldStatic FieldFlags = 1 << iota
	FieldLiteral
	FieldSpecialName
	FieldRTSpecialName
)

var typeFlagNames = []string{"interface", "abstract", "sealed", "serializable", "specialname"}

var methodFlagNames = []string{
	"static", "virtual", "newslot", "abstract", "final", "specialname", "rtspecialname", "pinvoke", "runtime",
}

var fieldFlagNames = []string{"static", "literal", "specialname", "rtspecialname"}

func (f TypeFlags) Names() []string   { return flagNames(uint32(f), typeFlagNames) }
func (f MethodFlags) Names() []string { return flagNames(uint32(f), methodFlagNames) }
func (f FieldFlags) Names() []string  { return flagNames(uint32(f), fieldFlagNames) }

func ParseTypeFlags(names []string) (TypeFlags, error) {
	v, err := parseFlags(names, typeFlagNames)
	return TypeFlags(v), err
}

func ParseMethodFlags(names []string) (MethodFlags, error) {
	v, err := parseFlags(names, methodFlagNames)
	return MethodFlags(v), err
}

func ParseFieldFlags(names []string) (FieldFlags, error) {
	v, err := parseFlags(names, fieldFlagNames)
	return FieldFlags(v), err
}

func flagNames(v uint32, names []string) []string {
	var out []string
	for i, name := range names {
		if v&(1<<uint(i)) != 0 {
			out = append(out, name)
		}
	}
	return out
}

func parseFlags(in []string, names []string) (uint32, error) {
	var v uint32
outer:
	for _, raw := range in {
		raw = strings.ToLower(strings.TrimSpace(raw))
		for i, name := range names {
			if name == raw {
				v |= 1 << uint(i)
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown flag %q", raw)
	}
	return v, nil
}
