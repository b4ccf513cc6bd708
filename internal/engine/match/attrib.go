package match

import (
	"fmt"
	"strings"

	"obscura/internal/engine/metadata"
)

// Attrib restricts a rule to members of a given visibility class.
type Attrib int

const (
	AttribAny Attrib = iota
	AttribPublic
	AttribProtected
	AttribInternal
	AttribPrivate
)

func ParseAttrib(s string) (Attrib, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AttribAny, nil
	case "public":
		return AttribPublic, nil
	case "protected":
		return AttribProtected, nil
	case "internal":
		return AttribInternal, nil
	case "private":
		return AttribPrivate, nil
	default:
		return AttribAny, fmt.Errorf("unsupported attrib %q (expected public, protected, internal or private)", s)
	}
}

// Allows checks an access level against the filter.
func (a Attrib) Allows(access metadata.Access) bool {
	switch a {
	case AttribAny:
		return true
	case AttribPublic:
		return access.VisibleOutside()
	case AttribProtected:
		return access == metadata.AccessFamily || access == metadata.AccessFamORAssem || access == metadata.AccessFamANDAssem
	case AttribInternal:
		return access == metadata.AccessAssembly || access == metadata.AccessFamORAssem || access == metadata.AccessFamANDAssem
	case AttribPrivate:
		return access == metadata.AccessPrivate || access == metadata.AccessCompilerControlled
	default:
		return false
	}
}

// mostVisible picks the widest access among accessor methods.
func mostVisible(methods []*metadata.MethodDef) metadata.Access {
	best := metadata.AccessCompilerControlled
	for _, m := range methods {
		if m.Access > best {
			best = m.Access
		}
	}
	return best
}
