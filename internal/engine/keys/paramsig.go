package keys

import "strings"

// sep never occurs in CLI type names.
const sep = "\x1f"

// ParamSig is an ordered, immutable sequence of parameter type names.
// The zero value is the empty signature.
type ParamSig struct {
	joined string
	n      int
}

func NewParamSig(types ...string) ParamSig {
	return ParamSig{joined: strings.Join(types, sep), n: len(types)}
}

func (p ParamSig) Len() int {
	return p.n
}

// Types returns a fresh copy of the parameter type names.
func (p ParamSig) Types() []string {
	if p.n == 0 {
		return nil
	}
	return strings.Split(p.joined, sep)
}

func (p ParamSig) At(i int) string {
	return p.Types()[i]
}

// Compare orders by length first, then element-wise.
func (p ParamSig) Compare(o ParamSig) int {
	if p.n != o.n {
		if p.n < o.n {
			return -1
		}
		return 1
	}
	a, b := p.Types(), o.Types()
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (p ParamSig) String() string {
	return "(" + strings.Join(p.Types(), ", ") + ")"
}
