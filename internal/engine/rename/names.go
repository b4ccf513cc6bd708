package rename

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// UniqueName maps 0, 1, 2, ... onto a, b, ..., Z, aa, ab, ...
func UniqueName(index int) string {
	n := len(alphabet)
	var buf [16]byte
	i := len(buf)
	index++
	for index > 0 {
		index--
		i--
		buf[i] = alphabet[index%n]
		index /= n
	}
	return string(buf[i:])
}

// NameMaker hands out new names. With reuse, each scope gets its own sequence;
// otherwise one sequence per kind serves the whole run.
type NameMaker struct {
	reuse bool
	next  map[string]int
}

func NewNameMaker(reuse bool) *NameMaker {
	return &NameMaker{reuse: reuse, next: make(map[string]int)}
}

// Next returns the first name of the sequence for (kind, scope) not rejected by taken.
func (n *NameMaker) Next(kind, scope string, taken func(string) bool) string {
	key := kind
	if n.reuse {
		key = kind + "\x00" + scope
	}
	i := n.next[key]
	for {
		name := UniqueName(i)
		i++
		if taken == nil || !taken(name) {
			n.next[key] = i
			return name
		}
	}
}

// nameSet tracks names in use, partitioned by signature.
type nameSet map[string]map[string]bool

func (s nameSet) add(sig, name string) {
	names, ok := s[sig]
	if !ok {
		names = make(map[string]bool)
		s[sig] = names
	}
	names[name] = true
}

func (s nameSet) has(sig, name string) bool {
	return s[sig][name]
}
